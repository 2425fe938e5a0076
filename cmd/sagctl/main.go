package main

import (
	"bufio"
	"fmt"
	"io"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/sentrius/sag/pkg/sag/ast"
	"github.com/sentrius/sag/pkg/sag/fold"
	"github.com/sentrius/sag/pkg/sag/minifier"
	"github.com/sentrius/sag/pkg/sag/parser"
	"github.com/sentrius/sag/pkg/sag/profiles"
	"github.com/sentrius/sag/pkg/sag/sanitizer"
)

func main() {
	for _, envFile := range []string{".env", "../../.env", "../../../.env"} {
		if err := godotenv.Load(envFile); err == nil {
			break
		}
	}

	rootCmd := &cobra.Command{
		Use:   "sagctl",
		Short: "sagctl inspects and validates SAG inter-agent protocol messages.",
	}

	rootCmd.AddCommand(
		parseCmd(),
		minifyCmd(),
		sanitizeCmd(),
		foldCmd(),
		tokensCmd(),
		serveCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func readInput(args []string) (string, error) {
	if len(args) > 0 {
		return args[0], nil
	}
	data, err := io.ReadAll(bufio.NewReader(os.Stdin))
	if err != nil {
		return "", fmt.Errorf("reading stdin: %w", err)
	}
	return string(data), nil
}

func parseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "parse [message]",
		Short: "Parse a SAG message and print its statement structure",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := readInput(args)
			if err != nil {
				return err
			}
			msg, err := parser.Parse(text)
			if err != nil {
				return err
			}
			fmt.Printf("header: src=%s dst=%s id=%s ts=%d\n", msg.Header.Source, msg.Header.Destination, msg.Header.MessageID, msg.Header.Timestamp)
			for i, stmt := range msg.Statements {
				fmt.Printf("  [%d] %T: %s\n", i, stmt, minifier.MinifyStatement(stmt))
			}
			return nil
		},
	}
}

func minifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "minify [message]",
		Short: "Parse a SAG message and print its minified wire form",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := readInput(args)
			if err != nil {
				return err
			}
			msg, err := parser.Parse(text)
			if err != nil {
				return err
			}
			fmt.Println(minifier.Minify(msg))
			return nil
		},
	}
}

func sanitizeCmd() *cobra.Command {
	var strict bool
	cmd := &cobra.Command{
		Use:   "sanitize [message]",
		Short: "Run a SAG message through the four-layer firewall using the software-dev schema profile",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := readInput(args)
			if err != nil {
				return err
			}
			registry, err := profiles.NewSoftwareDevRegistry()
			if err != nil {
				return err
			}
			agents := sanitizer.NewAgentRegistry()
			agents.Register("agent", "server")
			agents.Register("server", "agent")

			s := sanitizer.New(registry, agents, sanitizer.WithStrict(strict))
			result := s.Sanitize(text)
			if result.Valid {
				fmt.Println("VALID")
				return nil
			}
			for _, e := range result.Errors {
				fmt.Printf("%s %s: %s\n", e.Type, e.Code, e.Message)
			}
			return fmt.Errorf("message rejected")
		},
	}
	cmd.Flags().BoolVar(&strict, "strict", true, "fail on the first layer violation")
	return cmd
}

func foldCmd() *cobra.Command {
	var summary string
	cmd := &cobra.Command{
		Use:   "fold [message]",
		Short: "Archive a single parsed SAG message and print its fold statement",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := readInput(args)
			if err != nil {
				return err
			}
			msg, err := parser.Parse(text)
			if err != nil {
				return err
			}
			engine := fold.New()
			foldStmt := engine.Fold([]ast.Message{msg}, summary, nil)
			fmt.Printf("FOLD %s %q\n", foldStmt.FoldID, foldStmt.Summary)

			unfolded, err := engine.Unfold(foldStmt.FoldID)
			if err != nil {
				return err
			}
			fmt.Printf("archived %d message(s)\n", len(unfolded))
			return nil
		},
	}
	cmd.Flags().StringVar(&summary, "summary", "archived via sagctl", "fold summary text")
	return cmd
}

func tokensCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tokens [message]",
		Short: "Compare SAG wire size against an equivalent JSON encoding",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := readInput(args)
			if err != nil {
				return err
			}
			msg, err := parser.Parse(text)
			if err != nil {
				return err
			}
			cmp, err := minifier.Compare(msg)
			if err != nil {
				return err
			}
			fmt.Println(cmp.String())
			return nil
		},
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run a tiny in-process demo: two agents exchange knowledge over a broker",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDemo()
		},
	}
}
