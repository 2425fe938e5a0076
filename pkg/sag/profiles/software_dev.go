// Package profiles provides pre-built schema registries for common verb
// vocabularies.
package profiles

import (
	"github.com/sentrius/sag/pkg/sag/ast"
	"github.com/sentrius/sag/pkg/sag/schema"
)

func strValues(values ...string) []ast.Value {
	out := make([]ast.Value, len(values))
	for i, v := range values {
		out[i] = ast.Str(v)
	}
	return out
}

var softwareDevVerbs = []string{
	"build", "test", "deploy", "rollback", "review", "merge",
	"lint", "scan", "release", "provision", "monitor", "migrate",
}

// SoftwareDevVerbs returns the verb names this profile registers.
func SoftwareDevVerbs() []string {
	out := make([]string, len(softwareDevVerbs))
	copy(out, softwareDevVerbs)
	return out
}

// NewSoftwareDevRegistry returns a schema.Registry pre-populated with
// verb schemas for a software-delivery pipeline: build, test, deploy,
// rollback, review, merge, lint, scan, release, provision, monitor,
// migrate.
func NewSoftwareDevRegistry() (*schema.Registry, error) {
	registry := schema.NewRegistry()

	build, err := schema.NewVerbSchemaBuilder("build").
		AddPositionalArg("target", schema.ArgString, true, schema.WithDescription("build target")).
		AddNamedArg("config", schema.ArgString, false, schema.WithDescription("build configuration")).
		AddNamedArg("clean", schema.ArgBoolean, false, schema.WithDescription("clean before building")).
		Build()
	if err != nil {
		return nil, err
	}
	registry.Register(build)

	test, err := schema.NewVerbSchemaBuilder("test").
		AddPositionalArg("suite", schema.ArgString, true, schema.WithDescription("test suite to run")).
		AddNamedArg("coverage", schema.ArgBoolean, false, schema.WithDescription("enable coverage reporting")).
		AddNamedArg("timeout", schema.ArgInteger, false, schema.WithDescription("timeout in seconds"), schema.WithMinValue(1), schema.WithMaxValue(3600)).
		AddNamedArg("parallel", schema.ArgBoolean, false, schema.WithDescription("run tests in parallel")).
		Build()
	if err != nil {
		return nil, err
	}
	registry.Register(test)

	deploy, err := schema.NewVerbSchemaBuilder("deploy").
		AddPositionalArg("app", schema.ArgString, true, schema.WithDescription("application to deploy")).
		AddNamedArg("version", schema.ArgInteger, false, schema.WithDescription("version number")).
		AddNamedArg("env", schema.ArgString, false, schema.WithDescription("target environment"),
			schema.WithAllowedValues(strValues("dev", "staging", "production")...)).
		AddNamedArg("replicas", schema.ArgInteger, false, schema.WithDescription("number of replicas"), schema.WithMinValue(1), schema.WithMaxValue(100)).
		Build()
	if err != nil {
		return nil, err
	}
	registry.Register(deploy)

	rollback, err := schema.NewVerbSchemaBuilder("rollback").
		AddPositionalArg("app", schema.ArgString, true, schema.WithDescription("application to rollback")).
		AddNamedArg("version", schema.ArgInteger, false, schema.WithDescription("version to rollback to")).
		AddNamedArg("env", schema.ArgString, false, schema.WithDescription("target environment"),
			schema.WithAllowedValues(strValues("dev", "staging", "production")...)).
		Build()
	if err != nil {
		return nil, err
	}
	registry.Register(rollback)

	review, err := schema.NewVerbSchemaBuilder("review").
		AddPositionalArg("target", schema.ArgString, true, schema.WithDescription("review target")).
		AddNamedArg("reviewer", schema.ArgString, false, schema.WithDescription("reviewer name")).
		AddNamedArg("auto_merge", schema.ArgBoolean, false, schema.WithDescription("auto-merge on approval")).
		Build()
	if err != nil {
		return nil, err
	}
	registry.Register(review)

	merge, err := schema.NewVerbSchemaBuilder("merge").
		AddPositionalArg("source", schema.ArgString, true, schema.WithDescription("source branch")).
		AddPositionalArg("target", schema.ArgString, true, schema.WithDescription("target branch")).
		AddNamedArg("strategy", schema.ArgString, false, schema.WithDescription("merge strategy"),
			schema.WithAllowedValues(strValues("merge", "rebase", "squash")...)).
		AddNamedArg("squash", schema.ArgBoolean, false, schema.WithDescription("squash commits")).
		Build()
	if err != nil {
		return nil, err
	}
	registry.Register(merge)

	lint, err := schema.NewVerbSchemaBuilder("lint").
		AddPositionalArg("target", schema.ArgString, true, schema.WithDescription("lint target")).
		AddNamedArg("fix", schema.ArgBoolean, false, schema.WithDescription("auto-fix issues")).
		AddNamedArg("config", schema.ArgString, false, schema.WithDescription("linter configuration")).
		Build()
	if err != nil {
		return nil, err
	}
	registry.Register(lint)

	scan, err := schema.NewVerbSchemaBuilder("scan").
		AddPositionalArg("target", schema.ArgString, true, schema.WithDescription("scan target")).
		AddNamedArg("scan_type", schema.ArgString, false, schema.WithDescription("type of scan"),
			schema.WithAllowedValues(strValues("sast", "dast", "sca", "container")...)).
		AddNamedArg("severity", schema.ArgString, false, schema.WithDescription("minimum severity level"),
			schema.WithAllowedValues(strValues("low", "medium", "high", "critical")...)).
		Build()
	if err != nil {
		return nil, err
	}
	registry.Register(scan)

	release, err := schema.NewVerbSchemaBuilder("release").
		AddPositionalArg("version", schema.ArgString, true, schema.WithDescription("release version"),
			schema.WithPattern(`\d+\.\d+\.\d+`)).
		AddNamedArg("tag", schema.ArgString, false, schema.WithDescription("git tag")).
		AddNamedArg("draft", schema.ArgBoolean, false, schema.WithDescription("create as draft")).
		AddNamedArg("notes", schema.ArgString, false, schema.WithDescription("release notes")).
		Build()
	if err != nil {
		return nil, err
	}
	registry.Register(release)

	provision, err := schema.NewVerbSchemaBuilder("provision").
		AddPositionalArg("resource", schema.ArgString, true, schema.WithDescription("resource to provision")).
		AddNamedArg("provider", schema.ArgString, false, schema.WithDescription("cloud provider"),
			schema.WithAllowedValues(strValues("aws", "gcp", "azure")...)).
		AddNamedArg("region", schema.ArgString, false, schema.WithDescription("deployment region")).
		AddNamedArg("count", schema.ArgInteger, false, schema.WithDescription("number of instances"), schema.WithMinValue(1), schema.WithMaxValue(100)).
		Build()
	if err != nil {
		return nil, err
	}
	registry.Register(provision)

	monitor, err := schema.NewVerbSchemaBuilder("monitor").
		AddPositionalArg("target", schema.ArgString, true, schema.WithDescription("monitor target")).
		AddNamedArg("interval", schema.ArgInteger, false, schema.WithDescription("check interval in seconds"), schema.WithMinValue(1), schema.WithMaxValue(86400)).
		AddNamedArg("alert_threshold", schema.ArgFloat, false, schema.WithDescription("alert threshold value"), schema.WithMinValue(0.0), schema.WithMaxValue(1.0)).
		Build()
	if err != nil {
		return nil, err
	}
	registry.Register(monitor)

	migrate, err := schema.NewVerbSchemaBuilder("migrate").
		AddPositionalArg("target", schema.ArgString, true, schema.WithDescription("migration target")).
		AddNamedArg("direction", schema.ArgString, false, schema.WithDescription("migration direction"),
			schema.WithAllowedValues(strValues("up", "down")...)).
		AddNamedArg("version", schema.ArgString, false, schema.WithDescription("target version")).
		AddNamedArg("dry_run", schema.ArgBoolean, false, schema.WithDescription("dry run mode")).
		Build()
	if err != nil {
		return nil, err
	}
	registry.Register(migrate)

	return registry, nil
}
