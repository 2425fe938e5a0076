package messaging

import (
	"time"

	"github.com/sentrius/sag/pkg/sag/ast"
	"github.com/sentrius/sag/pkg/sag/minifier"
	"github.com/sentrius/sag/pkg/sag/parser"
)

// FromSAG minifies msg and wraps it as a broker Message addressed per its
// own header (single recipient, msg.Header.Destination).
func FromSAG(msg ast.Message, timestamp time.Time) Message {
	return Message{
		From:      msg.Header.Source,
		To:        []string{msg.Header.Destination},
		Content:   minifier.Minify(msg),
		Timestamp: timestamp,
	}
}

// ToSAG parses a broker Message's Content back into an ast.Message.
func ToSAG(msg Message) (ast.Message, error) {
	return parser.Parse(msg.Content)
}
