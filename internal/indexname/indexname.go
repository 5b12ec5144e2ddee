package indexname

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	appErr "github.com/xxxsen/csvsearch/internal/pkg/errors"
	"github.com/xxxsen/csvsearch/internal/session"
)

const (
	Prefix = "temp"

	// MaxNameLength bounds the user part so the joined identifier stays well
	// under the engine's 255 byte index name limit.
	MaxNameLength = 200

	sessionLength = 36
)

// Identifier names a session scoped index. Session and Name are kept apart
// and only joined by String at the engine boundary.
type Identifier struct {
	Session string
	Name    string
}

func (id Identifier) String() string {
	return SessionPrefix(id.Session) + id.Name
}

func SessionPrefix(sessionToken string) string {
	return Prefix + "-" + sessionToken + "-"
}

// Resolve builds the identifier for a user supplied name within a session.
func Resolve(sessionToken, raw string) (Identifier, error) {
	token, err := session.Normalize(sessionToken)
	if err != nil {
		return Identifier{}, err
	}
	name := Normalize(raw)
	if name == "" {
		return Identifier{}, fmt.Errorf("%w: name is empty", appErr.ErrInvalidName)
	}
	if len(name) > MaxNameLength {
		return Identifier{}, fmt.Errorf("%w: name longer than %d characters", appErr.ErrInvalidName, MaxNameLength)
	}
	return Identifier{Session: token, Name: name}, nil
}

// Normalize lower-cases raw and replaces every rune outside [a-z0-9_-]
// with an underscore.
func Normalize(raw string) string {
	var builder strings.Builder
	for _, r := range strings.ToLower(raw) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '_', r == '-':
			builder.WriteRune(r)
		default:
			builder.WriteByte('_')
		}
	}
	return builder.String()
}

// Parse decodes an engine index name produced by Identifier.String.
func Parse(s string) (Identifier, bool) {
	rest, ok := strings.CutPrefix(s, Prefix+"-")
	if !ok || len(rest) < sessionLength+2 {
		return Identifier{}, false
	}
	token := rest[:sessionLength]
	if rest[sessionLength] != '-' {
		return Identifier{}, false
	}
	parsed, err := uuid.Parse(token)
	if err != nil || parsed.String() != token {
		return Identifier{}, false
	}
	name := rest[sessionLength+1:]
	if name == "" || Normalize(name) != name {
		return Identifier{}, false
	}
	return Identifier{Session: token, Name: name}, true
}

// DisplayName strips the session prefix. Names that do not decode are
// returned unchanged.
func DisplayName(s string) string {
	id, ok := Parse(s)
	if !ok {
		return s
	}
	return id.Name
}
