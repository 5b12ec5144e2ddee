package session

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	appErr "github.com/xxxsen/csvsearch/internal/pkg/errors"
)

// NewToken issues a fresh session token. Tokens are namespace keys only;
// nothing about them is remembered server side.
func NewToken() string {
	return uuid.NewString()
}

// Normalize checks that token is UUID shaped and returns its canonical
// lower-case form, which is safe to embed in an engine index name.
func Normalize(token string) (string, error) {
	token = strings.TrimSpace(token)
	if len(token) != 36 {
		return "", fmt.Errorf("%w: expected a uuid", appErr.ErrInvalidSession)
	}
	id, err := uuid.Parse(token)
	if err != nil {
		return "", fmt.Errorf("%w: %v", appErr.ErrInvalidSession, err)
	}
	return id.String(), nil
}
