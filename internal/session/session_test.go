package session

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	appErr "github.com/xxxsen/csvsearch/internal/pkg/errors"
)

func TestNewTokenIsNormalized(t *testing.T) {
	token := NewToken()
	got, err := Normalize(token)
	require.NoError(t, err)
	require.Equal(t, token, got)
	require.NotEqual(t, token, NewToken())
}

func TestNormalizeLowercases(t *testing.T) {
	token := strings.ToUpper(NewToken())
	got, err := Normalize("  " + token + " ")
	require.NoError(t, err)
	require.Equal(t, strings.ToLower(token), got)
}

func TestNormalizeRejectsNonUUID(t *testing.T) {
	for _, in := range []string{"", "abc", "urn:uuid:6ba7b810-9dad-11d1-80b4-00c04fd430c8", "{6ba7b810-9dad-11d1-80b4-00c04fd430c8}", "zzzzzzzz-9dad-11d1-80b4-00c04fd430c8"} {
		_, err := Normalize(in)
		require.Error(t, err, in)
		require.True(t, errors.Is(err, appErr.ErrInvalidSession), in)
	}
}
