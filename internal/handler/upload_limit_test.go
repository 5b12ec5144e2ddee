package handler

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestUploadLimitText(t *testing.T) {
	require.Equal(t, "unlimited", uploadLimitText(0))
	require.Equal(t, "512B", uploadLimitText(512))
	require.Equal(t, "1KB", uploadLimitText(1<<10))
	require.Equal(t, "50MB", uploadLimitText(50<<20))
}

func TestIsBodyTooLarge(t *testing.T) {
	wrapped := fmt.Errorf("multipart: NextPart: %w", &http.MaxBytesError{Limit: 10})
	require.True(t, isBodyTooLarge(wrapped))
	require.False(t, isBodyTooLarge(http.ErrMissingFile))
}
