package history

import (
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestHistoryEvictsOldestFirst(t *testing.T) {
	h := New(0)
	for i := 0; i < 15; i++ {
		h.Add(Entry{Query: "q" + strconv.Itoa(i), Results: int64(i)})
	}
	require.Equal(t, DefaultCapacity, h.Len())
	entries := h.Entries()
	require.Equal(t, "q5", entries[0].Query)
	require.Equal(t, "q14", entries[9].Query)
	require.False(t, entries[0].Timestamp.IsZero())

	recent := h.Recent()
	require.Equal(t, "q14", recent[0].Query)
	require.Equal(t, "q5", recent[9].Query)
}

func TestHistoryReturnsCopies(t *testing.T) {
	h := New(2)
	ts := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	h.Add(Entry{Query: "a", Timestamp: ts})
	entries := h.Entries()
	entries[0].Query = "mutated"
	require.Equal(t, "a", h.Entries()[0].Query)
	require.Equal(t, ts, h.Entries()[0].Timestamp)
}
