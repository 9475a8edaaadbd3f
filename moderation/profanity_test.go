package moderation

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"channel-hub/errors"

	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// The dictionary uses specific words to avoid partial collisions
// (e.g., "he" inside "The").
func TestProfanityFilter_Check(t *testing.T) {
	req := require.New(t)
	dictionary := []string{"badger", "snake", "mushroom"}
	filter, err := NewProfanityFilter(dictionary, testLogger())
	req.NoError(err)

	tests := []struct {
		name     string
		input    string
		rejected bool
	}{
		{
			name:     "Clean content passes",
			input:    "The weather is lovely today",
			rejected: false,
		},
		{
			name:     "Simple blocked word",
			input:    "The badger is here",
			rejected: true,
		},
		{
			name:     "Uppercase variant",
			input:    "BADGER alert",
			rejected: true,
		},
		{
			name:     "Leet speak and internal punctuation",
			input:    "Look at B.4.d.g.€r !",
			rejected: true,
		},
		{
			name:     "Extreme noise with separators",
			input:    "S-N-A-K-E is loose",
			rejected: true,
		},
		{
			name:     "Blocked term embedded in a longer word passes",
			input:    "the snakeskin pattern",
			rejected: false,
		},
		{
			name:     "Blocked term as prefix of a longer word passes",
			input:    "mushrooming growth",
			rejected: false,
		},
		{
			name:     "Word adjacent to trailing punctuation",
			input:    "watch out, badger!",
			rejected: true,
		},
		{
			name:     "Accented surroundings (UTF-8)",
			input:    "Un été avec un badger",
			rejected: true,
		},
		{
			name:     "Empty content passes",
			input:    "",
			rejected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := filter.Check(context.Background(), Input{Content: tt.input})
			if tt.rejected {
				reason, ok := errors.RejectedReason(err)
				require.True(t, ok, "expected a moderation rejection")
				require.Equal(t, errors.ReasonProfanity, reason)
			} else {
				require.NoError(t, err)
			}
		})
	}
}
