package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRating(t *testing.T) {
	tests := []struct {
		label string
		want  *float64
	}{
		{"4 of 5 bubbles", ptr(4.0)},
		{"4.5 out of 5 bubbles", ptr(4.5)},
		{"3 bubbles", ptr(3.0)},
		{"4.0 OF 5 BUBBLES", ptr(4.0)},
		{"Rated 2.0 of 5 bubbles by travellers", ptr(2.0)},
		{"", nil},
		{"garbage", nil},
		{"of 5 bubbles", ptr(5.0)},
		{"bubbles", nil},
	}
	for _, tt := range tests {
		t.Run(tt.label, func(t *testing.T) {
			got := ParseRating(tt.label)
			if tt.want == nil {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.InDelta(t, *tt.want, *got, 1e-9)
		})
	}
}

func ptr[T any](v T) *T { return &v }
