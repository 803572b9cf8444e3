package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPickLongest(t *testing.T) {
	tp := DefaultTextPolicy()

	got := tp.PickLongest([]string{
		"",
		"This review is the subjective opinion of a Tripadvisor member and not of Tripadvisor LLC.",
		"Great stay, loved the pool and the staff!",
	})
	require.NotNil(t, got)
	assert.Equal(t, "Great stay, loved the pool and the staff!", *got)

	assert.Nil(t, tp.PickLongest([]string{
		"   ",
		"This review is the subjective opinion of a Tripadvisor member.",
		"Written June 3, 2024",
		"Response from Maria, Owner at Casa Azul",
		"Read more",
	}))
}

func TestPickLongestTiesAndTails(t *testing.T) {
	tp := DefaultTextPolicy()

	got := tp.PickLongest([]string{"abcd", "wxyz"})
	require.NotNil(t, got)
	assert.Equal(t, "abcd", *got)

	got = tp.PickLongest([]string{"Short one", "The tour guide was funny and   knowledgeable. Read more"})
	require.NotNil(t, got)
	assert.Equal(t, "The tour guide was funny and knowledgeable.", *got)

	got = tp.PickLongest([]string{"Dear future visitors, do not skip the rooftop at sunset!", "Nice"})
	require.NotNil(t, got)
	assert.Equal(t, "Dear future visitors, do not skip the rooftop at sunset!", *got)
}

func TestCustomPolicy(t *testing.T) {
	tp := TextPolicy{}
	got := tp.PickLongest([]string{"Written May 1, 2024 and more text"})
	require.NotNil(t, got)
	assert.Equal(t, "Written May 1, 2024 and more text", *got)
}
