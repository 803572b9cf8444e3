package model

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr[T any](v T) *T { return &v }

func TestCSVRow(t *testing.T) {
	r := Review{
		Title: ptr("Great"), Text: ptr("Loved it"), Rating: ptr(4.0),
		Author: ptr("ann"), ContributionCount: ptr(12), URL: "https://example.com/p1",
	}.WithAttraction("Belém Tower")

	row := r.CSVRow()
	require.Len(t, row, len(CSVHeader))
	assert.Equal(t, []string{
		"Belém Tower", "Great", "Loved it", "4.0", "", "", "", "ann", "", "12", "", "https://example.com/p1",
	}, row)

	r.Rating = ptr(4.5)
	assert.Equal(t, "4.5", r.CSVRow()[3])
}

func TestWithAttractionKeepsOriginal(t *testing.T) {
	r := Review{URL: "u"}
	annotated := r.WithAttraction("X")
	assert.Nil(t, r.Attraction)
	assert.Equal(t, ptr("X"), annotated.Attraction)
	assert.Nil(t, r.WithAttraction("").Attraction)
}

func TestReviewJSONKeepsAbsentFields(t *testing.T) {
	b, err := json.Marshal(Review{Title: ptr("t"), URL: "u"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"title":"t","text":null,"rating":null,"travel_date":null,"written_date":null,
		"language":null,"author":null,"location":null,"contribution_count":null,"helpful_votes":null,"url":"u"}`, string(b))
}

func TestToDocumentID(t *testing.T) {
	r := Review{Title: ptr("t"), Author: ptr("a"), URL: "u"}
	a := r.ToDocument(time.Unix(0, 0))
	b := r.ToDocument(time.Unix(100, 0))
	assert.Equal(t, a.ID, b.ID)
	assert.Len(t, a.ID, 40)
	assert.Equal(t, "t\n", a.GetEmbeddingString())
	assert.NotEqual(t, a.ID, Review{Title: ptr("t"), URL: "u2"}.ToDocument(time.Unix(0, 0)).ID)
}
