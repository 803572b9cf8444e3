package output

import (
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/LouYuanbo1/reviewcrawler/internal/domain/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr[T any](v T) *T { return &v }

func reviews() []model.Review {
	return []model.Review{
		model.Review{Title: ptr("Great, really"), Rating: ptr(5.0), URL: "https://example.com/p1"}.WithAttraction("Belém Tower"),
		model.Review{Text: ptr("line one\nline two"), HelpfulVotes: ptr(2), URL: "https://example.com/p2"},
	}
}

func TestCSVAppenderWritesHeaderOnce(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.csv")
	a := NewCSVAppender(path)
	require.NoError(t, a.Append(reviews()))
	require.NoError(t, a.Append(reviews()[:1]))
	require.NoError(t, a.Append(nil))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)

	require.Len(t, rows, 4)
	assert.Equal(t, model.CSVHeader, rows[0])
	assert.Equal(t, "Great, really", rows[1][1])
	assert.Equal(t, "5.0", rows[1][3])
	assert.Equal(t, "line one\nline two", rows[2][2])
	assert.Equal(t, "", rows[2][0])
	assert.Equal(t, "2", rows[2][10])
	assert.Equal(t, rows[1], rows[3])
}

func TestCSVAppenderEmptyExistingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.csv")
	require.NoError(t, os.WriteFile(path, nil, 0o644))
	require.NoError(t, NewCSVAppender(path).Append(reviews()[:1]))

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(b), strings.Join(model.CSVHeader, ",")+"\n"))
}

func TestJSONLAppender(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.jsonl")
	a := NewJSONLAppender(path)
	require.NoError(t, a.Append(reviews()))
	require.NoError(t, a.Append(reviews()[1:]))

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(b)), "\n")
	require.Len(t, lines, 3)

	var got model.Review
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &got))
	assert.Equal(t, reviews()[0], got)
	assert.Contains(t, lines[1], `"title":null`)
}

func TestWriteJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "links.json")
	require.NoError(t, WriteJSON(path, map[string]any{"count": 2}))
	require.NoError(t, WriteJSON(path, map[string]any{"count": 3}))

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.JSONEq(t, `{"count":3}`, string(b))

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}
