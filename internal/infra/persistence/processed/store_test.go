package processed

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const u1 = "https://www.tripadvisor.com/Attraction_Review-g1-d1-Reviews"
const u2 = "https://www.tripadvisor.com/Attraction_Review-g1-d2-Reviews"
const u3 = "https://www.tripadvisor.com/Attraction_Review-g1-d3-Reviews"

func exercise(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()

	ok, err := s.Contains(ctx, u1)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Add(ctx, u1))
	require.NoError(t, s.Add(ctx, u1))

	ok, err = s.Contains(ctx, u1)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = s.Contains(ctx, u2)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestFileStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "processed_urls.txt")
	require.NoError(t, os.WriteFile(path, []byte(u3+"\n\n"), 0o644))

	s, err := OpenFile(path)
	require.NoError(t, err)
	assert.Equal(t, 1, s.Len())
	exercise(t, s)
	require.NoError(t, s.Close())

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, u3+"\n\n"+u1+"\n", string(b))

	reopened, err := OpenFile(path)
	require.NoError(t, err)
	defer reopened.Close()
	for _, u := range []string{u1, u3} {
		ok, err := reopened.Contains(context.Background(), u)
		require.NoError(t, err)
		assert.True(t, ok, u)
	}
}

func TestRedisStore(t *testing.T) {
	mr := miniredis.RunT(t)
	c := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	s := NewFromClient(c, "reviewcrawler:processed")
	defer s.Close()

	exercise(t, s)

	members, err := mr.Members("reviewcrawler:processed")
	require.NoError(t, err)
	assert.Equal(t, []string{u1}, members)
}

func TestNewRedisUnreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	_, err := NewRedis(context.Background(), addr, "", 0, "k")
	assert.Error(t, err)
}
