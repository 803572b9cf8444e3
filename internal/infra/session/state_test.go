package session

import (
	"net/http"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFile(t *testing.T) {
	st, err := Load(filepath.Join(t.TempDir(), "nope.json"))
	require.NoError(t, err)
	assert.Nil(t, st)

	st, err = Load("")
	require.NoError(t, err)
	assert.Nil(t, st)
}

func TestSaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "shared", "ta_state.json")
	in := &State{Cookies: []Cookie{
		{Name: "datadome", Value: "abc", Domain: ".tripadvisor.com", Path: "/", Expires: 1893456000.5, Secure: true, SameSite: "Lax"},
		{Name: "TASession", Value: "xyz", Domain: "www.tripadvisor.com", Path: "/", Expires: -1},
	}}
	require.NoError(t, Save(path, in))

	out, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, in.Cookies, out.Cookies)
	assert.Empty(t, out.Origins)
	assert.Equal(t, []string{".tripadvisor.com", "www.tripadvisor.com"}, out.Domains())

	hc := out.HTTPCookies()
	require.Len(t, hc, 2)
	assert.Equal(t, http.SameSiteLaxMode, hc[0].SameSite)
	assert.Equal(t, int64(1893456000), hc[0].Expires.Unix())
	assert.True(t, hc[1].Expires.IsZero())
}

func TestSaveRejectsEmptyPath(t *testing.T) {
	assert.Error(t, Save("", &State{}))
}
