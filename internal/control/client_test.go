package control

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/five82/notebook/internal/state"
)

func TestParseBaseURL_DefaultsAndNormalizes(t *testing.T) {
	u, err := parseBaseURL("")
	require.NoError(t, err)
	assert.Equal(t, "http", u.Scheme)
	assert.Equal(t, DefaultListen, u.Host)

	u, err = parseBaseURL("http://example.com:1234/path?x=1#frag")
	require.NoError(t, err)
	assert.Empty(t, u.Path)
	assert.Empty(t, u.RawQuery)
	assert.Empty(t, u.Fragment)
}

func TestClient_SendsUserAgentAndReportsStatus(t *testing.T) {
	var gotUA, gotContentType string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		gotContentType = r.Header.Get("Content-Type")
		writeError(w, http.StatusInternalServerError, "boom")
	}))
	defer srv.Close()

	c, err := NewClient(srv.URL)
	require.NoError(t, err)
	_, err = c.Setup(context.Background(), SetupRequest{ForceManual: true})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 500: boom")
	assert.Equal(t, defaultUserAgent, gotUA)
	assert.Equal(t, "application/json", gotContentType)
}

func TestClient_NilClient(t *testing.T) {
	var c *Client
	_, err := c.FetchStatus(context.Background())
	require.Error(t, err)
}

func TestStatusResponseRoundTrip(t *testing.T) {
	st := state.SyncStatus{
		IsEnabled: true,
		IsSetup:   true,
		LastSync:  time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC),
		SyncCount: 4,
		Backend:   "sandboxed",
		State:     state.StateActive,
		Phase:     state.PhaseIdle,
	}
	assert.Equal(t, st, NewStatusResponse(st).SyncStatus())

	empty := NewStatusResponse(state.DefaultStatus())
	assert.Nil(t, empty.LastSync)
	assert.False(t, empty.SyncStatus().HasSynced())
}
