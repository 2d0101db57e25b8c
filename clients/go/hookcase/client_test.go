package hookcase

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, h http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	t.Setenv("HOOKCASE_CONFIG", t.TempDir())
	return NewClient(srv.URL)
}

func TestSendDecodesPending(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "POST", r.Method)
		assert.Equal(t, "/threads/general/messages", r.URL.Path)

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "hi", body["text"])

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusAccepted)
		w.Write([]byte(`{"pending":{"id":"01J","text":"hi","submitted_at":1},"view":[{"id":"01J","text":"hi","sending":true}]}`))
	}))

	resp, err := c.Send(DefaultThread, "hi")
	require.NoError(t, err)
	assert.Equal(t, "01J", resp.Pending.ID)
	require.Len(t, resp.View, 1)
	assert.True(t, resp.View[0].Sending)
}

func TestErrorResponse(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		w.Write([]byte(`{"error":"form is already submitting"}`))
	}))

	_, err := c.CreatePost("t", "b", true)
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusConflict, apiErr.Status)
	assert.Equal(t, "hookcase error 409: form is already submitting", err.Error())
}

func TestSessionCookieIsKept(t *testing.T) {
	var seen []string
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ck, err := r.Cookie(SessionCookie); err == nil {
			seen = append(seen, ck.Value)
		} else {
			http.SetCookie(w, &http.Cookie{Name: SessionCookie, Value: "sess-1", Path: "/"})
		}
		w.Write([]byte(`{"mode":"dark","button_label":"Switch to Light Mode"}`))
	}))

	_, err := c.ToggleTheme()
	require.NoError(t, err)
	card, err := c.Theme()
	require.NoError(t, err)

	assert.Equal(t, "dark", card.Mode)
	assert.Equal(t, []string{"sess-1"}, seen)
	assert.Equal(t, "sess-1", c.SessionID())

	require.NoError(t, c.SaveSession())
	restored := NewClient(c.BaseURL)
	assert.Equal(t, "sess-1", restored.SessionID())
}

func TestSnippetReturnsText(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/snippets/useOptimistic", r.URL.Path)
		w.Header().Set("Content-Type", "text/plain")
		w.Write([]byte("const [optimistic, addOptimistic] = useOptimistic(messages);\n"))
	}))

	text, err := c.Snippet("useOptimistic")
	require.NoError(t, err)
	assert.Contains(t, text, "useOptimistic(messages)")
}

func TestSearchFlush(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "true", r.URL.Query().Get("flush"))
		w.Write([]byte(`{"live":"an","deferred":"an","stale":false,"results":["Banana","Mango"]}`))
	}))

	snap, err := c.SearchResults(true)
	require.NoError(t, err)
	assert.False(t, snap.Stale)
	assert.Equal(t, []string{"Banana", "Mango"}, snap.Results)
}
