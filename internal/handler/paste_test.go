package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mzhang055/twirl/internal/events"
	"github.com/mzhang055/twirl/internal/extract"
	"github.com/mzhang055/twirl/internal/paste"
	"github.com/mzhang055/twirl/internal/session"
	"github.com/mzhang055/twirl/internal/store"
	"github.com/mzhang055/twirl/pkg/logger"
)

const conversationalText = "User: Can you explain goroutines to me in detail?\n" +
	"AI: Sure, a goroutine is a lightweight thread managed by the Go runtime.\n" +
	"User: Thanks, that helps a lot!"

func newPasteFixture(t *testing.T) (*chi.Mux, *session.Manager) {
	t.Helper()
	log := logger.NewNop()
	st := store.New(store.NewMemoryKV(), 10, log)
	sessions := session.NewManager(st, st, extract.NewManualScheduler(), session.DefaultIdleTimeout, log)
	t.Cleanup(sessions.CloseAll)

	h := NewPasteHandler(sessions, paste.NewMonitor(st, log), events.NewPublisher(nil, log), log)
	r := chi.NewRouter()
	r.Post("/api/v1/paste", h.Paste)
	return r, sessions
}

func postPaste(t *testing.T, r http.Handler, body map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/paste", bytes.NewReader(raw))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestPasteDedupeScopedToSession(t *testing.T) {
	r, sessions := newPasteFixture(t)

	s1, err := sessions.Create(context.Background(), "https://chat.example.org/a")
	require.NoError(t, err)
	s2, err := sessions.Create(context.Background(), "https://chat.example.org/b")
	require.NoError(t, err)

	w := postPaste(t, r, map[string]string{
		"text": conversationalText, "url": s1.PageURL, "session_id": s1.ID,
	})
	assert.Equal(t, http.StatusCreated, w.Code)

	// The same text on another page is a fresh capture, not a duplicate.
	w = postPaste(t, r, map[string]string{
		"text": conversationalText, "url": s2.PageURL, "session_id": s2.ID,
	})
	assert.Equal(t, http.StatusCreated, w.Code)

	// Repeating it on the first page is.
	w = postPaste(t, r, map[string]string{
		"text": conversationalText, "url": s1.PageURL, "session_id": s1.ID,
	})
	assert.Equal(t, http.StatusOK, w.Code)
	var resp map[string]bool
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp["conversational"])
	assert.True(t, resp["duplicate"])
}

func TestPasteUnknownSession(t *testing.T) {
	r, _ := newPasteFixture(t)
	w := postPaste(t, r, map[string]string{
		"text": conversationalText, "url": "https://chat.example.org/a", "session_id": "nope",
	})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestPasteWithoutSessionUsesSharedMonitor(t *testing.T) {
	r, _ := newPasteFixture(t)

	w := postPaste(t, r, map[string]string{
		"text": conversationalText, "url": "https://notes.example.org/doc",
	})
	assert.Equal(t, http.StatusCreated, w.Code)

	w = postPaste(t, r, map[string]string{
		"text": conversationalText, "url": "https://notes.example.org/doc",
	})
	assert.Equal(t, http.StatusOK, w.Code)
	var resp map[string]bool
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp["duplicate"])
}

func TestPasteRejectsNonConversational(t *testing.T) {
	r, _ := newPasteFixture(t)
	w := postPaste(t, r, map[string]string{
		"text": "just a plain block of text pasted into a field, nothing conversational about it",
		"url":  "https://notes.example.org/doc",
	})
	assert.Equal(t, http.StatusOK, w.Code)
	var resp map[string]bool
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.False(t, resp["conversational"])
}
