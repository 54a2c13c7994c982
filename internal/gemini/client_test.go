package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bessie-ai/bessie/internal/transcript"
)

const replyBody = `{"candidates":[{"content":{"parts":[{"text":"hello"}]}}]}`

// capturingServer records the last request it served and replies with the
// given status and body.
func capturingServer(t *testing.T, status int, body string) (*httptest.Server, *http.Request, *bytes.Buffer) {
	t.Helper()
	var captured http.Request
	var capturedBody bytes.Buffer
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured = *r
		_, _ = capturedBody.ReadFrom(r.Body)
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv, &captured, &capturedBody
}

func newTestClient(baseURL string, logOut *bytes.Buffer) *Client {
	if logOut == nil {
		logOut = &bytes.Buffer{}
	}
	return New(Config{
		BaseURL: baseURL,
		Timeout: 2 * time.Second,
		Logger:  zerolog.New(logOut),
	})
}

func TestGenerateReplyFreshConversationRequestShape(t *testing.T) {
	srv, req, body := capturingServer(t, http.StatusOK, replyBody)
	client := newTestClient(srv.URL, nil)

	reply, ok := client.GenerateReply(context.Background(), "test-key", "hi", nil)
	require.True(t, ok)
	assert.Equal(t, "hello", reply)

	assert.Equal(t, http.MethodPost, req.Method)
	assert.Equal(t, "/models/gemini-2.0-flash:generateContent", req.URL.Path)
	assert.Equal(t, "test-key", req.URL.Query().Get("key"))
	assert.Equal(t, "application/json", req.Header.Get("Content-Type"))

	var sent generateRequest
	require.NoError(t, json.Unmarshal(body.Bytes(), &sent))
	require.Len(t, sent.Contents, 1)
	assert.Equal(t, "user", sent.Contents[0].Role)
	require.Len(t, sent.Contents[0].Parts, 1)
	assert.Equal(t, PersonaPrompt+"\n\nUser: hi", sent.Contents[0].Parts[0].Text)
}

func TestGenerateReplyReplaysHistoryInOrder(t *testing.T) {
	srv, _, body := capturingServer(t, http.StatusOK, replyBody)
	client := newTestClient(srv.URL, nil)

	history := []transcript.Turn{
		{Role: transcript.RoleUser, Content: "first"},
		{Role: transcript.RoleAssistant, Content: "second"},
		{Role: transcript.RoleUser, Content: "third"},
		{Role: transcript.RoleAssistant, Content: "fourth"},
	}

	_, ok := client.GenerateReply(context.Background(), "k", "fifth", history)
	require.True(t, ok)

	var sent generateRequest
	require.NoError(t, json.Unmarshal(body.Bytes(), &sent))
	require.Len(t, sent.Contents, 5)

	wantRoles := []string{"user", "assistant", "user", "assistant", "user"}
	wantTexts := []string{"first", "second", "third", "fourth", "fifth"}
	for i, c := range sent.Contents {
		assert.Equal(t, wantRoles[i], c.Role, "content %d", i)
		require.Len(t, c.Parts, 1, "content %d", i)
		assert.Equal(t, wantTexts[i], c.Parts[0].Text, "content %d", i)
	}

	// The persona prompt only belongs in a fresh conversation.
	assert.NotContains(t, body.String(), "You are Bessie")
}

func TestGenerateReplyHTTPErrorLogsBody(t *testing.T) {
	srv, _, _ := capturingServer(t, http.StatusTooManyRequests, `{"error":"quota exceeded"}`)
	var logOut bytes.Buffer
	client := newTestClient(srv.URL, &logOut)

	_, ok := client.GenerateReply(context.Background(), "k", "hi", nil)
	assert.False(t, ok)
	assert.Contains(t, logOut.String(), "quota exceeded")
	assert.Contains(t, logOut.String(), "429")
}

func TestGenerateReplyEmptyOrMalformedResponse(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "no candidates", body: `{"candidates":[]}`},
		{name: "missing parts", body: `{"candidates":[{"content":{}}]}`},
		{name: "empty text", body: `{"candidates":[{"content":{"parts":[{"text":""}]}}]}`},
		{name: "not json", body: `<html>gateway error</html>`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, _, _ := capturingServer(t, http.StatusOK, tt.body)
			var logOut bytes.Buffer
			client := newTestClient(srv.URL, &logOut)

			_, ok := client.GenerateReply(context.Background(), "k", "hi", nil)
			assert.False(t, ok)
			assert.Contains(t, logOut.String(), "empty response")
		})
	}
}

func TestGenerateReplyTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		_, _ = w.Write([]byte(replyBody))
	}))
	t.Cleanup(srv.Close)

	var logOut bytes.Buffer
	client := New(Config{
		BaseURL: srv.URL,
		Timeout: 20 * time.Millisecond,
		Logger:  zerolog.New(&logOut),
	})

	_, ok := client.GenerateReply(context.Background(), "k", "hi", nil)
	assert.False(t, ok)
	assert.Contains(t, logOut.String(), "generation request failed")
}

func TestGenerateReplyEscapesAPIKey(t *testing.T) {
	srv, req, _ := capturingServer(t, http.StatusOK, replyBody)
	client := newTestClient(srv.URL, nil)

	_, ok := client.GenerateReply(context.Background(), "k&ey=1", "hi", nil)
	require.True(t, ok)
	assert.Equal(t, "k&ey=1", req.URL.Query().Get("key"))
}
