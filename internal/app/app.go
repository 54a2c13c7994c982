// Package app wires the credential loader, transcript store, and model
// client together for a single invocation: one message in, one reply out.
package app

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/bessie-ai/bessie/internal/credential"
	"github.com/bessie-ai/bessie/internal/transcript"
)

// Failure modes that abort the invocation. The command layer maps any error
// from Run to exit code 1; none of them ever produce stdout output.
var (
	ErrEmptyMessage = errors.New("no message provided")
	ErrNoCredential = errors.New("no API key available")
	ErrNoReply      = errors.New("no response from generation API")
)

// ReplyGenerator is the model client seen by the orchestrator. A false result
// means no usable reply; the client has already logged why.
type ReplyGenerator interface {
	GenerateReply(ctx context.Context, apiKey, userMessage string, history []transcript.Turn) (string, bool)
}

// KeyResolver supplies the API key, or false when no source yields one.
type KeyResolver func() (string, bool)

// App runs one request/response pass. All collaborators are injected so
// tests can run it against in-memory fakes.
type App struct {
	Store  transcript.Store
	Client ReplyGenerator
	Keys   KeyResolver
	Log    zerolog.Logger
	Stdout io.Writer

	// Now stamps the appended turns; defaults to time.Now.
	Now func() time.Time
}

// Run performs a full round trip for message. On success the reply is printed
// to Stdout and both new turns are persisted; on failure nothing is printed
// and the transcript file is left untouched.
func (a *App) Run(ctx context.Context, message string) error {
	if strings.TrimSpace(message) == "" {
		a.Log.Error().Msg("no message provided")
		return ErrEmptyMessage
	}

	history, err := a.Store.Load()
	if err != nil {
		// Degrade to a fresh conversation rather than fail the invocation.
		a.Log.Warn().Err(err).Msg("could not load conversation history")
		history = nil
	}

	apiKey, ok := a.Keys()
	if !ok {
		a.Log.Error().Msgf("%s not found", credential.EnvVar)
		return ErrNoCredential
	}

	reply, ok := a.Client.GenerateReply(ctx, apiKey, message, history)
	if !ok {
		a.Log.Error().Msg("no response from generation API")
		return ErrNoReply
	}

	now := a.now()
	history = append(history,
		transcript.Turn{Role: transcript.RoleUser, Content: message, Timestamp: now},
		transcript.Turn{Role: transcript.RoleAssistant, Content: reply, Timestamp: now},
	)
	if err := a.Store.Save(history); err != nil {
		// Persistence is best effort; the reply still goes out.
		a.Log.Warn().Err(err).Msg("could not save conversation history")
	}

	fmt.Fprintln(a.Stdout, reply)
	a.Log.Info().Msgf("response sent: %s", preview(reply, 50))
	return nil
}

func (a *App) now() time.Time {
	if a.Now != nil {
		return a.Now()
	}
	return time.Now()
}

func preview(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "..."
}
