// Package gemini is a minimal client for the generativelanguage
// generateContent endpoint. It makes exactly one attempt per invocation and
// reports failure as an absent reply rather than an error, so the caller only
// ever has to branch on success.
package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog"
	"github.com/tidwall/gjson"

	"github.com/bessie-ai/bessie/internal/transcript"
)

const (
	// DefaultBaseURL is the hosted generation API.
	DefaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"

	// DefaultModel is the model used when none is configured.
	DefaultModel = "gemini-2.0-flash"

	// DefaultTimeout bounds the single blocking network call.
	DefaultTimeout = 10 * time.Second
)

// PersonaPrompt seeds a fresh conversation. The API used here has no separate
// system-role field, so it is folded into the first user message.
const PersonaPrompt = `You are Bessie, Vinod's personal AI assistant accessible via iMessage.
Be helpful, concise, and conversational. Keep responses brief for mobile reading (2-4 sentences max unless detail is specifically requested).
You have full context of the conversation history.
Identify yourself as Bessie when appropriate.`

// Config holds client construction options. Zero values fall back to the
// package defaults.
type Config struct {
	BaseURL string
	Model   string
	Timeout time.Duration

	// AllowInsecureTLS permits the unverified-TLS fallback when no trust
	// store can be resolved. Off by default; see ResolveTransport.
	AllowInsecureTLS bool

	Logger zerolog.Logger
}

// Client performs generateContent calls against a fixed model and endpoint.
type Client struct {
	baseURL string
	model   string
	http    *http.Client
	log     zerolog.Logger
}

// New builds a client, resolving the TLS trust context once up front.
func New(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}

	return &Client{
		baseURL: cfg.BaseURL,
		model:   cfg.Model,
		http: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: ResolveTransport(cfg.AllowInsecureTLS, cfg.Logger),
		},
		log: cfg.Logger,
	}
}

// content mirrors the API's two-party chat message shape.
type content struct {
	Role  string `json:"role"`
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generateRequest struct {
	Contents []content `json:"contents"`
}

// GenerateReply sends the stored history plus the new user message and
// returns the first candidate's text. The bool result is false whenever no
// usable reply was obtained; the cause is logged, never returned.
func (c *Client) GenerateReply(ctx context.Context, apiKey, userMessage string, history []transcript.Turn) (string, bool) {
	body, err := json.Marshal(generateRequest{Contents: buildContents(userMessage, history)})
	if err != nil {
		c.log.Error().Err(err).Msg("could not encode generation request")
		return "", false
	}

	endpoint := fmt.Sprintf("%s/models/%s:generateContent?key=%s",
		c.baseURL, c.model, url.QueryEscape(apiKey))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		c.log.Error().Err(err).Msg("could not build generation request")
		return "", false
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Error().Err(err).Msg("generation request failed")
		return "", false
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		c.log.Error().Err(err).Msg("could not read generation response")
		return "", false
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		c.log.Error().
			Int("status", resp.StatusCode).
			Str("body", string(respBody)).
			Msg("generation API error")
		return "", false
	}

	text := gjson.GetBytes(respBody, "candidates.0.content.parts.0.text")
	if !text.Exists() || text.String() == "" {
		c.log.Warn().Msg("generation API returned empty response")
		return "", false
	}
	return text.String(), true
}

// buildContents assembles the outgoing message list. A fresh conversation
// gets a single synthetic user turn that folds the persona prompt in with the
// message; otherwise every stored turn is replayed in order and the new user
// turn appended. Only the user and assistant roles are ever sent.
func buildContents(userMessage string, history []transcript.Turn) []content {
	if len(history) == 0 {
		return []content{{
			Role:  string(transcript.RoleUser),
			Parts: []part{{Text: PersonaPrompt + "\n\nUser: " + userMessage}},
		}}
	}

	out := make([]content, 0, len(history)+1)
	for _, turn := range history {
		out = append(out, content{
			Role:  string(turn.Role),
			Parts: []part{{Text: turn.Content}},
		})
	}
	return append(out, content{
		Role:  string(transcript.RoleUser),
		Parts: []part{{Text: userMessage}},
	})
}
