// Package ai is the boundary to the external content generation provider.
// Generation always runs outside session lanes; callers feed the returned
// content back through the engine as an ordinary system change, so provider
// latency never blocks a session.
package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// Kind names a generation request category.
type Kind string

const (
	// KindNarration requests scene or flavor text posted into the transcript.
	KindNarration Kind = "narration"
	// KindCharacter requests character background text.
	KindCharacter Kind = "character"
	// KindNPC requests NPC description text.
	KindNPC Kind = "npc"
	// KindMilestone requests milestone summary text.
	KindMilestone Kind = "milestone"
)

// NormalizeKind validates and canonicalizes a kind value.
func NormalizeKind(kind string) (Kind, error) {
	normalized := Kind(strings.ToLower(strings.TrimSpace(kind)))
	switch normalized {
	case KindNarration, KindCharacter, KindNPC, KindMilestone:
		return normalized, nil
	}
	return "", fmt.Errorf("kind %q is invalid", kind)
}

// Request is one generation call.
type Request struct {
	Kind   Kind
	Prompt string
	// Context carries session facts the provider may weave into the content
	// (location, weather, present NPCs).
	Context map[string]string
}

// Provider generates content for a session.
type Provider interface {
	Generate(ctx context.Context, req Request) (string, error)
}

// HTTPConfig configures the remote generate endpoint.
type HTTPConfig struct {
	URL        string
	Token      string
	HTTPClient *http.Client
}

// HTTPProvider calls a remote generate endpoint with a JSON body.
type HTTPProvider struct {
	cfg HTTPConfig
}

// NewHTTPProvider creates a provider that POSTs to the configured URL.
func NewHTTPProvider(cfg HTTPConfig) *HTTPProvider {
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = http.DefaultClient
	}
	return &HTTPProvider{cfg: cfg}
}

type generateRequest struct {
	Kind    string            `json:"kind"`
	Prompt  string            `json:"prompt"`
	Context map[string]string `json:"context,omitempty"`
}

type generateResponse struct {
	Content string `json:"content"`
}

// Generate calls the remote endpoint and returns the trimmed content.
func (p *HTTPProvider) Generate(ctx context.Context, req Request) (string, error) {
	endpoint := strings.TrimSpace(p.cfg.URL)
	if endpoint == "" {
		return "", fmt.Errorf("generate url is required")
	}
	kind, err := NormalizeKind(string(req.Kind))
	if err != nil {
		return "", err
	}
	prompt := strings.TrimSpace(req.Prompt)
	if prompt == "" {
		return "", fmt.Errorf("prompt is required")
	}

	body, err := json.Marshal(generateRequest{
		Kind:    string(kind),
		Prompt:  prompt,
		Context: req.Context,
	})
	if err != nil {
		return "", fmt.Errorf("marshal generate request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build generate request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	// Credential material is sent only as an Authorization header and is
	// never echoed in errors or response payloads.
	if token := strings.TrimSpace(p.cfg.Token); token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+token)
	}

	res, err := p.cfg.HTTPClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("generate request failed: %w", err)
	}
	defer res.Body.Close()
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		errBody, err := io.ReadAll(io.LimitReader(res.Body, 4096))
		if err != nil {
			return "", fmt.Errorf("read generate error body: %w", err)
		}
		return "", fmt.Errorf("generate request status %d: %s", res.StatusCode, strings.TrimSpace(string(errBody)))
	}

	var payload generateResponse
	if err := json.NewDecoder(res.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("decode generate response: %w", err)
	}
	content := strings.TrimSpace(payload.Content)
	if content == "" {
		return "", fmt.Errorf("generate response missing content")
	}
	return content, nil
}
