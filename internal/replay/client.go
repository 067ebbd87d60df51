package replay

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

const userAgent = "Benchmark Client"

// GenerateRequest is the wire payload for the server's /generate endpoint.
// Decoding parameters are fixed for deterministic replay: a single greedy
// sample, no beam search, no early stop on EOS, no streaming negotiation.
type GenerateRequest struct {
	Prompt        string  `json:"prompt"`
	N             int     `json:"n"`
	BestOf        int     `json:"best_of"`
	UseBeamSearch bool    `json:"use_beam_search"`
	Temperature   float64 `json:"temperature"`
	TopP          float64 `json:"top_p"`
	MaxTokens     int     `json:"max_tokens"`
	IgnoreEOS     bool    `json:"ignore_eos"`
	Stream        bool    `json:"stream"`
}

// NewGenerateRequest builds the fixed-parameter payload for a prompt.
func NewGenerateRequest(prompt string, maxTokens int) GenerateRequest {
	return GenerateRequest{
		Prompt:        prompt,
		N:             1,
		BestOf:        1,
		UseBeamSearch: false,
		Temperature:   1.0,
		TopP:          1.0,
		MaxTokens:     maxTokens,
		IgnoreEOS:     false,
		Stream:        false,
	}
}

// GenerateResponse is the server's reply. Timestamps are Unix seconds, one
// per emitted token. A non-empty Error field marks an application-level
// failure.
type GenerateResponse struct {
	Text           string          `json:"text"`
	Timestamps     []float64       `json:"timestamps"`
	LifetimeEvents json.RawMessage `json:"lifetime_events,omitempty"`
	Error          string          `json:"error,omitempty"`
}

// Client issues single generate attempts against one endpoint. Each attempt
// gets its own transport so concurrent requests never share a connection;
// this trades connection reuse for isolation, which is what a load generator
// wants.
type Client struct {
	url string
}

// NewClient creates a client for the given /generate URL.
func NewClient(url string) *Client {
	return &Client{url: url}
}

// URL returns the endpoint this client targets.
func (c *Client) URL() string {
	return c.url
}

// Do performs one generate attempt. The response body is read in full and
// reassembled before parsing; the server may chunk it but the client never
// needs incremental display. Errors are classified for the retry loop:
// transport failures come back as-is, unparseable bodies as
// *MalformedResponseError, and parsed bodies with an "error" field as
// *ApplicationError.
func (c *Client) Do(ctx context.Context, payload GenerateRequest) (*GenerateResponse, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", userAgent)

	transport := &http.Transport{}
	defer transport.CloseIdleConnections()
	client := &http.Client{Transport: transport}

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	var out GenerateResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, &MalformedResponseError{Body: string(raw), Err: err}
	}
	if out.Error != "" {
		return nil, &ApplicationError{Message: out.Error}
	}
	return &out, nil
}
