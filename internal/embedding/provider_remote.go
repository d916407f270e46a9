package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// RemoteConfig configures a RemoteProvider's HTTP call, grounded on the
// teacher's internal/embedding/client.go wire shape
// ({model, input} -> {data:[{embedding}]}), which the remote-embedding
// provider hand-rolls rather than depending on an LLM provider SDK (see
// SPEC_FULL.md's "DOMAIN STACK" notes on why openai-go isn't wired here).
type RemoteConfig struct {
	BaseURL   string
	Path      string
	Model     string
	Dimension int
	APIKey    string
	APIHeader string // "Authorization" for Bearer, else a literal header name
	Timeout   time.Duration
}

// RemoteProvider embeds text by POSTing to an OpenAI-embeddings-compatible
// endpoint.
type RemoteProvider struct {
	cfg    RemoteConfig
	client *http.Client
}

func NewRemoteProvider(cfg RemoteConfig) *RemoteProvider {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &RemoteProvider{cfg: cfg, client: &http.Client{Timeout: cfg.Timeout}}
}

func (p *RemoteProvider) Name() string   { return p.cfg.Model }
func (p *RemoteProvider) Dimension() int { return p.cfg.Dimension }

// Concurrent reports that outer batches may be dispatched in parallel: each
// call is an independent HTTP round trip, so overlapping them hides latency
// instead of contending for a shared resource.
func (p *RemoteProvider) Concurrent() bool { return true }

type embedReq struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type embedResp struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
}

func (p *RemoteProvider) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, fmt.Errorf("embedding: no inputs")
	}

	reqBody, err := json.Marshal(embedReq{Model: p.cfg.Model, Input: texts})
	if err != nil {
		return nil, fmt.Errorf("embedding: marshal request: %w", err)
	}

	url := p.cfg.BaseURL + p.cfg.Path
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(reqBody))
	if err != nil {
		return nil, fmt.Errorf("embedding: build request: %w", err)
	}
	if p.cfg.APIHeader == "Authorization" {
		req.Header.Set("Authorization", "Bearer "+p.cfg.APIKey)
	} else if p.cfg.APIHeader != "" {
		req.Header.Set(p.cfg.APIHeader, p.cfg.APIKey)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("embedding: request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("embedding: read response: %w", err)
	}
	if resp.StatusCode/100 != 2 {
		return nil, fmt.Errorf("embedding: endpoint returned %s: %s", resp.Status, truncate(body, 200))
	}

	var er embedResp
	if err := json.Unmarshal(body, &er); err != nil {
		return nil, fmt.Errorf("embedding: parse response (input count %d, body %s): %w", len(texts), truncate(body, 200), err)
	}
	if len(er.Data) != len(texts) {
		return nil, fmt.Errorf("embedding: got %d embeddings, want %d", len(er.Data), len(texts))
	}

	out := make([][]float32, len(er.Data))
	for i := range er.Data {
		out[i] = er.Data[i].Embedding
	}
	return out, nil
}

// CheckReachability sends a small test request to confirm the endpoint is up.
func (p *RemoteProvider) CheckReachability(ctx context.Context) error {
	_, err := p.EmbedBatch(ctx, []string{"ping"})
	if err != nil {
		return fmt.Errorf("embedding: reachability check failed: %w", err)
	}
	return nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n])
}
