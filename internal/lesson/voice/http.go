package voice

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// HTTPOption configures an HTTP synthesis backend.
type HTTPOption func(*httpBackend)

// WithEndpoint overrides the backend URL.
func WithEndpoint(url string) HTTPOption {
	return func(b *httpBackend) { b.endpoint = url }
}

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(c *http.Client) HTTPOption {
	return func(b *httpBackend) { b.client = c }
}

// WithModel selects the backend model.
func WithModel(model string) HTTPOption {
	return func(b *httpBackend) {
		if model != "" {
			b.model = model
		}
	}
}

// WithLanguage sets the target language code.
func WithLanguage(lang string) HTTPOption {
	return func(b *httpBackend) {
		if lang != "" {
			b.language = lang
		}
	}
}

type httpBackend struct {
	name     string
	endpoint string
	model    string
	language string
	client   *http.Client
	headers  map[string]string
	log      *logrus.Entry
}

func newHTTPBackend(name, endpoint, model string, opts []HTTPOption) httpBackend {
	b := httpBackend{
		name:     name,
		endpoint: endpoint,
		model:    model,
		client:   &http.Client{Timeout: 60 * time.Second},
		headers:  make(map[string]string),
		log:      logrus.WithFields(logrus.Fields{"component": "voice", "backend": name}),
	}
	for _, o := range opts {
		o(&b)
	}
	return b
}

// post sends payload as JSON and returns the response body.
func (b *httpBackend) post(ctx context.Context, payload any) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("%s: encode request: %w", b.name, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%s: build request: %w", b.name, err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range b.headers {
		req.Header.Set(k, v)
	}

	start := time.Now()
	resp, err := b.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: request failed: %w", b.name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("%s: HTTP %d: %s", b.name, resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%s: read response: %w", b.name, err)
	}

	b.log.WithFields(logrus.Fields{
		"bytes":   len(data),
		"elapsed": time.Since(start).Round(time.Millisecond),
	}).Debug("synthesis complete")
	return data, nil
}
