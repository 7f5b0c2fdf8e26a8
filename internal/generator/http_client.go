package generator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

const defaultRequestTimeout = 30 * time.Second

// httpGenerator calls an external instance-generator service over HTTP.
type httpGenerator struct {
	baseURL string
	client  *http.Client
}

// NewHTTPGenerator creates a Generator backed by the service at baseURL.
func NewHTTPGenerator(baseURL string, timeout time.Duration) Generator {
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}
	return &httpGenerator{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

// Generate POSTs the request to the generator service and decodes its plan.
func (g *httpGenerator) Generate(ctx context.Context, req GenerationRequest) (*GeneratedPlan, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("%w: encode request: %v", ErrGenerationFailed, err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/generate", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %v", ErrGenerationFailed, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("X-Request-ID", uuid.NewString())

	resp, err := g.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGenerationFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		// Read a little of the body for the log, the caller only gets the code.
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		log.WithFields(log.Fields{
			"status": resp.StatusCode,
			"body":   string(snippet),
		}).Error("generator service returned non-200")
		return nil, fmt.Errorf("%w: generator returned status %d", ErrGenerationFailed, resp.StatusCode)
	}

	var plan GeneratedPlan
	if err := json.NewDecoder(resp.Body).Decode(&plan); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", ErrGenerationFailed, err)
	}
	if len(plan.Exercises) == 0 {
		return nil, ErrEmptyPlan
	}
	return &plan, nil
}
