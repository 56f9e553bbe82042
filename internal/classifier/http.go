package classifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/dib506676/TicketMate/internal/config"
	"github.com/dib506676/TicketMate/internal/domain"
)

// HTTPClassifier calls an external classification endpoint. The endpoint
// receives the ticket title and description and answers with a Suggestion
// JSON document. Which model or prompt sits behind the endpoint is the
// endpoint's business.
type HTTPClassifier struct {
	endpoint string
	apiKey   string
	client   *http.Client
}

// NewHTTPClassifier builds a classifier client from config.
func NewHTTPClassifier(cfg config.ClassifierConfig) *HTTPClassifier {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &HTTPClassifier{
		endpoint: cfg.Endpoint,
		apiKey:   cfg.APIKey,
		client:   &http.Client{Timeout: timeout},
	}
}

type classifyRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// Classify posts the ticket text to the endpoint and decodes the suggestion.
func (c *HTTPClassifier) Classify(ctx context.Context, ticket *domain.Ticket) (*Suggestion, error) {
	body, err := json.Marshal(classifyRequest{Title: ticket.Title, Description: ticket.Description})
	if err != nil {
		return nil, fmt.Errorf("encode classify request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build classify request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("classify call: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("classify call: unexpected status %d", resp.StatusCode)
	}

	var suggestion Suggestion
	if err := json.NewDecoder(resp.Body).Decode(&suggestion); err != nil {
		return nil, fmt.Errorf("decode suggestion: %w", err)
	}
	return &suggestion, nil
}
