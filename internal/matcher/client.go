// Package matcher talks to the external semantic matching service.
// The service receives an offer plus the full catalog summary and must
// answer with one of the catalog identifiers it was given, or null.
package matcher

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"strings"
	"time"

	"offerhub/internal/config"
)

type Client struct {
	cfg        config.Config
	httpClient *http.Client
	limiter    *throttle
}

type OfferFields struct {
	ProductName string  `json:"productName"`
	SKU         *string `json:"sku"`
	Description *string `json:"description"`
}

type CatalogProduct struct {
	ID       string         `json:"id"`
	Name     string         `json:"name"`
	SKU      string         `json:"sku"`
	Category *string        `json:"category"`
	Specs    map[string]any `json:"specs"`
}

type matchRequest struct {
	Offer   OfferFields      `json:"offer"`
	Catalog []CatalogProduct `json:"catalog"`
}

type MatchResponse struct {
	ProductID  *string `json:"productId"`
	Confidence float64 `json:"confidence"`
	Reasoning  string  `json:"reasoning"`
}

func NewClient(cfg config.Config) *Client {
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: time.Duration(cfg.MatcherTimeoutMs) * time.Millisecond},
		limiter:    newThrottle(cfg.MatcherRateLimitRPS),
	}
}

// Match asks the service for the best catalog candidate. The caller is
// responsible for validating the returned identifier against the
// catalog it supplied.
func (c *Client) Match(ctx context.Context, offer OfferFields, catalog []CatalogProduct) (MatchResponse, error) {
	payload, err := json.Marshal(matchRequest{Offer: offer, Catalog: catalog})
	if err != nil {
		return MatchResponse{}, err
	}

	endpoint := strings.TrimRight(c.cfg.MatcherBaseURL, "/") + "/match"

	var lastErr error
	for attempt := 1; attempt <= 3; attempt++ {
		if err := c.limiter.wait(ctx); err != nil {
			return MatchResponse{}, err
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
		if err != nil {
			return MatchResponse{}, err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Accept", "application/json")
		if c.cfg.MatcherAPIKey != "" {
			req.Header.Set("Authorization", "Bearer "+c.cfg.MatcherAPIKey)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = err
			if ctx.Err() != nil {
				return MatchResponse{}, ctx.Err()
			}
			continue
		}

		body, readErr := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		if readErr != nil {
			lastErr = readErr
			continue
		}

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			if isRetryableStatus(resp.StatusCode) && attempt < 3 {
				backoff := time.Duration(250*(1<<(attempt-1))+rand.Intn(100)) * time.Millisecond
				time.Sleep(backoff)
				lastErr = fmt.Errorf("matcher status %d", resp.StatusCode)
				continue
			}
			return MatchResponse{}, fmt.Errorf("matcher api error: status=%d body=%s", resp.StatusCode, string(body))
		}

		return parseMatchResponse(body)
	}

	if lastErr == nil {
		lastErr = errors.New("matcher request failed")
	}
	return MatchResponse{}, lastErr
}

// parseMatchResponse tolerates LLM-backed services that wrap their
// JSON in markdown code fences or answer "null" as a string.
func parseMatchResponse(body []byte) (MatchResponse, error) {
	text := strings.TrimSpace(string(body))
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	text = strings.TrimSpace(text)

	var out MatchResponse
	if err := json.Unmarshal([]byte(text), &out); err != nil {
		return MatchResponse{}, fmt.Errorf("malformed matcher response: %w", err)
	}
	if out.ProductID != nil && (strings.TrimSpace(*out.ProductID) == "" || *out.ProductID == "null") {
		out.ProductID = nil
	}
	if out.Confidence < 0 {
		out.Confidence = 0
	}
	if out.Confidence > 1 {
		out.Confidence = 1
	}
	return out, nil
}

func isRetryableStatus(status int) bool {
	switch status {
	case 429, 500, 502, 503, 504:
		return true
	default:
		return false
	}
}
