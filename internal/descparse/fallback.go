package descparse

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// HTTPFallback asks a semantic-parsing service to read a description the
// regex could not. Requests are traced and fully context-controlled; the
// shared client carries no timeout of its own.
type HTTPFallback struct {
	endpoint string
	client   *http.Client
	tracer   trace.Tracer
}

// NewHTTPFallback creates a fallback client for the given parse endpoint.
func NewHTTPFallback(endpoint string) *HTTPFallback {
	return &HTTPFallback{
		endpoint: endpoint,
		client: &http.Client{
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 100,
			},
		},
		tracer: otel.Tracer("descparse"),
	}
}

type fallbackRequest struct {
	Description string `json:"description"`
}

type fallbackResponse struct {
	MinimumSpend float64 `json:"minimum_spend"`
	RewardAmount float64 `json:"reward_amount"`
}

// Parse implements Fallback.
func (f *HTTPFallback) Parse(ctx context.Context, description string) (float64, float64, error) {
	ctx, span := f.tracer.Start(ctx, "descparse.fallback", trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()
	span.SetAttributes(attribute.String("parse.endpoint", f.endpoint))

	body, err := json.Marshal(fallbackRequest{Description: description})
	if err != nil {
		return 0, 0, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, f.endpoint, bytes.NewReader(body))
	if err != nil {
		span.RecordError(err)
		return 0, 0, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return 0, 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		err := fmt.Errorf("semantic parser returned status %d", resp.StatusCode)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return 0, 0, err
	}

	var parsed fallbackResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		span.RecordError(err)
		return 0, 0, fmt.Errorf("failed to decode parser response: %w", err)
	}
	return parsed.MinimumSpend, parsed.RewardAmount, nil
}
