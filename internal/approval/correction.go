package approval

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// HTTPCorrectionForwarder POSTs reviewer corrections to the training
// service, retrying transient failures with an exponential backoff.
type HTTPCorrectionForwarder struct {
	Endpoint string
	Client   *http.Client
	MaxRetry time.Duration
}

// NewHTTPCorrectionForwarder builds a forwarder with a 10s HTTP timeout and a
// 30s total retry budget.
func NewHTTPCorrectionForwarder(endpoint string) *HTTPCorrectionForwarder {
	return &HTTPCorrectionForwarder{
		Endpoint: endpoint,
		Client:   &http.Client{Timeout: 10 * time.Second},
		MaxRetry: 30 * time.Second,
	}
}

type correctionPayload struct {
	AgentID           string    `json:"agent_id"`
	TaskID            string    `json:"task_id"`
	CorrectionContent string    `json:"correction_content"`
	CorrectionType    string    `json:"correction_type"`
	CreatedAt         time.Time `json:"created_at"`
}

// Forward POSTs the correction, retrying 5xx/network errors with
// cenkalti/backoff's exponential strategy; 4xx responses are not retried.
func (f *HTTPCorrectionForwarder) Forward(ctx context.Context, taskID, agentID, correction string) error {
	body, err := json.Marshal(correctionPayload{
		AgentID:           agentID,
		TaskID:            taskID,
		CorrectionContent: correction,
		CorrectionType:    "approval_review",
		CreatedAt:         time.Now(),
	})
	if err != nil {
		return fmt.Errorf("marshal correction payload: %w", err)
	}

	policy := backoff.WithContext(backoff.WithMaxElapsedTime(backoff.NewExponentialBackOff(), f.MaxRetry), ctx)

	return backoff.Retry(func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, f.Endpoint, bytes.NewReader(body))
		if err != nil {
			return backoff.Permanent(err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := f.Client.Do(req)
		if err != nil {
			return err // network error: retry
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 500 {
			return fmt.Errorf("training service returned %d", resp.StatusCode)
		}
		if resp.StatusCode >= 400 {
			return backoff.Permanent(fmt.Errorf("training service rejected correction: %d", resp.StatusCode))
		}
		return nil
	}, policy)
}
