// Package client is the worker's and operator's HTTP view of the job API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/joshu-sajeev/dailygist/common"
	"github.com/joshu-sajeev/dailygist/internal/dto"
)

type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

func New(baseURL, token string, hc *http.Client) *Client {
	if hc == nil {
		hc = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), token: token, http: hc}
}

// Claim asks the API for the oldest queued job. It returns nil, nil when
// nothing is available.
func (c *Client) Claim(ctx context.Context, workerID string) (*dto.ClaimedJobDTO, error) {
	var out dto.ClaimResponseDTO
	if err := c.post(ctx, "/api/jobs/claim", dto.ClaimRequestDTO{WorkerID: workerID}, &out); err != nil {
		return nil, err
	}
	if !out.Available {
		return nil, nil
	}
	return out.Job, nil
}

func (c *Client) MarkReady(ctx context.Context, id, workerID, resultRef string) (bool, error) {
	return c.applied(ctx, id, "ready", dto.MarkReadyDTO{WorkerID: workerID, ResultRef: resultRef})
}

func (c *Client) MarkFailed(ctx context.Context, id, workerID, detail string) (bool, error) {
	return c.applied(ctx, id, "failed", dto.MarkFailedDTO{WorkerID: workerID, Error: detail})
}

func (c *Client) ReportProgress(ctx context.Context, id, workerID, stage string) (bool, error) {
	return c.applied(ctx, id, "progress", dto.ProgressDTO{WorkerID: workerID, Stage: stage})
}

// Reconcile resets stale jobs on the server. The timeout is rounded up to
// whole minutes.
func (c *Client) Reconcile(ctx context.Context, timeout time.Duration) (int, error) {
	minutes := int((timeout + time.Minute - 1) / time.Minute)
	q := url.Values{"timeout_minutes": {strconv.Itoa(minutes)}}

	var out dto.ReconcileResponseDTO
	if err := c.post(ctx, "/api/cron/reconcile?"+q.Encode(), nil, &out); err != nil {
		return 0, err
	}
	return out.ResetCount, nil
}

// Run triggers one scheduler pass on the server.
func (c *Client) Run(ctx context.Context) (*dto.TriggerResponseDTO, error) {
	var out dto.TriggerResponseDTO
	if err := c.post(ctx, "/api/cron/trigger", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) applied(ctx context.Context, id, action string, body any) (bool, error) {
	var out dto.AppliedDTO
	if err := c.post(ctx, "/api/jobs/"+url.PathEscape(id)+"/"+action, body, &out); err != nil {
		return false, err
	}
	return out.Applied, nil
}

func (c *Client) post(ctx context.Context, path string, body, out any) error {
	var reader io.Reader = http.NoBody
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.token)

	res, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("POST %s: %w", path, err)
	}
	defer res.Body.Close()

	if res.StatusCode >= 300 {
		apiErr := common.APIError{Status: res.StatusCode}
		if err := json.NewDecoder(io.LimitReader(res.Body, 4096)).Decode(&apiErr); err != nil || apiErr.Message == "" {
			apiErr.Message = http.StatusText(res.StatusCode)
		}
		return apiErr
	}

	if err := json.NewDecoder(res.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}
