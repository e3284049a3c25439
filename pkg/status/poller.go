// Package status is a small client for the job API: create a generation
// job, poll its snapshot until it reaches a terminal phase, cancel it.
package status

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

var (
	ErrNotFound    = errors.New("job not found")
	ErrRateLimited = errors.New("rate limited")
)

// DefaultPollInterval matches the UI polling cadence.
const DefaultPollInterval = 2 * time.Second

// Snapshot mirrors the server's poll payload.
type Snapshot struct {
	JobID       string `json:"job_id"`
	Status      string `json:"status"`
	Phase       string `json:"phase"`
	Percentage  int    `json:"percentage"`
	CurrentStep string `json:"current_step"`

	ArticleID    string `json:"article_id,omitempty"`
	ProviderUsed string `json:"provider_used,omitempty"`
	WordCount    int    `json:"word_count,omitempty"`
	SEOScore     int    `json:"seo_score,omitempty"`
	Error        string `json:"error,omitempty"`

	EstimatedTimeRemaining int64 `json:"estimated_time_remaining_seconds"`
}

// Terminal reports whether polling can stop.
func (s *Snapshot) Terminal() bool { return s.Phase == "completed" || s.Phase == "error" }

// CreateRequest is the body for creating a job.
type CreateRequest struct {
	TopicID           string   `json:"topic_id,omitempty"`
	Topic             string   `json:"topic"`
	Keywords          []string `json:"keywords,omitempty"`
	Tone              string   `json:"tone,omitempty"`
	TargetWords       int      `json:"target_words,omitempty"`
	PreferredProvider string   `json:"preferred_provider,omitempty"`
	SkipOptimize      bool     `json:"skip_optimize,omitempty"`
}

type Client struct {
	base     string
	hc       *http.Client
	interval time.Duration
}

func NewClient(baseURL string) *Client {
	return &Client{
		base:     strings.TrimRight(baseURL, "/"),
		hc:       &http.Client{Timeout: 10 * time.Second},
		interval: DefaultPollInterval,
	}
}

// WithInterval overrides the polling cadence, mostly for tests.
func (c *Client) WithInterval(d time.Duration) *Client {
	if d > 0 {
		c.interval = d
	}
	return c
}

// Create submits a generation job and returns its initial snapshot.
func (c *Client) Create(ctx context.Context, req CreateRequest) (*Snapshot, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+"/api/v1/jobs", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.hc.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	switch resp.StatusCode {
	case http.StatusCreated:
		return decodeSnapshot(resp.Body)
	case http.StatusTooManyRequests:
		return nil, ErrRateLimited
	default:
		return nil, unexpectedStatus(resp)
	}
}

// Get fetches the current snapshot.
func (c *Client) Get(ctx context.Context, jobID string) (*Snapshot, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+"/api/v1/jobs/"+jobID, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.hc.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	switch resp.StatusCode {
	case http.StatusOK:
		return decodeSnapshot(resp.Body)
	case http.StatusNotFound:
		return nil, ErrNotFound
	default:
		return nil, unexpectedStatus(resp)
	}
}

// Cancel requests cooperative cancellation.
func (c *Client) Cancel(ctx context.Context, jobID string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.base+"/api/v1/jobs/"+jobID, nil)
	if err != nil {
		return err
	}
	resp, err := c.hc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	switch resp.StatusCode {
	case http.StatusNoContent, http.StatusConflict:
		return nil
	case http.StatusNotFound:
		return ErrNotFound
	default:
		return unexpectedStatus(resp)
	}
}

// Poll fetches the snapshot on the configured interval until the job turns
// terminal or the context ends. onUpdate, when non-nil, observes every
// snapshot including the terminal one.
func (c *Client) Poll(ctx context.Context, jobID string, onUpdate func(*Snapshot)) (*Snapshot, error) {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		snap, err := c.Get(ctx, jobID)
		if err != nil {
			return nil, err
		}
		if onUpdate != nil {
			onUpdate(snap)
		}
		if snap.Terminal() {
			return snap, nil
		}
		select {
		case <-ctx.Done():
			return snap, ctx.Err()
		case <-ticker.C:
		}
	}
}

func decodeSnapshot(r io.Reader) (*Snapshot, error) {
	var snap Snapshot
	if err := json.NewDecoder(r).Decode(&snap); err != nil {
		return nil, err
	}
	return &snap, nil
}

func unexpectedStatus(resp *http.Response) error {
	b, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
	return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
}
