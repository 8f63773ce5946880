package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// Options configures the HTTP enhancer client.
type Options struct {
	Endpoint   string
	APIKey     string
	HTTPClient *http.Client
	Timeout    time.Duration
}

// Client calls a remote enhancement service over HTTP.
type Client struct {
	httpClient *http.Client
	endpoint   string
	token      string
}

func NewClient(opts Options) (*Client, error) {
	endpoint := strings.TrimRight(strings.TrimSpace(opts.Endpoint), "/")
	if endpoint == "" {
		return nil, errors.New("ai: enhancer endpoint is required")
	}
	client := opts.HTTPClient
	if client == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 120 * time.Second
		}
		client = &http.Client{Timeout: timeout}
	}
	return &Client{
		httpClient: client,
		endpoint:   endpoint,
		token:      strings.TrimSpace(opts.APIKey),
	}, nil
}

type enhanceRequest struct {
	VideoID  string  `json:"video_id"`
	Title    string  `json:"title,omitempty"`
	Source   string  `json:"source"`
	Duration float64 `json:"duration,omitempty"`
}

type enhanceResponse struct {
	Transcript string          `json:"transcript"`
	AIScript   string          `json:"ai_script"`
	Captions   json.RawMessage `json:"captions"`
	Cuts       json.RawMessage `json:"cuts"`
	Voiceover  string          `json:"voiceover"`
	ZoomPoints json.RawMessage `json:"zoom_points"`
	Error      string          `json:"error"`
}

func (c *Client) Enhance(ctx context.Context, req Request) (*Result, error) {
	if c == nil {
		return nil, errors.New("ai: client not configured")
	}
	payload := enhanceRequest{
		VideoID:  req.VideoID,
		Title:    req.Title,
		Source:   req.Source,
		Duration: req.Duration,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+"/v1/enhance", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("ai: enhance request: %w", err)
	}
	defer resp.Body.Close()

	var out enhanceResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		if resp.StatusCode >= http.StatusBadRequest {
			return nil, fmt.Errorf("ai: http %d", resp.StatusCode)
		}
		return nil, fmt.Errorf("ai: decode response: %w", err)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		if out.Error != "" {
			return nil, fmt.Errorf("ai: %s", out.Error)
		}
		return nil, fmt.Errorf("ai: http %d", resp.StatusCode)
	}
	if out.Transcript == "" {
		return nil, errors.New("ai: empty enhancement result")
	}
	return &Result{
		Transcript: out.Transcript,
		AIScript:   out.AIScript,
		Captions:   out.Captions,
		Cuts:       out.Cuts,
		Voiceover:  out.Voiceover,
		ZoomPoints: out.ZoomPoints,
	}, nil
}

var _ Enhancer = (*Client)(nil)
