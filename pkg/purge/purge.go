// Package purge invalidates cached content on the CDN through the
// Cloudflare purge_cache API.
package purge

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

	"cdnheaders/pkg/metrics"
)

const (
	DefaultBaseURL = "https://api.cloudflare.com/client/v4"
	DefaultTimeout = 30 * time.Second
)

var (
	ErrMissingCredentials = errors.New("cloudflare zone id and api token are required")
	ErrNothingToPurge     = errors.New("no urls to purge and purge everything not requested")
)

// APIError is a failed purge call. Messages holds one entry per error the
// API reported.
type APIError struct {
	StatusCode int
	Messages   []string
}

func (e *APIError) Error() string {
	if len(e.Messages) == 0 {
		return fmt.Sprintf("cloudflare purge failed: status %d", e.StatusCode)
	}
	return fmt.Sprintf("cloudflare purge failed: status %d: %s", e.StatusCode, strings.Join(e.Messages, "; "))
}

// Request selects what to purge. Everything wins over URLs.
type Request struct {
	URLs       []string
	Everything bool
}

// Result describes a successful purge.
type Result struct {
	Everything bool
	URLs       []string
	ID         string
}

type Options struct {
	BaseURL    string
	Timeout    time.Duration
	HTTPClient *http.Client
}

type Client struct {
	zoneID  string
	token   string
	baseURL string
	timeout time.Duration
	http    *http.Client
}

func New(zoneID, token string, opts Options) (*Client, error) {
	if strings.TrimSpace(zoneID) == "" || strings.TrimSpace(token) == "" {
		return nil, ErrMissingCredentials
	}
	c := &Client{
		zoneID:  zoneID,
		token:   token,
		baseURL: strings.TrimRight(opts.BaseURL, "/"),
		timeout: opts.Timeout,
		http:    opts.HTTPClient,
	}
	if c.baseURL == "" {
		c.baseURL = DefaultBaseURL
	}
	if c.timeout <= 0 {
		c.timeout = DefaultTimeout
	}
	if c.http == nil {
		c.http = http.DefaultClient
	}
	return c, nil
}

type purgeBody struct {
	Files           []string `json:"files,omitempty"`
	PurgeEverything bool     `json:"purge_everything,omitempty"`
}

type apiResponse struct {
	Success *bool `json:"success"`
	Errors  []struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"errors"`
	Result struct {
		ID string `json:"id"`
	} `json:"result"`
}

// Purge issues one purge call. It does not retry.
func (c *Client) Purge(ctx context.Context, req Request) (*Result, error) {
	var body purgeBody
	if req.Everything {
		body.PurgeEverything = true
	} else {
		for _, u := range req.URLs {
			if u = strings.TrimSpace(u); u != "" {
				body.Files = append(body.Files, u)
			}
		}
		if len(body.Files) == 0 {
			return nil, ErrNothingToPurge
		}
	}

	res, err := c.do(ctx, body)
	if err != nil {
		metrics.PurgeRequests.WithLabelValues("error").Inc()
		return nil, err
	}
	metrics.PurgeRequests.WithLabelValues("success").Inc()
	return res, nil
}

func (c *Client) do(ctx context.Context, body purgeBody) (*Result, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encode purge body: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	url := c.baseURL + "/zones/" + c.zoneID + "/purge_cache"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("new purge request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.token)
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("communicate with cloudflare api: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read purge response: %w", err)
	}

	// a 2xx body that isn't JSON still counts as success
	var parsed apiResponse
	decoded := json.Unmarshal(data, &parsed) == nil
	rejected := decoded && parsed.Success != nil && !*parsed.Success

	if resp.StatusCode < 200 || resp.StatusCode > 299 || rejected {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		for _, e := range parsed.Errors {
			msg := e.Message
			if msg == "" {
				msg = "Unknown error"
			}
			apiErr.Messages = append(apiErr.Messages, msg)
		}
		return nil, apiErr
	}

	return &Result{
		Everything: body.PurgeEverything,
		URLs:       body.Files,
		ID:         parsed.Result.ID,
	}, nil
}
