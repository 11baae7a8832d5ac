package httpserver

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"cdnheaders/internal/config"
)

const defaultServiceTimeout = 5 * time.Second

type backendResponse struct {
	Status int
	Header http.Header
	Body   []byte
}

type backendCall struct {
	Method   string
	Path     string
	RawQuery string
	Header   http.Header
	Body     io.Reader
}

func serviceTimeout(svc config.Service) time.Duration {
	if svc.Timeout != "" {
		if d, err := time.ParseDuration(svc.Timeout); err == nil && d > 0 {
			return d
		}
	}
	return defaultServiceTimeout
}

// doHTTPCall calls svc within its timeout and reads the whole response.
func doHTTPCall(ctx context.Context, client *http.Client, svc config.Service, call backendCall) (*backendResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, serviceTimeout(svc))
	defer cancel()

	base, err := parseBaseURL(svc.ProxyURL)
	if err != nil {
		return nil, fmt.Errorf("invalid proxy_url %q: %w", svc.ProxyURL, err)
	}

	target := *base
	target.Path = singleJoinPath(base.Path, call.Path)
	target.RawQuery = call.RawQuery

	method := call.Method
	if method == "" {
		method = http.MethodGet
	}

	req, err := http.NewRequestWithContext(ctx, method, target.String(), call.Body)
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}
	for k, vals := range call.Header {
		req.Header[k] = vals
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	return &backendResponse{Status: resp.StatusCode, Header: resp.Header, Body: data}, nil
}
