/**
 * Copyright 2025-present Coinbase Global, Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *  http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/The-x-35/vibegame-sub000/internal/models"
	"github.com/The-x-35/vibegame-sub000/internal/txerrors"

	"github.com/tidwall/gjson"
	"go.uber.org/zap"
	"golang.org/x/net/http2"
)

const defaultMaxBodyBytes = 1 << 20

// NewHTTPClient returns the pooled client shared by every upstream.
func NewHTTPClient(cfg models.UpstreamConfig) (*http.Client, error) {
	tr := &http.Transport{
		ResponseHeaderTimeout: 30 * time.Second,
		Proxy:                 http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			KeepAlive: 30 * time.Second,
			Timeout:   15 * time.Second,
		}).DialContext,
		MaxIdleConns:          50,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		MaxIdleConnsPerHost:   10,
		ExpectContinueTimeout: 5 * time.Second,
	}

	if err := http2.ConfigureTransport(tr); err != nil {
		return nil, err
	}

	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	return &http.Client{
		Transport: tr,
		Timeout:   timeout,
	}, nil
}

// Client performs JSON calls against one named upstream.
type Client struct {
	name         string
	httpClient   *http.Client
	maxBodyBytes int64
	callerAuth   bool
}

// Response is a fully read upstream reply.
type Response struct {
	StatusCode int
	Body       []byte
}

func NewClient(name string, httpClient *http.Client, maxBodyBytes int64) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if maxBodyBytes <= 0 {
		maxBodyBytes = defaultMaxBodyBytes
	}
	return &Client{name: name, httpClient: httpClient, maxBodyBytes: maxBodyBytes}
}

// ForwardsCallerCredential marks an upstream that authenticates the caller
// rather than this service, so 401 and 403 mean the caller is unauthenticated.
func (c *Client) ForwardsCallerCredential() *Client {
	cp := *c
	cp.callerAuth = true
	return &cp
}

// Name returns the upstream name used in errors.
func (c *Client) Name() string {
	return c.name
}

// Do sends a request with an optional JSON body and reads the reply. Transport
// failures come back as upstream-unavailable errors; HTTP status codes are
// left for the caller to interpret.
func (c *Client) Do(ctx context.Context, method, url string, headers map[string]string, body any) (*Response, error) {
	op := c.name + " " + method

	var bodyReader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		bodyReader = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, bodyReader)
	if err != nil {
		return nil, txerrors.Unavailable(c.name, op, "failed to create request", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		zap.L().Warn("Upstream request failed",
			zap.String("upstream", c.name),
			zap.String("method", method),
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err))
		return nil, txerrors.Unavailable(c.name, op, "request failed", err)
	}
	defer resp.Body.Close()

	data, truncated, err := ReadAllWithLimit(resp.Body, c.maxBodyBytes)
	if err != nil {
		return nil, txerrors.Unavailable(c.name, op, "failed to read response body", err)
	}
	if truncated {
		return nil, txerrors.Unavailable(c.name, op, fmt.Sprintf("response body exceeds %d bytes", c.maxBodyBytes), nil)
	}

	zap.L().Debug("Upstream request completed",
		zap.String("upstream", c.name),
		zap.String("method", method),
		zap.Int("status", resp.StatusCode),
		zap.Duration("elapsed", time.Since(start)))

	return &Response{StatusCode: resp.StatusCode, Body: data}, nil
}

// StatusError turns a non-2xx reply into the error taxonomy. 401 and 403 are
// unauthenticated when the caller's credential was forwarded and a service
// misconfiguration otherwise. Other 4xx are explicit rejections carrying the
// upstream's own message; everything else is unavailability.
func (c *Client) StatusError(op string, resp *Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	msg := ErrorMessage(resp.Body)
	if msg == "" {
		msg = http.StatusText(resp.StatusCode)
	}

	switch {
	case (resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden) && !c.callerAuth:
		zap.L().Error("Upstream refused service credentials",
			zap.String("upstream", c.name),
			zap.Int("status", resp.StatusCode))
		return txerrors.Unavailable(c.name, op, "upstream refused service credentials", fmt.Errorf("status %d: %s", resp.StatusCode, msg))
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		e := txerrors.New(txerrors.KindUnauthenticated, op, msg)
		e.Upstream = c.name
		return e
	case resp.StatusCode == http.StatusRequestTimeout || resp.StatusCode == http.StatusTooManyRequests:
		return txerrors.Unavailable(c.name, op, msg, fmt.Errorf("status %d", resp.StatusCode))
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		return txerrors.Rejected(c.name, op, msg)
	}
	return txerrors.Unavailable(c.name, op, msg, fmt.Errorf("status %d", resp.StatusCode))
}

// Decode unmarshals a 2xx body into target. Bodies that are not JSON are
// malformed responses, reported as unavailability.
func (c *Client) Decode(op string, resp *Response, target any) error {
	if err := json.Unmarshal(resp.Body, target); err != nil {
		return txerrors.Unavailable(c.name, op, "malformed response", err)
	}
	return nil
}

// Malformed reports a response that parsed but violates the expected schema.
func (c *Client) Malformed(op, detail string) error {
	return txerrors.Unavailable(c.name, op, "malformed response: "+detail, nil)
}

// ErrorMessage extracts a human-readable message from an upstream error
// body. Plain text bodies are returned trimmed.
func ErrorMessage(body []byte) string {
	if len(bytes.TrimSpace(body)) == 0 {
		return ""
	}
	if !gjson.ValidBytes(body) {
		return strings.TrimSpace(string(body))
	}
	for _, path := range []string{"message", "error.message", "error", "msg", "detail"} {
		if r := gjson.GetBytes(body, path); r.Exists() && r.Type == gjson.String && r.String() != "" {
			return r.String()
		}
	}
	return ""
}

// ReadAllWithLimit reads up to limit bytes and reports whether more remained.
func ReadAllWithLimit(r io.Reader, limit int64) ([]byte, bool, error) {
	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, false, err
	}
	if int64(len(data)) > limit {
		return data[:limit], true, nil
	}
	return data, false, nil
}
