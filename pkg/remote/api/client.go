// Copyright 2025 walteh LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
	"github.com/walteh/fileops/pkg/model"
	"github.com/walteh/fileops/pkg/remote"
	"gitlab.com/tozd/go/errors"
)

const (
	basePath = "/file-operations"

	// maxBodySize caps how much of a response body is read
	maxBodySize = 8 << 20
)

// HTTPDoer is the part of *http.Client the client needs
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient replaces the default http.Client
func WithHTTPClient(doer HTTPDoer) Option {
	return func(c *Client) {
		c.http = doer
	}
}

// WithToken sends a bearer token on every request
func WithToken(token string) Option {
	return func(c *Client) {
		c.token = token
	}
}

// WithUserAgent sets the User-Agent header
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		c.userAgent = ua
	}
}

// 🌐 Client implements remote.Client over the backend REST API
type Client struct {
	baseURL   *url.URL
	http      HTTPDoer
	token     string
	userAgent string
}

var _ remote.Client = (*Client)(nil)

// New creates a client rooted at baseURL (e.g. http://host:8000/api)
func New(baseURL string, opts ...Option) (*Client, error) {
	if baseURL == "" {
		return nil, errors.Errorf("empty base url")
	}
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, errors.Errorf("parsing base url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, errors.Errorf("invalid base url %q: scheme must be http or https", baseURL)
	}
	if u.Host == "" {
		return nil, errors.Errorf("invalid base url %q: missing host", baseURL)
	}

	c := &Client{
		baseURL:   u,
		http:      http.DefaultClient,
		userAgent: "fileops",
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// BaseURL returns the URL the client is rooted at
func (c *Client) BaseURL() string {
	return c.baseURL.String()
}

// CreateOperation implements remote.Client
func (c *Client) CreateOperation(ctx context.Context, req model.CreateRequest) (*model.Operation, error) {
	if err := req.Validate(); err != nil {
		return nil, &remote.ArgumentError{Op: "create operation", Err: err}
	}

	var op model.Operation
	if err := c.do(ctx, http.MethodPost, basePath, nil, req, &op); err != nil {
		return nil, errors.Errorf("creating operation: %w", err)
	}
	if err := c.checkOperation(http.MethodPost, basePath, &op); err != nil {
		return nil, err
	}
	return &op, nil
}

// ValidateOperation implements remote.Client
func (c *Client) ValidateOperation(ctx context.Context, id string) (*model.ValidationResult, error) {
	p, err := operationPath(id, "validate")
	if err != nil {
		return nil, err
	}

	var res model.ValidationResult
	if err := c.do(ctx, http.MethodPost, p, nil, nil, &res); err != nil {
		return nil, errors.Errorf("validating operation %s: %w", id, err)
	}
	if err := res.Validate(); err != nil {
		return nil, &remote.TransportError{Method: http.MethodPost, Path: p, Err: errors.Errorf("malformed validation result: %w", err)}
	}
	return &res, nil
}

// ExecuteOperation implements remote.Client
func (c *Client) ExecuteOperation(ctx context.Context, id string, req model.ExecuteRequest) (*model.Operation, error) {
	p, err := operationPath(id, "execute")
	if err != nil {
		return nil, err
	}

	var op model.Operation
	if err := c.do(ctx, http.MethodPost, p, nil, req, &op); err != nil {
		return nil, errors.Errorf("executing operation %s: %w", id, err)
	}
	if err := c.checkOperation(http.MethodPost, p, &op); err != nil {
		return nil, err
	}
	return &op, nil
}

// RollbackOperation implements remote.Client
func (c *Client) RollbackOperation(ctx context.Context, id string) (*model.Operation, error) {
	p, err := operationPath(id, "rollback")
	if err != nil {
		return nil, err
	}

	var op model.Operation
	if err := c.do(ctx, http.MethodPost, p, nil, nil, &op); err != nil {
		return nil, errors.Errorf("rolling back operation %s: %w", id, err)
	}
	if err := c.checkOperation(http.MethodPost, p, &op); err != nil {
		return nil, err
	}
	return &op, nil
}

// GetOperation implements remote.Client
func (c *Client) GetOperation(ctx context.Context, id string) (*model.Operation, error) {
	p, err := operationPath(id, "")
	if err != nil {
		return nil, err
	}

	var op model.Operation
	if err := c.do(ctx, http.MethodGet, p, nil, nil, &op); err != nil {
		return nil, errors.Errorf("getting operation %s: %w", id, err)
	}
	if err := c.checkOperation(http.MethodGet, p, &op); err != nil {
		return nil, err
	}
	return &op, nil
}

// ListOperations implements remote.Client
func (c *Client) ListOperations(ctx context.Context, filter model.ListFilter) (*model.ListResult, error) {
	q := url.Values{}
	if filter.Status != "" {
		q.Set("status_filter", string(filter.Status))
	}
	if filter.Kind != "" {
		q.Set("operation_type_filter", string(filter.Kind))
	}
	if filter.Limit > 0 {
		q.Set("limit", strconv.Itoa(filter.Limit))
	}
	if filter.Offset > 0 {
		q.Set("offset", strconv.Itoa(filter.Offset))
	}

	var res model.ListResult
	if err := c.do(ctx, http.MethodGet, basePath, q, nil, &res); err != nil {
		return nil, errors.Errorf("listing operations: %w", err)
	}
	for i := range res.Operations {
		if err := c.checkOperation(http.MethodGet, basePath, &res.Operations[i]); err != nil {
			return nil, err
		}
	}
	return &res, nil
}

// CleanupOldOperations implements remote.Client
func (c *Client) CleanupOldOperations(ctx context.Context, daysOld int) (*model.CleanupResult, error) {
	if daysOld < 0 {
		return nil, &remote.ArgumentError{Op: "cleanup operations", Err: errors.Errorf("days old must not be negative: %d", daysOld)}
	}

	q := url.Values{}
	q.Set("days_old", strconv.Itoa(daysOld))

	p := basePath + "/cleanup"
	var res model.CleanupResult
	if err := c.do(ctx, http.MethodDelete, p, q, nil, &res); err != nil {
		return nil, errors.Errorf("cleaning up operations: %w", err)
	}
	return &res, nil
}

// operationPath builds the escaped path /file-operations/{id}[/action]. The
// id always stays a single path segment.
func operationPath(id, action string) (string, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return "", &remote.ArgumentError{Op: "operation path", Err: errors.New("empty operation id")}
	}
	p := basePath + "/" + url.PathEscape(id)
	if action != "" {
		p += "/" + action
	}
	return p, nil
}

// checkOperation rejects records that break the operation invariants
func (c *Client) checkOperation(method, p string, op *model.Operation) error {
	if err := op.Validate(); err != nil {
		return &remote.TransportError{Method: method, Path: p, Err: errors.Errorf("malformed operation: %w", err)}
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, p string, query url.Values, body, out any) error {
	logger := zerolog.Ctx(ctx)

	u := *c.baseURL
	u.RawPath = c.baseURL.EscapedPath() + p
	unescaped, err := url.PathUnescape(u.RawPath)
	if err != nil {
		return errors.Errorf("building path %q: %w", p, err)
	}
	u.Path = unescaped
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return errors.Errorf("encoding request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), reader)
	if err != nil {
		return errors.Errorf("building request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	logger.Debug().Str("method", method).Str("url", u.String()).Msg("calling backend")

	resp, err := c.http.Do(req)
	if err != nil {
		return &remote.TransportError{Method: method, Path: p, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return &remote.TransportError{Method: method, Path: p, Err: errors.Errorf("reading response: %w", err)}
	}

	logger.Debug().Str("method", method).Str("path", p).Int("status", resp.StatusCode).Msg("backend responded")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeAPIError(method, p, resp.StatusCode, data)
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return &remote.TransportError{Method: method, Path: p, Err: errors.Errorf("decoding response: %w", err)}
	}
	return nil
}

// errorBody covers the shapes error bodies come in: {"detail": "..."},
// {"detail": [{"msg": "..."}]} and {"message": "..."}
type errorBody struct {
	Detail  json.RawMessage `json:"detail"`
	Message string          `json:"message"`
}

func decodeAPIError(method, p string, status int, data []byte) error {
	aerr := &remote.APIError{
		Method:     method,
		Path:       p,
		StatusCode: status,
		Message:    remote.GenericMessage(status),
	}

	var body errorBody
	if len(bytes.TrimSpace(data)) == 0 || json.Unmarshal(data, &body) != nil {
		aerr.Malformed = true
		return aerr
	}

	if msg := detailMessage(body.Detail); msg != "" {
		aerr.Message = msg
	} else if body.Message != "" {
		aerr.Message = body.Message
	}
	return aerr
}

func detailMessage(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}

	var items []struct {
		Msg string `json:"msg"`
	}
	if err := json.Unmarshal(raw, &items); err == nil {
		msgs := make([]string, 0, len(items))
		for _, it := range items {
			if it.Msg != "" {
				msgs = append(msgs, it.Msg)
			}
		}
		return strings.Join(msgs, "; ")
	}
	return ""
}
