// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
)

// Content types understood by PostgREST.
const (
	contentTypeJSON   = "application/json"
	contentTypeObject = "application/vnd.pgrst.object+json"

	// maxErrorBody bounds how much of an error response is read.
	maxErrorBody = 64 << 10
)

// RESTOptions configures a RESTClient.
type RESTOptions struct {
	// URL is the project URL, e.g. https://xyz.supabase.co
	URL string

	// Key is sent as both apikey and bearer token.
	Key string

	// Timeout bounds a single call. Zero means no timeout.
	Timeout time.Duration

	// HTTPClient overrides the default transport.
	HTTPClient *http.Client
}

// RESTClient talks to a PostgREST (Supabase) endpoint.
// A client built without URL or Key is valid; every call then fails
// with a RemoteError instead of failing at startup.
type RESTClient struct {
	baseURL *url.URL
	key     string
	timeout time.Duration
	http    *http.Client
	cfgErr  string
}

// NewRESTClient creates a RESTClient.
func NewRESTClient(opts RESTOptions) *RESTClient {
	c := &RESTClient{
		key:     opts.Key,
		timeout: opts.Timeout,
		http:    opts.HTTPClient,
	}
	if c.http == nil {
		c.http = newHTTPClient()
	}

	switch {
	case strings.TrimSpace(opts.URL) == "":
		c.cfgErr = "store endpoint URL is not configured"
	case strings.TrimSpace(opts.Key) == "":
		c.cfgErr = "store access key is not configured"
	default:
		u, err := url.Parse(strings.TrimRight(opts.URL, "/"))
		if err != nil || u.Scheme == "" || u.Host == "" {
			c.cfgErr = fmt.Sprintf("store endpoint URL %q is invalid", opts.URL)
		} else {
			c.baseURL = u
		}
	}

	return c
}

// Configured reports whether calls can reach a store.
func (c *RESTClient) Configured() bool {
	return c.cfgErr == ""
}

func newHTTPClient() *http.Client {
	tr := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		DialContext:         (&net.Dialer{Timeout: 5 * time.Second, KeepAlive: 60 * time.Second}).DialContext,
		MaxIdleConns:        100,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 5 * time.Second,
	}
	return &http.Client{Transport: tr}
}

// List implements Client.
func (c *RESTClient) List(ctx context.Context, table string, q Query) ([]byte, error) {
	return c.do(ctx, "list", table, http.MethodGet, q.Values(), nil, false)
}

// Insert implements Client.
func (c *RESTClient) Insert(ctx context.Context, table string, record any) ([]byte, error) {
	return c.do(ctx, "insert", table, http.MethodPost, url.Values{"select": {"*"}}, record, true)
}

// Update implements Client. Updating a missing row fails with CodeNoRows.
func (c *RESTClient) Update(ctx context.Context, table string, id int64, patch any) ([]byte, error) {
	return c.do(ctx, "update", table, http.MethodPatch, idFilter(id), patch, true)
}

// Delete implements Client. Deleting a missing row fails with CodeNoRows.
func (c *RESTClient) Delete(ctx context.Context, table string, id int64) error {
	_, err := c.do(ctx, "delete", table, http.MethodDelete, idFilter(id), nil, true)
	return err
}

func idFilter(id int64) url.Values {
	return url.Values{
		"id":     {"eq." + strconv.FormatInt(id, 10)},
		"select": {"*"},
	}
}

// do issues one request. single asks PostgREST for exactly one row, which
// turns "no row matched" into a 406 instead of an empty success.
func (c *RESTClient) do(ctx context.Context, op, table, method string, params url.Values, body any, single bool) ([]byte, error) {
	if c.cfgErr != "" {
		return nil, remoteErr(op, table, CodeNotConfigured, c.cfgErr)
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, &RemoteError{Op: op, Table: table, Message: "encoding request body", Err: err}
		}
		reader = bytes.NewReader(payload)
	}

	endpoint := c.baseURL.JoinPath("rest", "v1", table)
	endpoint.RawQuery = params.Encode()

	req, err := http.NewRequestWithContext(ctx, method, endpoint.String(), reader)
	if err != nil {
		return nil, &RemoteError{Op: op, Table: table, Code: CodeTransport, Message: "building request", Err: err}
	}
	req.Header.Set("apikey", c.key)
	req.Header.Set("Authorization", "Bearer "+c.key)
	req.Header.Set("X-Request-Id", requestID(ctx))
	if body != nil {
		req.Header.Set("Content-Type", contentTypeJSON)
	}
	if single {
		req.Header.Set("Accept", contentTypeObject)
		req.Header.Set("Prefer", "return=representation")
	} else {
		req.Header.Set("Accept", contentTypeJSON)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &RemoteError{Op: op, Table: table, Code: CodeTransport, Message: "store unreachable", Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= http.StatusBadRequest {
		return nil, decodeRemoteError(op, table, resp)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &RemoteError{Op: op, Table: table, Code: CodeTransport, Message: "reading response", Err: err}
	}
	if len(bytes.TrimSpace(data)) == 0 && !single {
		data = []byte("[]")
	}
	return data, nil
}

// postgrestError is the PostgREST error body.
type postgrestError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details"`
	Hint    string `json:"hint"`
}

func decodeRemoteError(op, table string, resp *http.Response) *RemoteError {
	re := &RemoteError{Op: op, Table: table, Status: resp.StatusCode}

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	var pe postgrestError
	if err := json.Unmarshal(raw, &pe); err == nil && pe.Message != "" {
		re.Code = pe.Code
		re.Message = pe.Message
		re.Details = pe.Details
		re.Hint = pe.Hint
		return re
	}

	re.Message = strings.TrimSpace(string(raw))
	if re.Message == "" {
		re.Message = http.StatusText(resp.StatusCode)
	}
	return re
}

// requestID forwards the HTTP request id of the caller, or mints one.
func requestID(ctx context.Context) string {
	if id := chimw.GetReqID(ctx); id != "" {
		return id
	}
	return uuid.NewString()
}

// IsTimeout reports whether err is a RemoteError caused by a deadline.
func IsTimeout(err error) bool {
	re, ok := AsRemoteError(err)
	return ok && errors.Is(re.Err, context.DeadlineExceeded)
}
