// Package rest talks to a hosted backend-as-a-service: the PostgREST table API
// under /rest/v1 and the GoTrue auth API under /auth/v1.
package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/ddevcap/mcu-rankings/store"
)

// Client is a store.Adapter backed by PostgREST. Writes are authorised with
// the access token found in the request context (see store.WithAccessToken),
// falling back to the project's anon key.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

// NewClient creates a client for the project at baseURL (e.g.
// "https://xyz.supabase.co") using the public anon key.
func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	transport := &http.Transport{
		DialContext: (&net.Dialer{
			Timeout:   5 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   5 * time.Second,
		ResponseHeaderTimeout: timeout,
		MaxIdleConnsPerHost:   10,
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		http: &http.Client{
			Transport: transport,
			Timeout:   timeout,
		},
	}
}

// Select issues GET /rest/v1/<collection> with the query encoded PostgREST
// style: select=a,b&col=eq.v&title=ilike.*q*&order=a.asc,b.desc&limit=n.
func (c *Client) Select(ctx context.Context, coll store.Collection, q store.Query) ([]store.Row, error) {
	params := url.Values{}
	if len(q.Columns) > 0 {
		params.Set("select", strings.Join(q.Columns, ","))
	} else {
		params.Set("select", "*")
	}
	addFilters(params, q.Filters)
	if len(q.Order) > 0 {
		parts := make([]string, 0, len(q.Order))
		for _, o := range q.Order {
			dir := "asc"
			if o.Descending {
				dir = "desc"
			}
			parts = append(parts, o.Column+"."+dir)
		}
		params.Set("order", strings.Join(parts, ","))
	}
	if q.Limit > 0 {
		params.Set("limit", strconv.Itoa(q.Limit))
	}

	raw, err := c.do(ctx, "select", coll, http.MethodGet, params, nil, nil)
	if err != nil {
		return nil, err
	}
	rows, err := decodeRows(raw)
	if err != nil {
		return nil, &store.FetchError{Op: "select", Collection: coll, Err: err}
	}
	return rows, nil
}

// Upsert issues POST /rest/v1/<collection>?on_conflict=<key> asking PostgREST
// to merge duplicates, so repeating the call converges on one row.
func (c *Client) Upsert(ctx context.Context, coll store.Collection, row store.Row, conflictKey string) error {
	body, err := json.Marshal(row)
	if err != nil {
		return &store.FetchError{Op: "upsert", Collection: coll, Err: err}
	}
	params := url.Values{}
	if conflictKey != "" {
		params.Set("on_conflict", conflictKey)
	}
	headers := http.Header{}
	headers.Set("Prefer", "resolution=merge-duplicates,return=minimal")
	_, err = c.do(ctx, "upsert", coll, http.MethodPost, params, body, headers)
	return err
}

// Update issues PATCH /rest/v1/<collection> with the filters and returns the
// first updated row, or nil when no row matched.
func (c *Client) Update(ctx context.Context, coll store.Collection, filters []store.Filter, patch store.Row) (store.Row, error) {
	body, err := json.Marshal(patch)
	if err != nil {
		return nil, &store.FetchError{Op: "update", Collection: coll, Err: err}
	}
	params := url.Values{}
	addFilters(params, filters)
	headers := http.Header{}
	headers.Set("Prefer", "return=representation")

	raw, err := c.do(ctx, "update", coll, http.MethodPatch, params, body, headers)
	if err != nil {
		return nil, err
	}
	rows, err := decodeRows(raw)
	if err != nil {
		return nil, &store.FetchError{Op: "update", Collection: coll, Err: err}
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0], nil
}

// Ping checks that the REST endpoint answers with the configured key.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/rest/v1/", nil)
	if err != nil {
		return fmt.Errorf("rest: building ping request: %w", err)
	}
	req.Header.Set("apikey", c.apiKey)
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("rest: ping: %w", err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode >= 500 {
		return fmt.Errorf("rest: ping: status %d", resp.StatusCode)
	}
	return nil
}

func (c *Client) do(ctx context.Context, op string, coll store.Collection, method string, params url.Values, body []byte, headers http.Header) ([]byte, error) {
	u := c.baseURL + "/rest/v1/" + url.PathEscape(string(coll))
	if len(params) > 0 {
		u += "?" + params.Encode()
	}
	var reqBody io.Reader
	if body != nil {
		reqBody = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, u, reqBody)
	if err != nil {
		return nil, &store.FetchError{Op: op, Collection: coll, Err: fmt.Errorf("building request: %w", err)}
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("apikey", c.apiKey)
	bearer := store.AccessToken(ctx)
	if bearer == "" {
		bearer = c.apiKey
	}
	req.Header.Set("Authorization", "Bearer "+bearer)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, vs := range headers {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &store.FetchError{Op: op, Collection: coll, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &store.FetchError{Op: op, Collection: coll, Status: resp.StatusCode, Err: fmt.Errorf("reading response: %w", err)}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &store.FetchError{
			Op:         op,
			Collection: coll,
			Status:     resp.StatusCode,
			Message:    errorMessage(raw, resp.StatusCode),
		}
	}
	return raw, nil
}

// addFilters encodes filters as PostgREST column operators. Substring
// filters become ilike with * wildcards.
func addFilters(params url.Values, filters []store.Filter) {
	for _, f := range filters {
		switch f.Op {
		case store.OpContainsFold:
			params.Add(f.Column, "ilike.*"+fmt.Sprint(f.Value)+"*")
		default:
			params.Add(f.Column, "eq."+fmt.Sprint(f.Value))
		}
	}
}

func decodeRows(raw []byte) ([]store.Row, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var rows []store.Row
	if err := dec.Decode(&rows); err != nil {
		return nil, fmt.Errorf("decoding rows: %w", err)
	}
	return rows, nil
}

// errorMessage extracts the human-readable message of a PostgREST or GoTrue
// error body.
func errorMessage(raw []byte, status int) string {
	var body struct {
		Message          string `json:"message"`
		Msg              string `json:"msg"`
		ErrorDescription string `json:"error_description"`
		Error            string `json:"error"`
	}
	if err := json.Unmarshal(raw, &body); err == nil {
		for _, m := range []string{body.Message, body.Msg, body.ErrorDescription, body.Error} {
			if m != "" {
				return m
			}
		}
	}
	if s := strings.TrimSpace(string(raw)); s != "" {
		return s
	}
	return http.StatusText(status)
}
