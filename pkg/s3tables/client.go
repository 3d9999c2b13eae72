// Package s3tables implements a client for the Apache Iceberg REST Catalog
// extension ("Tables") described in spec.md §4.10: warehouses, namespaces,
// tables, and views, reached through a pluggable Auth scheme over a plain
// JSON/HTTP transport. It is modeled on pkg/s3.Client's functional-option
// configuration (it has no Clone) but carries none of the S3 data-plane signing or streaming machinery,
// since the Tables surface is a conventional REST API rather than an
// aws-chunked object store.
package s3tables

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/uuid"
	"github.com/minio/s3tables-go/internal/logging"
	"github.com/minio/s3tables-go/pkg/s3"
)

// defaultBasePath is the Iceberg REST spec's conventional catalog prefix.
const defaultBasePath = "/_iceberg/v1"

// HTTPDoer is the narrow transport interface the client depends on; the
// standard *http.Client satisfies it, tests substitute a fake.
type HTTPDoer = s3.HTTPDoer

// Client is a Tables REST Catalog client. Endpoint and auth are fixed at
// construction; AccessDelegation may be changed at any time since it is
// read fresh on every call.
type Client struct {
	endpoint   *url.URL
	basePath   string
	auth       Auth
	httpClient HTTPDoer
	userAgent  string

	// AccessDelegation, when non-empty, is sent as X-Iceberg-Access-Delegation
	// on every request (spec.md §4.10), requesting vended table credentials.
	AccessDelegation string
}

// Option configures a Client at construction time.
type Option func(*Client)

// WithBasePath overrides the default "/_iceberg/v1" catalog prefix.
func WithBasePath(path string) Option {
	return func(c *Client) { c.basePath = path }
}

// WithTransport overrides the HTTP transport used for every request.
func WithTransport(d HTTPDoer) Option {
	return func(c *Client) { c.httpClient = d }
}

// WithAccessDelegation sets the initial X-Iceberg-Access-Delegation value.
func WithAccessDelegation(mode string) Option {
	return func(c *Client) { c.AccessDelegation = mode }
}

// WithUserAgent overrides the default User-Agent.
func WithUserAgent(ua string) Option {
	return func(c *Client) { c.userAgent = ua }
}

// New builds a Tables client against endpoint (a full base URL, e.g.
// "https://catalog.example.com") using auth for every request.
func New(endpoint string, auth Auth, opts ...Option) (*Client, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, &s3.ErrorResponse{Kind: s3.ErrValidation, Message: "invalid endpoint: " + err.Error()}
	}
	c := &Client{
		endpoint:   u,
		basePath:   defaultBasePath,
		auth:       auth,
		httpClient: &http.Client{},
		userAgent:  "s3tables-go",
	}
	for _, o := range opts {
		o(c)
	}
	return c, nil
}

var log = logging.For("s3tables")

// restError mirrors the Iceberg REST spec's {"error": {...}} envelope.
type restError struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    int    `json:"code"`
	} `json:"error"`
}

// restErrorToKind maps an Iceberg REST exception "type" string to our closed
// ErrorKind taxonomy. Unrecognized types surface as s3.ErrTables, carrying
// the raw type string on Code so callers can still branch on it.
var restErrorToKind = map[string]s3.ErrorKind{
	"NoSuchNamespaceException":  s3.ErrNoSuchKey,
	"NoSuchTableException":      s3.ErrNoSuchKey,
	"NoSuchViewException":       s3.ErrNoSuchKey,
	"NoSuchKey":                 s3.ErrNoSuchKey,
	"NamespaceNotEmptyException": s3.ErrNamespaceNotEmpty,
	"AlreadyExistsException":    s3.ErrResourceConflict,
	"NoSuchWarehouseException":  s3.ErrWarehouseNotFound,
	"OrphanedMetadata":          s3.ErrOrphanedMetadata,
	"ForbiddenException":        s3.ErrAccessDenied,
	"NotAuthorizedException":    s3.ErrAccessDenied,
	"BadRequestException":       s3.ErrBadRequest,
}

// PostJSON issues a POST against segments (relative to the catalog base
// path) with body marshaled as JSON, decoding the response into out. It is
// the low-level escape hatch pkg/pushdown uses for the ExecuteTableScan
// sibling "plan-table-scan" vendor extension, which has no other natural
// home in the warehouse/namespace/table CRUD surface of catalog.go.
func (c *Client) PostJSON(ctx context.Context, segments []string, body, out interface{}) error {
	return c.doJSON(ctx, http.MethodPost, segments, nil, body, out)
}

// doJSON issues one Tables REST call: builds the URL from segments and
// query, marshals body (if non-nil) as the JSON request payload, attaches
// an Idempotency-Key on mutating methods and the access-delegation header
// (when set) on every call, signs
// via auth, and decodes the JSON response into out (if non-nil).
func (c *Client) doJSON(ctx context.Context, method string, segments []string, query url.Values, body, out interface{}) error {
	u := *c.endpoint
	u.Path = strings.TrimSuffix(u.Path, "/") + c.basePath + "/" + strings.Join(segments, "/")
	if query != nil {
		u.RawQuery = query.Encode()
	}

	var raw []byte
	var err error
	if body != nil {
		raw, err = json.Marshal(body)
		if err != nil {
			return &s3.ErrorResponse{Kind: s3.ErrValidation, Message: "marshaling request body: " + err.Error()}
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), nil)
	if err != nil {
		return &s3.ErrorResponse{Kind: s3.ErrValidation, Message: err.Error()}
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	if raw != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if isMutating(method) {
		req.Header.Set("Idempotency-Key", uuid.NewString())
	}
	if c.AccessDelegation != "" {
		req.Header.Set("X-Iceberg-Access-Delegation", c.AccessDelegation)
	}

	if err := c.auth.Authorize(req, raw); err != nil {
		return err
	}
	if raw != nil {
		req.Body = io.NopCloser(bytes.NewReader(raw))
		req.ContentLength = int64(len(raw))
	}

	log.WithField("method", method).WithField("path", u.Path).Debug("tables request")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &s3.ErrorResponse{Kind: s3.ErrNetwork, Message: err.Error()}
	}
	defer resp.Body.Close()
	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return &s3.ErrorResponse{Kind: s3.ErrIO, Message: err.Error()}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return decodeTablesError(resp.StatusCode, respBody)
	}
	if out == nil || len(respBody) == 0 {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return &s3.ErrorResponse{Kind: s3.ErrIO, Message: "decoding response: " + err.Error()}
	}
	return nil
}

func isMutating(method string) bool {
	return method == http.MethodPost || method == http.MethodPut || method == http.MethodDelete
}

func decodeTablesError(status int, body []byte) *s3.ErrorResponse {
	var re restError
	if len(body) > 0 && json.Unmarshal(body, &re) == nil && re.Error.Type != "" {
		kind, ok := restErrorToKind[re.Error.Type]
		if !ok {
			kind = s3.ErrTables
		}
		return &s3.ErrorResponse{
			Kind:       kind,
			Code:       re.Error.Type,
			Message:    re.Error.Message,
			StatusCode: status,
		}
	}
	kind := s3.ErrTables
	switch status {
	case http.StatusNotFound:
		kind = s3.ErrNoSuchKey
	case http.StatusForbidden, http.StatusUnauthorized:
		kind = s3.ErrAccessDenied
	case http.StatusConflict:
		kind = s3.ErrResourceConflict
	}
	return &s3.ErrorResponse{Kind: kind, Message: fmt.Sprintf("tables request failed with status %d", status), StatusCode: status}
}
