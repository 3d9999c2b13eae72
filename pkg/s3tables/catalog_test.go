package s3tables

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// scriptedDoer answers requests from a queue of canned responses, asserted
// in call order, the same style as pkg/s3's recordingDoer.
type scriptedDoer struct {
	responses []scriptedResponse
	requests  []*http.Request
}

type scriptedResponse struct {
	status int
	body   string
	header http.Header
}

func (d *scriptedDoer) Do(req *http.Request) (*http.Response, error) {
	d.requests = append(d.requests, req)
	i := len(d.requests) - 1
	r := d.responses[i]
	h := r.header
	if h == nil {
		h = make(http.Header)
	}
	return &http.Response{
		StatusCode: r.status,
		Body:       io.NopCloser(strings.NewReader(r.body)),
		Header:     h,
	}, nil
}

func newTestClient(t *testing.T, responses ...scriptedResponse) (*Client, *scriptedDoer) {
	t.Helper()
	doer := &scriptedDoer{responses: responses}
	c, err := New("https://catalog.example.com", NoAuth{}, WithTransport(doer))
	require.NoError(t, err)
	return c, doer
}

func TestCreateNamespaceSendsExpectedPath(t *testing.T) {
	c, doer := newTestClient(t, scriptedResponse{status: 200, body: "{}"})
	err := c.CreateNamespace(context.Background(), "wh1", NewNamespace("accounting", "ledgers"), map[string]string{"owner": "finance"})
	require.NoError(t, err)
	require.Len(t, doer.requests, 1)
	require.Equal(t, "/_iceberg/v1/warehouses/wh1/namespaces", doer.requests[0].URL.Path)
	require.NotEmpty(t, doer.requests[0].Header.Get("Idempotency-Key"))
}

func TestDropNamespaceUsesUnitSeparatorPathSegment(t *testing.T) {
	c, doer := newTestClient(t, scriptedResponse{status: 204})
	err := c.DropNamespace(context.Background(), "wh1", NewNamespace("a", "b"))
	require.NoError(t, err)
	require.Equal(t, "/_iceberg/v1/warehouses/wh1/namespaces/a"+namespaceSeparator+"b", doer.requests[0].URL.Path)
}

func TestListNamespacesPaginatesUntilTokenEmpty(t *testing.T) {
	c, doer := newTestClient(t,
		scriptedResponse{status: 200, body: `{"next-page-token":"tok1","namespaces":[["a"]]}`},
		scriptedResponse{status: 200, body: `{"namespaces":[["b"]]}`},
	)

	var got []string
	for ns, err := range c.ListNamespaces(context.Background(), "wh1", Namespace{}) {
		require.NoError(t, err)
		got = append(got, ns.String())
	}
	require.Equal(t, []string{"a", "b"}, got)
	require.Len(t, doer.requests, 2)
	require.Equal(t, "", doer.requests[0].URL.Query().Get("page-token"))
	require.Equal(t, "tok1", doer.requests[1].URL.Query().Get("page-token"))
}

func TestListNamespacesStopsOnError(t *testing.T) {
	c, _ := newTestClient(t, scriptedResponse{status: 404, body: `{"error":{"message":"nope","type":"NoSuchNamespaceException","code":404}}`})

	count := 0
	var lastErr error
	for _, err := range c.ListNamespaces(context.Background(), "wh1", Namespace{}) {
		lastErr = err
		count++
	}
	require.Equal(t, 1, count)
	require.Error(t, lastErr)
}

func TestLoadTableDecodesRawMetadata(t *testing.T) {
	c, _ := newTestClient(t, scriptedResponse{status: 200, body: `{"format-version":2,"table-uuid":"x"}`})
	raw, err := c.LoadTable(context.Background(), "wh1", NewNamespace("a"), "t1")
	require.NoError(t, err)
	require.True(t, bytes.Contains(raw, []byte("table-uuid")))
}

func TestRenameTableBuildsSourceDestinationBody(t *testing.T) {
	c, doer := newTestClient(t, scriptedResponse{status: 200, body: "{}"})
	err := c.RenameTable(context.Background(), "wh1",
		TableIdentifier{Namespace: NewNamespace("a"), Name: "t1"},
		TableIdentifier{Namespace: NewNamespace("b"), Name: "t2"})
	require.NoError(t, err)
	body, _ := io.ReadAll(doer.requests[0].Body)
	require.Contains(t, string(body), `"name":"t1"`)
	require.Contains(t, string(body), `"name":"t2"`)
}
