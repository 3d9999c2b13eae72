package s3tables

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"testing"

	"github.com/klauspost/compress/zstd"
	"github.com/stretchr/testify/require"
)

type scanDoer struct {
	resp *http.Response
	req  *http.Request
}

func (d *scanDoer) Do(req *http.Request) (*http.Response, error) {
	d.req = req
	return d.resp, nil
}

func TestExecuteTableScanStreamsJSONLRows(t *testing.T) {
	body := "{\"a\":1}\n{\"a\":2}\n"
	doer := &scanDoer{resp: &http.Response{
		StatusCode: 200,
		Header:     make(http.Header),
		Body:       io.NopCloser(bytes.NewReader([]byte(body))),
	}}
	c, err := New("https://catalog.example.com", NoAuth{}, WithTransport(doer))
	require.NoError(t, err)

	rows, err := c.ExecuteTableScan(context.Background(), "wh1", NewNamespace("a"), "t1", ScanRequest{})
	require.NoError(t, err)
	defer rows.Close()

	var lines []string
	for rows.Next() {
		lines = append(lines, string(rows.Bytes()))
	}
	require.NoError(t, rows.Err())
	require.Equal(t, []string{`{"a":1}`, `{"a":2}`}, lines)
	require.Equal(t, "/_iceberg/v1/warehouses/wh1/namespaces/a/tables/t1/scan", doer.req.URL.Path)
}

func TestExecuteTableScanDecompressesZstdBody(t *testing.T) {
	enc, err := zstd.NewWriter(nil)
	require.NoError(t, err)
	compressed := enc.EncodeAll([]byte("{\"a\":1}\n"), nil)
	require.NoError(t, enc.Close())

	h := make(http.Header)
	h.Set("Content-Encoding", "zstd")
	doer := &scanDoer{resp: &http.Response{
		StatusCode: 200,
		Header:     h,
		Body:       io.NopCloser(bytes.NewReader(compressed)),
	}}
	c, err := New("https://catalog.example.com", NoAuth{}, WithTransport(doer))
	require.NoError(t, err)

	rows, err := c.ExecuteTableScan(context.Background(), "wh1", NewNamespace("a"), "t1", ScanRequest{OutputFormat: OutputFormatJSONL})
	require.NoError(t, err)
	defer rows.Close()

	require.True(t, rows.Next())
	require.Equal(t, `{"a":1}`, string(rows.Bytes()))
	require.False(t, rows.Next())
}

func TestExecuteTableScanSurfacesServerError(t *testing.T) {
	doer := &scanDoer{resp: &http.Response{
		StatusCode: 404,
		Header:     make(http.Header),
		Body:       io.NopCloser(bytes.NewReader([]byte(`{"error":{"message":"no table","type":"NoSuchTableException","code":404}}`))),
	}}
	c, err := New("https://catalog.example.com", NoAuth{}, WithTransport(doer))
	require.NoError(t, err)

	_, err = c.ExecuteTableScan(context.Background(), "wh1", NewNamespace("a"), "missing", ScanRequest{})
	require.Error(t, err)
}
