package pushdown

import (
	"context"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/apache/iceberg-go"
	"github.com/minio/s3tables-go/pkg/s3tables"
	"github.com/stretchr/testify/require"
)

type fakeDoer struct {
	status int
	body   string
	req    *http.Request
}

func (d *fakeDoer) Do(req *http.Request) (*http.Response, error) {
	d.req = req
	return &http.Response{StatusCode: d.status, Body: io.NopCloser(strings.NewReader(d.body)), Header: make(http.Header)}, nil
}

type fakeReader struct{ tasks []FileScanTask }

func (r *fakeReader) Read(_ context.Context, task FileScanTask, _ []string, _ *int64) (RowIter, error) {
	r.tasks = append(r.tasks, task)
	return &emptyRowIter{}, nil
}

type emptyRowIter struct{}

func (emptyRowIter) Next() (map[string]interface{}, bool) { return nil, false }
func (emptyRowIter) Err() error                            { return nil }
func (emptyRowIter) Close() error                          { return nil }

func newProvider(t *testing.T, doer *fakeDoer) *TableProvider {
	t.Helper()
	client, err := s3tables.New("https://catalog.example.com", s3tables.NoAuth{}, s3tables.WithTransport(doer))
	require.NoError(t, err)
	schema := iceberg.NewSchema(1, iceberg.NestedField{ID: 1, Name: "region", Type: iceberg.PrimitiveTypes.String}, iceberg.NestedField{ID: 2, Name: "age", Type: iceberg.PrimitiveTypes.Int32})
	return &TableProvider{
		Client:        client,
		Warehouse:     "wh1",
		Namespace:     s3tables.NewNamespace("sales"),
		Table:         "orders",
		Schema:        schema,
		PartitionCols: map[string]bool{"region": true},
	}
}

func TestScanPrunesFilesByPartitionPredicate(t *testing.T) {
	doer := &fakeDoer{status: 200, body: `{
		"status":"completed",
		"file-scan-tasks":[
			{"data-file":"s3://bucket/a.parquet","partition":{"region":"us"},"record-count":10},
			{"data-file":"s3://bucket/b.parquet","partition":{"region":"eu"},"record-count":20}
		]
	}`}
	p := newProvider(t, doer)
	reader := &fakeReader{}
	p.Reader = reader

	filters := []Expr{Comparison{Column: "region", Op: OpEq, Literal: "us"}}
	plan, reports, err := p.Scan(context.Background(), nil, filters, nil)
	require.NoError(t, err)
	defer plan.Close()

	require.Equal(t, 1, plan.FilesUsed())
	require.Len(t, reader.tasks, 1)
	require.Equal(t, "s3://bucket/a.parquet", reader.tasks[0].DataFileURI)
	require.Len(t, reports, 1)
	require.Equal(t, SupportInexact, reports[0].Support)
}

func TestScanWrapsResidualFilters(t *testing.T) {
	doer := &fakeDoer{status: 200, body: `{"status":"completed","file-scan-tasks":[]}`}
	p := newProvider(t, doer)
	p.Reader = &fakeReader{}

	filters := []Expr{scalarFuncExpr{}}
	plan, reports, err := p.Scan(context.Background(), nil, filters, nil)
	require.NoError(t, err)
	require.Len(t, plan.Residual(), 1)
	require.Equal(t, SupportUnsupported, reports[0].Support)
}

func TestScanSurfacesSubmittedAsError(t *testing.T) {
	doer := &fakeDoer{status: 200, body: `{"status":"submitted"}`}
	p := newProvider(t, doer)
	_, _, err := p.Scan(context.Background(), nil, nil, nil)
	require.Error(t, err)
}

func TestScanSurfacesFailedStatus(t *testing.T) {
	doer := &fakeDoer{status: 200, body: `{"status":"failed"}`}
	p := newProvider(t, doer)
	_, _, err := p.Scan(context.Background(), nil, nil, nil)
	require.Error(t, err)
}
