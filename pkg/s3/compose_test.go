package s3

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
)

// fakeStatDoer answers every HEAD with a canned Content-Length/ETag, letting
// calculatePartCount run without a network.
type fakeStatDoer struct {
	sizes map[string]int64
}

func (f *fakeStatDoer) Do(req *http.Request) (*http.Response, error) {
	key := req.URL.Path
	size := f.sizes[key]
	return &http.Response{
		StatusCode:    http.StatusOK,
		ContentLength: size,
		Header:        http.Header{"ETag": []string{`"abc"`}},
		Body:          http.NoBody,
		Request:       req,
	}, nil
}

func newTestClient(t *testing.T, doer HTTPDoer) *Client {
	t.Helper()
	c, err := New("s3.example.com", true, WithSkipRegionLookup(), WithTransport(doer))
	require.NoError(t, err)
	return c
}

func TestCalculatePartCountRejectsUndersizedNonLastSource(t *testing.T) {
	doer := &fakeStatDoer{sizes: map[string]int64{
		"/bucket-a/a": 4 * 1024 * 1024,
		"/bucket-b/b": 8 * 1024 * 1024,
	}}
	c := newTestClient(t, doer)

	sources := []ComposeSource{
		NewComposeSource("bucket-a", "a"),
		NewComposeSource("bucket-b", "b"),
	}
	_, err := c.calculatePartCount(context.Background(), sources)
	require.Error(t, err)
	er := ToErrorResponse(err)
	require.Equal(t, ErrInvalidComposeSourcePartSize, er.Kind)
}

func TestCalculatePartCountAllowsUndersizedSoleSource(t *testing.T) {
	doer := &fakeStatDoer{sizes: map[string]int64{
		"/bucket-a/a": 4 * 1024 * 1024,
	}}
	c := newTestClient(t, doer)

	parts, err := c.calculatePartCount(context.Background(), []ComposeSource{NewComposeSource("bucket-a", "a")})
	require.NoError(t, err)
	require.Len(t, parts, 1)
}

func TestCalculatePartCountSplitsLargeSource(t *testing.T) {
	doer := &fakeStatDoer{sizes: map[string]int64{
		"/bucket-a/a": MaxPartSize + 10*1024*1024,
	}}
	c := newTestClient(t, doer)

	parts, err := c.calculatePartCount(context.Background(), []ComposeSource{NewComposeSource("bucket-a", "a")})
	require.NoError(t, err)
	require.Len(t, parts, 2)
	require.Equal(t, int64(MaxPartSize), parts[0].length)
	require.Equal(t, int64(10*1024*1024), parts[1].length)
}
