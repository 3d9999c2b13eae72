package s3

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// recordingDoer fakes the multipart dance: every POST ?uploads= returns a
// fixed upload ID, every PUT with partNumber= echoes back an ETag derived
// from the part number, and the final POST with uploadId= (Complete)
// records the part count it saw.
type recordingDoer struct {
	uploadedParts [][]byte
	completedN    int
}

func (d *recordingDoer) Do(req *http.Request) (*http.Response, error) {
	q := req.URL.Query()
	switch {
	case req.Method == http.MethodPost && q.Has("uploads"):
		return xmlResp(`<InitiateMultipartUploadResult><UploadId>test-upload</UploadId></InitiateMultipartUploadResult>`), nil
	case req.Method == http.MethodPut && q.Has("partNumber"):
		body, _ := io.ReadAll(req.Body)
		d.uploadedParts = append(d.uploadedParts, body)
		resp := xmlResp("")
		resp.Header.Set("ETag", fmt.Sprintf(`"part-%d"`, len(d.uploadedParts)))
		return resp, nil
	case req.Method == http.MethodPost && q.Has("uploadId"):
		body, _ := io.ReadAll(req.Body)
		d.completedN = strings.Count(string(body), "<Part>")
		return xmlResp(`<CompleteMultipartUploadResult><ETag>"final-etag"</ETag></CompleteMultipartUploadResult>`), nil
	case req.Method == http.MethodPut:
		resp := xmlResp("")
		resp.Header.Set("ETag", `"single-shot-etag"`)
		return resp, nil
	}
	return nil, fmt.Errorf("unexpected request %s %s", req.Method, req.URL)
}

func xmlResp(body string) *http.Response {
	return &http.Response{
		StatusCode: http.StatusOK,
		Header:     make(http.Header),
		Body:       io.NopCloser(strings.NewReader(body)),
	}
}

func TestPutObjectSingleShotBelowPartSize(t *testing.T) {
	doer := &recordingDoer{}
	c := newTestClient(t, doer)

	info, err := c.PutObject(context.Background(), "bucket", "key", bytes.NewReader([]byte("hello")), 5, PutObjectOptions{})
	require.NoError(t, err)
	require.Equal(t, "single-shot-etag", info.ETag)
}

func TestPutObjectMultipartUnknownLengthSplitsOnPartSizePlusOne(t *testing.T) {
	doer := &recordingDoer{}
	c := newTestClient(t, doer)

	partSize := int64(MinPartSize)
	data := bytes.Repeat([]byte{'z'}, int(partSize+1))
	info, err := c.PutObject(context.Background(), "bucket", "key", bytes.NewReader(data), -1, PutObjectOptions{PartSize: partSize})
	require.NoError(t, err)
	require.Equal(t, "final-etag", info.ETag)
	require.Len(t, doer.uploadedParts, 2)
	require.Len(t, doer.uploadedParts[0], int(partSize))
	require.Len(t, doer.uploadedParts[1], 1)
	require.Equal(t, 2, doer.completedN)
}
