package s3

import (
	"net/http"
	"time"

	"github.com/minio/s3tables-go/internal/multimap"
	"github.com/minio/s3tables-go/internal/sig4"
)

// MaxPresignExpiry is the largest expiry SigV4 presigning supports, per
// spec.md §4.9.
const MaxPresignExpiry = 7 * 24 * time.Hour

// PresignedURL implements spec.md §4.9's presigned-URL construction: the
// request is never sent, only signed with UNSIGNED-PAYLOAD and an
// X-Amz-Expires query window.
func (c *Client) PresignedURL(method, bucket, object string, expires time.Duration, extraQuery *multimap.Multimap) (string, error) {
	if expires <= 0 || expires > MaxPresignExpiry {
		return "", &ErrorResponse{Kind: ErrValidation, Code: "InvalidArgument",
			Message: "expires must be > 0 and <= 7 days", Bucket: bucket, Key: object}
	}
	if c.creds == nil {
		return "", &ErrorResponse{Kind: ErrValidation, Code: "InvalidArgument",
			Message: "presigning requires a credential provider", Bucket: bucket, Key: object}
	}

	region, err := c.GetRegionCached(bucket, "")
	if err != nil {
		return "", err
	}
	query := extraQuery
	if query == nil {
		query = multimap.New()
	}
	target, err := BuildURL(c.base, method, region, query, bucket, object)
	if err != nil {
		return "", err
	}

	headers := multimap.New()
	headers.Set("host", target.HostHeaderValue())

	credVal, err := c.creds.Retrieve()
	if err != nil {
		return "", err
	}
	signReq := sig4.Request{Method: method, Path: target.Path, Query: target.Query, Headers: headers}
	signedQuery := sig4.PresignV4(signReq, sig4.Credentials(credVal), region, "s3", expires, c.keyCache, time.Now().UTC())

	out := *target
	out.Query = signedQuery
	return out.String(), nil
}

// PresignedGetObject returns a presigned GET URL valid for expires.
func (c *Client) PresignedGetObject(bucket, object string, expires time.Duration) (string, error) {
	return c.PresignedURL(http.MethodGet, bucket, object, expires, nil)
}

// PresignedPutObject returns a presigned PUT URL valid for expires, for
// single-shot (non-multipart) uploads.
func (c *Client) PresignedPutObject(bucket, object string, expires time.Duration) (string, error) {
	return c.PresignedURL(http.MethodPut, bucket, object, expires, nil)
}

// PresignUploadPart returns a presigned URL for a single multipart-upload
// part, the counterpart of the teacher's GenUploadPartSignedUrl. Only the
// partNumber and uploadId query parameters are signed; no checksum or SSE
// parameters can be added.
func (c *Client) PresignUploadPart(bucket, object, uploadID string, partNumber int, expires time.Duration) (string, error) {
	query := multimap.New()
	query.Set("partNumber", itoa(int64(partNumber)))
	query.Set("uploadId", uploadID)
	return c.PresignedURL(http.MethodPut, bucket, object, expires, query)
}
