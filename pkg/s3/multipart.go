package s3

import (
	"context"
	"encoding/xml"
	"net/http"

	"github.com/minio/s3tables-go/internal/multimap"
	"github.com/minio/s3tables-go/internal/segbytes"
)

type initiateMultipartUploadResult struct {
	XMLName  xml.Name `xml:"InitiateMultipartUploadResult"`
	UploadID string   `xml:"UploadId"`
}

// createMultipartUpload issues POST /{bucket}/{object}?uploads.
func (c *Client) createMultipartUpload(ctx context.Context, bucket, object string, opts PutObjectOptions) (string, error) {
	md := newRequestMetadata(http.MethodPost)
	md.bucket, md.object = bucket, object
	md.query.Set("uploads", "")
	md.headers = opts.headers()

	resp, err := c.execute(ctx, md)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var result initiateMultipartUploadResult
	if err := xml.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", &ErrorResponse{Kind: ErrIO, Message: "decoding InitiateMultipartUploadResult: " + err.Error(), Bucket: bucket, Key: object}
	}
	return result.UploadID, nil
}

// uploadPart issues PUT /{bucket}/{object}?partNumber=N&uploadId=ID.
func (c *Client) uploadPart(ctx context.Context, bucket, object, uploadID string, partNumber int, data []byte) (string, error) {
	md := newRequestMetadata(http.MethodPut)
	md.bucket, md.object = bucket, object
	md.query.Set("partNumber", itoa(int64(partNumber)))
	md.query.Set("uploadId", uploadID)
	md.headers = multimap.New()
	md.body = segbytes.FromSlice(data)
	md.hasBody = true

	resp, err := c.execute(ctx, md)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	return trimQuotes(resp.Header.Get("ETag")), nil
}

// completeMultipartUpload issues POST /{bucket}/{object}?uploadId=ID with the
// ordered <Part> XML body.
func (c *Client) completeMultipartUpload(ctx context.Context, bucket, object, uploadID string, parts []completedPart) (ObjectInfo, error) {
	body := completeMultipartXML{}
	for _, p := range parts {
		body.Parts = append(body.Parts, completePartXML{PartNumber: p.Number, ETag: `"` + p.ETag + `"`})
	}
	raw, err := xml.Marshal(body)
	if err != nil {
		return ObjectInfo{}, err
	}

	md := newRequestMetadata(http.MethodPost)
	md.bucket, md.object = bucket, object
	md.query.Set("uploadId", uploadID)
	md.headers = multimap.New()
	md.headers.Set("Content-Type", "application/xml")
	md.body = segbytes.FromSlice(raw)
	md.hasBody = true

	resp, err := c.execute(ctx, md)
	if err != nil {
		return ObjectInfo{}, err
	}
	defer resp.Body.Close()

	var result struct {
		XMLName xml.Name `xml:"CompleteMultipartUploadResult"`
		ETag    string   `xml:"ETag"`
	}
	if err := xml.NewDecoder(resp.Body).Decode(&result); err != nil {
		return ObjectInfo{}, &ErrorResponse{Kind: ErrIO, Message: "decoding CompleteMultipartUploadResult: " + err.Error(), Bucket: bucket, Key: object}
	}
	return ObjectInfo{ETag: trimQuotes(result.ETag), VersionID: resp.Header.Get("x-amz-version-id")}, nil
}

// AbortMultipartUpload issues DELETE /{bucket}/{object}?uploadId=ID. Called
// on any error after CreateMultipartUpload to release the server-side
// upload state, per spec.md §4.8.
func (c *Client) AbortMultipartUpload(ctx context.Context, bucket, object, uploadID string) error {
	md := newRequestMetadata(http.MethodDelete)
	md.bucket, md.object = bucket, object
	md.query.Set("uploadId", uploadID)

	resp, err := c.execute(ctx, md)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return nil
}

// uploadPartCopy issues PUT /{bucket}/{object}?partNumber=N&uploadId=ID with
// an x-amz-copy-source header instead of a body, for the compose pipeline.
func (c *Client) uploadPartCopy(ctx context.Context, bucket, object, uploadID string, partNumber int, copySource *copySourceSpec) (string, error) {
	md := newRequestMetadata(http.MethodPut)
	md.bucket, md.object = bucket, object
	md.query.Set("partNumber", itoa(int64(partNumber)))
	md.query.Set("uploadId", uploadID)
	md.headers = copySource.headers()

	resp, err := c.execute(ctx, md)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var result struct {
		XMLName xml.Name `xml:"CopyPartResult"`
		ETag    string   `xml:"ETag"`
	}
	if err := xml.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", &ErrorResponse{Kind: ErrIO, Message: "decoding CopyPartResult: " + err.Error(), Bucket: bucket, Key: object}
	}
	return trimQuotes(result.ETag), nil
}

// StatObject issues HEAD /{bucket}/{object} and returns size/etag, used by
// the compose pipeline's calculate_part_count step.
func (c *Client) StatObject(ctx context.Context, bucket, object string) (ObjectStat, error) {
	md := newRequestMetadata(http.MethodHead)
	md.bucket, md.object = bucket, object

	resp, err := c.execute(ctx, md)
	if err != nil {
		return ObjectStat{}, err
	}
	defer resp.Body.Close()

	return ObjectStat{
		Size:      resp.ContentLength,
		ETag:      trimQuotes(resp.Header.Get("ETag")),
		VersionID: resp.Header.Get("x-amz-version-id"),
	}, nil
}

// ObjectStat is the subset of a HEAD response the compose pipeline needs.
type ObjectStat struct {
	Size      int64
	ETag      string
	VersionID string
}
