package s3

import (
	"context"
	"encoding/base64"
	"encoding/xml"
	"io"
	"net/http"

	md5simd "github.com/minio/md5-simd"
	"github.com/minio/s3tables-go/internal/multimap"
	"github.com/minio/s3tables-go/internal/segbytes"
)

// md5Server is the process-wide SIMD-accelerated MD5 hasher pool, shared
// across every single-shot PUT the same way the real minio-go client
// shares one md5simd.Server rather than spinning one per request (see
// other_examples' hashMaterials/newMd5Hasher pattern).
var md5Server = md5simd.NewServer()

// contentMD5Base64 computes the base64 Content-MD5 digest of data using
// the shared md5Server.
func contentMD5Base64(data []byte) string {
	h := md5Server.NewHash()
	defer h.Close()
	h.Write(data)
	return base64.StdEncoding.EncodeToString(h.Sum(nil))
}

const (
	MinPartSize       = 5 * 1024 * 1024
	MaxPartSize       = 5 * 1024 * 1024 * 1024
	MaxObjectSize     = 5 * 1024 * 1024 * 1024 * 1024
	MaxMultipartCount = 10000
)

// ObjectInfo is the subset of a PUT/multipart response the caller needs
// back, mirroring the teacher's upload-result struct.
type ObjectInfo struct {
	ETag      string
	VersionID string
}

// PutObjectOptions carries the caller-controlled knobs for an upload;
// zero value means "no metadata, default part size, no checksum trailer".
type PutObjectOptions struct {
	ContentType        string
	UserMetadata       map[string]string
	PartSize           int64
	TrailingChecksum   ChecksumAlgorithm
	UseSignedStreaming bool
}

func (o PutObjectOptions) partSizeOrDefault() int64 {
	if o.PartSize > 0 {
		return o.PartSize
	}
	return 16 * 1024 * 1024
}

func (o PutObjectOptions) headers() *multimap.Multimap {
	h := multimap.New()
	if o.ContentType != "" {
		h.Set("Content-Type", o.ContentType)
	}
	for k, v := range o.UserMetadata {
		h.Set("x-amz-meta-"+k, v)
	}
	return h
}

// PutObject implements the single-shot / multipart split of spec.md §4.8's
// object-upload pipeline. size < 0 means unknown length, forcing the
// multipart path regardless of size.
func (c *Client) PutObject(ctx context.Context, bucket, object string, src io.Reader, size int64, opts PutObjectOptions) (ObjectInfo, error) {
	partSize := opts.partSizeOrDefault()
	if size >= 0 && size <= partSize {
		data, err := io.ReadAll(io.LimitReader(src, size+1))
		if err != nil {
			return ObjectInfo{}, &ErrorResponse{Kind: ErrIO, Message: err.Error(), Bucket: bucket, Key: object}
		}
		if int64(len(data)) != size {
			return ObjectInfo{}, &ErrorResponse{Kind: ErrIO, Message: "short read assembling object body", Bucket: bucket, Key: object}
		}
		return c.putObjectSingleShot(ctx, bucket, object, data, opts)
	}
	return c.putObjectMultipart(ctx, bucket, object, src, size, partSize, opts)
}

func (c *Client) putObjectSingleShot(ctx context.Context, bucket, object string, data []byte, opts PutObjectOptions) (ObjectInfo, error) {
	md := newRequestMetadata(http.MethodPut)
	md.bucket, md.object = bucket, object
	md.headers = opts.headers()
	md.body = segbytes.FromSlice(data)
	md.hasBody = true
	md.trailingChecksum = opts.TrailingChecksum
	md.useSignedStreaming = opts.UseSignedStreaming
	// Content-MD5 is only meaningful for a plain (non-aws-chunked) body; a
	// trailing checksum already covers streamed uploads.
	if opts.TrailingChecksum == ChecksumNone && len(data) > 0 {
		md.headers.Set("Content-Md5", contentMD5Base64(data))
	}

	resp, err := c.execute(ctx, md)
	if err != nil {
		return ObjectInfo{}, err
	}
	defer resp.Body.Close()
	return ObjectInfo{ETag: trimQuotes(resp.Header.Get("ETag")), VersionID: resp.Header.Get("x-amz-version-id")}, nil
}

// putObjectMultipart drives CreateMultipartUpload -> UploadPart* ->
// CompleteMultipartUpload, reading part_size+1 bytes at a time so an
// unknown-length source is split correctly (spec.md §4.8).
func (c *Client) putObjectMultipart(ctx context.Context, bucket, object string, src io.Reader, size, partSize int64, opts PutObjectOptions) (ObjectInfo, error) {
	if partSize < MinPartSize || partSize > MaxPartSize {
		return ObjectInfo{}, &ErrorResponse{Kind: ErrInvalidMultipartCount, Code: "InvalidArgument",
			Message: "part size out of [MIN_PART_SIZE, MAX_PART_SIZE] range", Bucket: bucket, Key: object}
	}
	if size > MaxObjectSize {
		return ObjectInfo{}, &ErrorResponse{Kind: ErrInvalidObjectSize, Code: "InvalidArgument",
			Message: "object size exceeds MAX_OBJECT_SIZE", Bucket: bucket, Key: object}
	}

	uploadID, err := c.createMultipartUpload(ctx, bucket, object, opts)
	if err != nil {
		return ObjectInfo{}, err
	}

	var parts []completedPart
	partNumber := 1
	var carry []byte // at most one byte, read-ahead from the previous iteration

	for {
		buf := make([]byte, partSize+1)
		n0 := copy(buf, carry)
		n1, rerr := io.ReadFull(src, buf[n0:])
		if rerr != nil && rerr != io.ErrUnexpectedEOF && rerr != io.EOF {
			_ = c.AbortMultipartUpload(ctx, bucket, object, uploadID)
			return ObjectInfo{}, &ErrorResponse{Kind: ErrIO, Message: rerr.Error(), Bucket: bucket, Key: object}
		}
		total := int64(n0 + n1)

		var partData []byte
		var isLast bool
		if total == partSize+1 {
			partData = buf[:partSize]
			carry = append([]byte(nil), buf[partSize:total]...)
			isLast = false
		} else {
			partData = buf[:total]
			carry = nil
			isLast = true
		}

		if len(partData) > 0 || partNumber == 1 {
			if partNumber > MaxMultipartCount {
				_ = c.AbortMultipartUpload(ctx, bucket, object, uploadID)
				return ObjectInfo{}, &ErrorResponse{Kind: ErrInvalidMultipartCount, Code: "InvalidArgument",
					Message: "part count exceeds MAX_MULTIPART_COUNT", Bucket: bucket, Key: object}
			}
			etag, uerr := c.uploadPart(ctx, bucket, object, uploadID, partNumber, partData)
			if uerr != nil {
				_ = c.AbortMultipartUpload(ctx, bucket, object, uploadID)
				return ObjectInfo{}, uerr
			}
			parts = append(parts, completedPart{Number: partNumber, ETag: etag})
			partNumber++
		}
		if isLast {
			break
		}
	}

	return c.completeMultipartUpload(ctx, bucket, object, uploadID, parts)
}

func trimQuotes(s string) string {
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		return s[1 : len(s)-1]
	}
	return s
}

type completedPart struct {
	Number int
	ETag   string
}

type completeMultipartXML struct {
	XMLName xml.Name           `xml:"CompleteMultipartUpload"`
	Parts   []completePartXML `xml:"Part"`
}

type completePartXML struct {
	PartNumber int    `xml:"PartNumber"`
	ETag       string `xml:"ETag"`
}
