package s3

import (
	"context"
	"encoding/xml"
	"net/http"
	"net/url"
	"strings"

	"github.com/minio/s3tables-go/internal/multimap"
)

// ComposeSource names one source object (and optional byte range/conditions)
// to be concatenated server-side into a destination object, per spec.md
// §4.8.
type ComposeSource struct {
	Bucket  string
	Object  string

	Offset int64 // -1 = unset
	Length int64 // -1 = unset (whole object, minus Offset)

	MatchETag       string
	NotMatchETag    string
	ModifiedSince   string // RFC1123 string, caller-formatted
	UnmodifiedSince string

	SSECCopySourceKey string // base64 customer key, if the source is SSE-C

	size int64 // filled in by calculate_part_count via StatObject
}

// NewComposeSource returns a whole-object ComposeSource (no offset/length
// slicing). Offset and Length default to -1 ("unset") rather than to the
// zero value, since 0 is a meaningful offset.
func NewComposeSource(bucket, object string) ComposeSource {
	return ComposeSource{Bucket: bucket, Object: object, Offset: -1, Length: -1}
}

// copySourceSpec renders a ComposeSource as the headers a single
// UploadPartCopy/CopyObject request needs.
type copySourceSpec struct {
	source     ComposeSource
	rangeStart int64
	rangeEnd   int64 // -1 = to end
}

func (s *copySourceSpec) headers() *multimap.Multimap {
	h := multimap.New()
	copySource := "/" + s.source.Bucket + "/" + url.PathEscape(s.source.Object)
	h.Set("x-amz-copy-source", copySource)
	if s.rangeEnd >= 0 {
		h.Set("x-amz-copy-source-range", "bytes="+itoa(s.rangeStart)+"-"+itoa(s.rangeEnd))
	}
	if s.source.MatchETag != "" {
		h.Set("x-amz-copy-source-if-match", s.source.MatchETag)
	}
	if s.source.NotMatchETag != "" {
		h.Set("x-amz-copy-source-if-none-match", s.source.NotMatchETag)
	}
	if s.source.ModifiedSince != "" {
		h.Set("x-amz-copy-source-if-modified-since", s.source.ModifiedSince)
	}
	if s.source.UnmodifiedSince != "" {
		h.Set("x-amz-copy-source-if-unmodified-since", s.source.UnmodifiedSince)
	}
	if s.source.SSECCopySourceKey != "" {
		h.Set("x-amz-copy-source-server-side-encryption-customer-algorithm", "AES256")
		h.Set("x-amz-copy-source-server-side-encryption-customer-key", s.source.SSECCopySourceKey)
	}
	return h
}

// sourcePart is one contributed slice of a ComposeSource to the destination
// object, the output of calculate_part_count.
type sourcePart struct {
	source ComposeSource
	start  int64
	length int64
}

// calculatePartCount implements spec.md §4.8's calculate_part_count: it
// stats every source, then splits each into MAX_PART_SIZE-bounded slices,
// enforcing the MIN_PART_SIZE / MAX_OBJECT_SIZE / MAX_MULTIPART_COUNT
// invariants before any write traffic is issued.
func (c *Client) calculatePartCount(ctx context.Context, sources []ComposeSource) ([]sourcePart, error) {
	if len(sources) == 0 {
		return nil, &ErrorResponse{Kind: ErrValidation, Code: "InvalidArgument", Message: "compose requires at least one source"}
	}

	resolved := make([]ComposeSource, len(sources))
	for i, src := range sources {
		stat, err := c.StatObject(ctx, src.Bucket, src.Object)
		if err != nil {
			return nil, err
		}
		size := stat.Size
		if src.Length >= 0 {
			size = src.Length
		} else if src.Offset >= 0 {
			size = stat.Size - src.Offset
		}
		src.size = size
		resolved[i] = src
	}

	var parts []sourcePart
	var totalSize int64
	for i, src := range resolved {
		isOnly := len(resolved) == 1
		isLast := i == len(resolved)-1

		offset := int64(0)
		if src.Offset >= 0 {
			offset = src.Offset
		}

		if !isOnly && !isLast && src.size < MinPartSize {
			return nil, &ErrorResponse{Kind: ErrInvalidComposeSourcePartSize, Code: "InvalidComposeSourcePartSize",
				Message: "contributed source size is below MIN_PART_SIZE", Bucket: src.Bucket, Key: src.Object}
		}

		var subparts []sourcePart
		remaining := src.size
		cursor := offset
		for remaining > 0 {
			n := int64(MaxPartSize)
			if remaining < n {
				n = remaining
			}
			subparts = append(subparts, sourcePart{source: src, start: cursor, length: n})
			cursor += n
			remaining -= n
		}
		if len(subparts) == 0 {
			subparts = append(subparts, sourcePart{source: src, start: offset, length: 0})
		}

		if len(subparts) > 1 && !isOnly && !isLast {
			lastSub := subparts[len(subparts)-1]
			if lastSub.length < MinPartSize {
				return nil, &ErrorResponse{Kind: ErrInvalidComposeSourceMultipart, Code: "InvalidComposeSourceMultipart",
					Message: "final sub-part of a split compose source is below MIN_PART_SIZE", Bucket: src.Bucket, Key: src.Object}
			}
		}

		parts = append(parts, subparts...)
		totalSize += src.size
	}

	if totalSize > MaxObjectSize {
		return nil, &ErrorResponse{Kind: ErrInvalidObjectSize, Code: "InvalidArgument", Message: "compose result exceeds MAX_OBJECT_SIZE"}
	}
	if len(parts) > MaxMultipartCount {
		return nil, &ErrorResponse{Kind: ErrInvalidMultipartCount, Code: "InvalidArgument", Message: "compose result exceeds MAX_MULTIPART_COUNT"}
	}
	return parts, nil
}

// ComposeObject implements spec.md §4.8's compose pipeline: degrading to a
// single CopyObject in the degenerate one-source, one-part, unsliced case,
// and otherwise driving CreateMultipartUpload -> UploadPartCopy* ->
// CompleteMultipartUpload.
func (c *Client) ComposeObject(ctx context.Context, dstBucket, dstObject string, sources []ComposeSource, opts PutObjectOptions) (ObjectInfo, error) {
	parts, err := c.calculatePartCount(ctx, sources)
	if err != nil {
		return ObjectInfo{}, err
	}

	if len(sources) == 1 && sources[0].Offset < 0 && sources[0].Length < 0 && len(parts) == 1 {
		return c.CopyObject(ctx, dstBucket, dstObject, sources[0], opts)
	}

	uploadID, err := c.createMultipartUpload(ctx, dstBucket, dstObject, opts)
	if err != nil {
		return ObjectInfo{}, err
	}

	var completed []completedPart
	for i, p := range parts {
		spec := &copySourceSpec{source: p.source, rangeStart: p.start, rangeEnd: -1}
		if p.source.Offset >= 0 || p.source.Length >= 0 || len(parts) > 1 {
			spec.rangeEnd = p.start + p.length - 1
		}
		etag, err := c.uploadPartCopy(ctx, dstBucket, dstObject, uploadID, i+1, spec)
		if err != nil {
			_ = c.AbortMultipartUpload(ctx, dstBucket, dstObject, uploadID)
			return ObjectInfo{}, err
		}
		completed = append(completed, completedPart{Number: i + 1, ETag: etag})
	}

	return c.completeMultipartUpload(ctx, dstBucket, dstObject, uploadID, completed)
}

// CopyObject implements a single-request server-side copy, falling through
// to ComposeObject when the source exceeds MAX_PART_SIZE (spec.md §4.8's
// copy<->compose recursion, which always terminates because the re-entry
// either splits the source across parts or is itself a plain copy).
func (c *Client) CopyObject(ctx context.Context, dstBucket, dstObject string, source ComposeSource, opts PutObjectOptions) (ObjectInfo, error) {
	stat, err := c.StatObject(ctx, source.Bucket, source.Object)
	if err != nil {
		return ObjectInfo{}, err
	}
	size := stat.Size
	if source.Length >= 0 {
		size = source.Length
	} else if source.Offset >= 0 {
		size = stat.Size - source.Offset
	}
	if size > MaxPartSize {
		return c.ComposeObject(ctx, dstBucket, dstObject, []ComposeSource{source}, opts)
	}

	if source.SSECCopySourceKey != "" && !c.base.HTTPS {
		return ObjectInfo{}, &ErrorResponse{Kind: ErrSseTLSRequired, Code: "SseTlsRequired",
			Message: "SSE-C copy source requires HTTPS", Bucket: dstBucket, Key: dstObject}
	}

	md := newRequestMetadata(http.MethodPut)
	md.bucket, md.object = dstBucket, dstObject
	spec := &copySourceSpec{source: source, rangeStart: 0, rangeEnd: -1}
	md.headers = spec.headers()
	for k, v := range opts.UserMetadata {
		md.headers.Set("x-amz-meta-"+strings.ToLower(k), v)
	}

	resp, err := c.execute(ctx, md)
	if err != nil {
		return ObjectInfo{}, err
	}
	defer resp.Body.Close()

	var result struct {
		XMLName xml.Name `xml:"CopyObjectResult"`
		ETag    string   `xml:"ETag"`
	}
	if err := xml.NewDecoder(resp.Body).Decode(&result); err != nil {
		return ObjectInfo{}, &ErrorResponse{Kind: ErrIO, Message: "decoding CopyObjectResult: " + err.Error(), Bucket: dstBucket, Key: dstObject}
	}
	return ObjectInfo{ETag: trimQuotes(result.ETag), VersionID: resp.Header.Get("x-amz-version-id")}, nil
}
