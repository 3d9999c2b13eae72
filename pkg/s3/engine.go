package s3

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/minio/s3tables-go/internal/multimap"
	"github.com/minio/s3tables-go/internal/sig4"
)

// execute implements spec.md §4.5: header preparation, signing, streaming
// body assembly, dispatch, and the one-shot RetryHead retry. It is the sole
// entry point every higher-level operation (PutObject, multipart, compose,
// the CRUD builders) funnels through.
func (c *Client) execute(ctx context.Context, md requestMetadata) (*http.Response, error) {
	resp, err := c.executeAttempt(ctx, md, true /* retriesLeft */)
	if err == nil {
		return resp, nil
	}
	er, ok := err.(*ErrorResponse)
	if !ok || er.Kind != ErrRetryHead {
		return nil, err
	}
	// Exactly one retry on RetryHead, per spec.md §4.5/§8.
	return c.executeAttempt(ctx, md, false /* retriesLeft */)
}

func (c *Client) executeAttempt(ctx context.Context, md requestMetadata, retriesLeft bool) (*http.Response, error) {
	region := md.region
	if region == "" {
		r, err := c.GetRegionCached(md.bucket, "")
		if err != nil {
			return nil, err
		}
		region = r
	}

	target, err := BuildURL(c.base, md.method, region, md.query, md.bucket, md.object)
	if err != nil {
		return nil, err
	}
	headers := md.headers
	if headers == nil {
		headers = multimap.New()
	}
	headers.Set("Host", target.HostHeaderValue())

	rawLen := int64(0)
	hasBody := md.hasBody
	if hasBody {
		rawLen = md.body.Len()
	}

	if md.method == http.MethodPut || md.method == http.MethodPost {
		if !headers.Has("Content-Type") {
			headers.Set("Content-Type", "application/octet-stream")
		}
	}

	var signer *chunkSigner
	streaming := md.trailingChecksum != ChecksumNone && hasBody
	if streaming {
		headers.Set("Content-Encoding", "aws-chunked")
		headers.Set("x-amz-decoded-content-length", itoa(rawLen))
		headers.Set("x-amz-trailer", md.trailingChecksum.TrailerHeaderName())
		headers.Set("Content-Length", itoa(EncodedLength(rawLen, DefaultChunkSize, md.trailingChecksum, md.useSignedStreaming)))
		if md.useSignedStreaming {
			headers.Set("x-amz-content-sha256", sig4.StreamingSignedTrailerPayload)
		} else {
			headers.Set("x-amz-content-sha256", sig4.StreamingUnsignedTrailerPayload)
		}
	} else {
		headers.Set("Content-Length", itoa(rawLen))
		if hasBody {
			headers.Set("x-amz-content-sha256", sha256OfSegments(md.body.Segments()))
		} else {
			headers.Set("x-amz-content-sha256", sig4.EmptySHA256Hex)
		}
	}
	now := time.Now().UTC()
	headers.Set("x-amz-date", sig4.AmzDate(now))
	if !headers.Has("User-Agent") {
		headers.Set("User-Agent", c.userAgent)
	}

	httpReq, err := http.NewRequestWithContext(ctx, md.method, target.String(), nil)
	if err != nil {
		return nil, err
	}
	applyHeaders(httpReq, headers)

	originalURL := httpReq.URL.String()
	for _, hook := range c.beforeSigning {
		if err := hook(httpReq); err != nil {
			return nil, err
		}
	}
	if httpReq.URL.String() != originalURL {
		headers.Set("x-minio-redirect-from", originalURL)
		headers.Set("x-minio-redirect-to", httpReq.URL.String())
		applyHeaders(httpReq, headers)
	}

	if c.creds != nil {
		credVal, err := c.creds.Retrieve()
		if err != nil {
			return nil, err
		}
		if credVal.SessionToken != "" {
			headers.Set("x-amz-security-token", credVal.SessionToken)
			applyHeaders(httpReq, headers)
		}
		signReq := sig4.Request{
			Method:  md.method,
			Path:    target.Path,
			Query:   target.Query,
			Headers: headers,
		}
		seedSignature := sig4.SignV4(signReq, sig4.Credentials(credVal), region, "s3", c.keyCache, now)
		applyHeaders(httpReq, headers)
		if streaming && md.useSignedStreaming {
			signer = newChunkSigner(sig4.Credentials(credVal), region, "s3", c.keyCache, now, seedSignature)
		}
	}

	if err := attachBody(httpReq, md, streaming, signer); err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(httpReq)
	c.dispatchAfterExecute(md, resp, err)
	if err != nil {
		return nil, &ErrorResponse{Kind: ErrNetwork, Message: err.Error(), Bucket: md.bucket, Key: md.object}
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return resp, nil
	}

	body, readErr := drainBody(resp)
	if readErr != nil {
		return nil, &ErrorResponse{Kind: ErrIO, Message: readErr.Error(), Bucket: md.bucket, Key: md.object}
	}
	rctx := &redirectContext{
		isHead:      md.method == http.MethodHead,
		retriesLeft: retriesLeft,
		bucket:      md.bucket,
		cacheLookup: c.regionCache.get,
	}
	er := decodeErrorResponse(resp, body, md.bucket, md.object, rctx)
	if er.Kind == ErrNoSuchBucket || er.Kind == ErrRetryHead {
		c.regionCache.evict(md.bucket)
	}
	return nil, er
}

func (c *Client) dispatchAfterExecute(md requestMetadata, resp *http.Response, err error) {
	info := AfterExecuteInfo{Method: md.method, Bucket: md.bucket, Object: md.object, Err: err}
	if resp != nil {
		info.StatusCode = resp.StatusCode
	}
	for _, hook := range c.afterExecute {
		hook(info)
	}
}

func applyHeaders(req *http.Request, headers *multimap.Multimap) {
	req.Header = make(http.Header)
	for _, k := range headers.Keys() {
		for _, v := range headers.Values(k) {
			req.Header.Add(k, v)
		}
	}
}

func attachBody(req *http.Request, md requestMetadata, streaming bool, signer *chunkSigner) error {
	if !md.hasBody {
		req.Body = nil
		req.ContentLength = 0
		return nil
	}
	if streaming {
		enc := NewChunkedEncoder(md.body.NewReader(), DefaultChunkSize, md.trailingChecksum, signer)
		req.Body = io.NopCloser(enc)
		req.ContentLength = EncodedLength(md.body.Len(), DefaultChunkSize, md.trailingChecksum, md.useSignedStreaming)
		return nil
	}
	req.Body = io.NopCloser(md.body.NewReader())
	req.ContentLength = md.body.Len()
	return nil
}

func sha256OfSegments(segments [][]byte) string {
	h := newChecksumHasher(ChecksumSHA256)
	for _, seg := range segments {
		h.Write(seg)
	}
	return sig4.HexEncode(h.Sum(nil))
}

func itoa(n int64) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}
