package s3

import (
	"context"
	"encoding/xml"
	"iter"
	"net/http"
)

// ObjectSummary is one entry in a ListObjectsV2 page.
type ObjectSummary struct {
	Key          string `xml:"Key"`
	Size         int64  `xml:"Size"`
	ETag         string `xml:"ETag"`
	LastModified string `xml:"LastModified"`
}

type listObjectsV2Result struct {
	XMLName               xml.Name        `xml:"ListBucketResult"`
	IsTruncated           bool            `xml:"IsTruncated"`
	Contents              []ObjectSummary `xml:"Contents"`
	NextContinuationToken string          `xml:"NextContinuationToken"`
}

// listObjectsV2Page issues one GET /{bucket}?list-type=2 call.
func (c *Client) listObjectsV2Page(ctx context.Context, bucket, prefix, continuationToken string) (listObjectsV2Result, error) {
	md := newRequestMetadata(http.MethodGet)
	md.bucket = bucket
	md.query.Set("list-type", "2")
	if prefix != "" {
		md.query.Set("prefix", prefix)
	}
	if continuationToken != "" {
		md.query.Set("continuation-token", continuationToken)
	}

	resp, err := c.execute(ctx, md)
	if err != nil {
		return listObjectsV2Result{}, err
	}
	defer resp.Body.Close()

	var result listObjectsV2Result
	if err := xml.NewDecoder(resp.Body).Decode(&result); err != nil {
		return listObjectsV2Result{}, &ErrorResponse{Kind: ErrIO, Message: "decoding ListBucketResult: " + err.Error(), Bucket: bucket}
	}
	return result, nil
}

// ListObjects returns a Go 1.23 range-over-func iterator that pages through
// a bucket's object list under prefix, stopping at the first error (the
// second yielded value). The caller's range loop can `break` to stop
// fetching further pages early.
func (c *Client) ListObjects(ctx context.Context, bucket, prefix string) iter.Seq2[ObjectSummary, error] {
	return func(yield func(ObjectSummary, error) bool) {
		token := ""
		for {
			page, err := c.listObjectsV2Page(ctx, bucket, prefix, token)
			if err != nil {
				yield(ObjectSummary{}, err)
				return
			}
			for _, obj := range page.Contents {
				if !yield(obj, nil) {
					return
				}
			}
			if !page.IsTruncated {
				return
			}
			token = page.NextContinuationToken
		}
	}
}
