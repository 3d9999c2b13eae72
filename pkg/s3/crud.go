package s3

import (
	"context"
	"encoding/xml"
	"net/http"

	"github.com/minio/s3tables-go/internal/multimap"
	"github.com/minio/s3tables-go/internal/segbytes"
)

// The operations in this file are thin request builders for CRUD-style
// sub-resources (spec.md §1 calls these "external collaborators"): they
// validate nothing beyond what execute/the URL builder already enforce, and
// decode the server's XML directly. They exist so the request engine has
// real, varied callers beyond the upload/compose pipeline.

// Tag is one key/value pair in a TagSet.
type Tag struct {
	Key   string `xml:"Key"`
	Value string `xml:"Value"`
}

type tagging struct {
	XMLName xml.Name `xml:"Tagging"`
	TagSet  []Tag    `xml:"TagSet>Tag"`
}

// GetObjectTagging issues GET /{bucket}/{object}?tagging.
func (c *Client) GetObjectTagging(ctx context.Context, bucket, object string) ([]Tag, error) {
	md := newRequestMetadata(http.MethodGet)
	md.bucket, md.object = bucket, object
	md.query.Set("tagging", "")

	resp, err := c.execute(ctx, md)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var t tagging
	if err := xml.NewDecoder(resp.Body).Decode(&t); err != nil {
		return nil, &ErrorResponse{Kind: ErrIO, Message: "decoding Tagging: " + err.Error(), Bucket: bucket, Key: object}
	}
	return t.TagSet, nil
}

// PutObjectTagging issues PUT /{bucket}/{object}?tagging with a TagSet body.
func (c *Client) PutObjectTagging(ctx context.Context, bucket, object string, tags []Tag) error {
	body, err := xml.Marshal(tagging{TagSet: tags})
	if err != nil {
		return err
	}
	md := newRequestMetadata(http.MethodPut)
	md.bucket, md.object = bucket, object
	md.query.Set("tagging", "")
	md.headers = multimap.New()
	md.headers.Set("Content-Type", "application/xml")
	md.body = segbytes.FromSlice(body)
	md.hasBody = true

	resp, err := c.execute(ctx, md)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return nil
}

// DeleteObjectTagging issues DELETE /{bucket}/{object}?tagging.
func (c *Client) DeleteObjectTagging(ctx context.Context, bucket, object string) error {
	md := newRequestMetadata(http.MethodDelete)
	md.bucket, md.object = bucket, object
	md.query.Set("tagging", "")

	resp, err := c.execute(ctx, md)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return nil
}

// LifecycleRule is one rule in a bucket lifecycle configuration.
type LifecycleRule struct {
	ID                     string `xml:"ID"`
	Status                 string `xml:"Status"`
	Prefix                 string `xml:"Filter>Prefix,omitempty"`
	ExpirationDays         int    `xml:"Expiration>Days,omitempty"`
	NoncurrentExpirationDays int  `xml:"NoncurrentVersionExpiration>NoncurrentDays,omitempty"`
}

type lifecycleConfiguration struct {
	XMLName xml.Name        `xml:"LifecycleConfiguration"`
	Rules   []LifecycleRule `xml:"Rule"`
}

// GetBucketLifecycle issues GET /{bucket}?lifecycle.
func (c *Client) GetBucketLifecycle(ctx context.Context, bucket string) ([]LifecycleRule, error) {
	md := newRequestMetadata(http.MethodGet)
	md.bucket = bucket
	md.query.Set("lifecycle", "")

	resp, err := c.execute(ctx, md)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var lc lifecycleConfiguration
	if err := xml.NewDecoder(resp.Body).Decode(&lc); err != nil {
		return nil, &ErrorResponse{Kind: ErrIO, Message: "decoding LifecycleConfiguration: " + err.Error(), Bucket: bucket}
	}
	return lc.Rules, nil
}

// PutBucketLifecycle issues PUT /{bucket}?lifecycle.
func (c *Client) PutBucketLifecycle(ctx context.Context, bucket string, rules []LifecycleRule) error {
	body, err := xml.Marshal(lifecycleConfiguration{Rules: rules})
	if err != nil {
		return err
	}
	md := newRequestMetadata(http.MethodPut)
	md.bucket = bucket
	md.query.Set("lifecycle", "")
	md.headers = multimap.New()
	md.headers.Set("Content-Type", "application/xml")
	md.body = segbytes.FromSlice(body)
	md.hasBody = true

	resp, err := c.execute(ctx, md)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return nil
}

// VersioningStatus reports whether a bucket has versioning disabled,
// enabled, or suspended.
type VersioningStatus string

const (
	VersioningDisabled VersioningStatus = ""
	VersioningEnabled  VersioningStatus = "Enabled"
	VersioningSuspended VersioningStatus = "Suspended"
)

type versioningConfiguration struct {
	XMLName xml.Name         `xml:"VersioningConfiguration"`
	Status  VersioningStatus `xml:"Status"`
}

// GetBucketVersioning issues GET /{bucket}?versioning.
func (c *Client) GetBucketVersioning(ctx context.Context, bucket string) (VersioningStatus, error) {
	md := newRequestMetadata(http.MethodGet)
	md.bucket = bucket
	md.query.Set("versioning", "")

	resp, err := c.execute(ctx, md)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var vc versioningConfiguration
	if err := xml.NewDecoder(resp.Body).Decode(&vc); err != nil {
		return "", &ErrorResponse{Kind: ErrIO, Message: "decoding VersioningConfiguration: " + err.Error(), Bucket: bucket}
	}
	return vc.Status, nil
}

// PutBucketVersioning issues PUT /{bucket}?versioning.
func (c *Client) PutBucketVersioning(ctx context.Context, bucket string, status VersioningStatus) error {
	body, err := xml.Marshal(versioningConfiguration{Status: status})
	if err != nil {
		return err
	}
	md := newRequestMetadata(http.MethodPut)
	md.bucket = bucket
	md.query.Set("versioning", "")
	md.headers = multimap.New()
	md.headers.Set("Content-Type", "application/xml")
	md.body = segbytes.FromSlice(body)
	md.hasBody = true

	resp, err := c.execute(ctx, md)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return nil
}

// GetBucketPolicy issues GET /{bucket}?policy, returning the raw policy JSON.
func (c *Client) GetBucketPolicy(ctx context.Context, bucket string) (string, error) {
	md := newRequestMetadata(http.MethodGet)
	md.bucket = bucket
	md.query.Set("policy", "")

	resp, err := c.execute(ctx, md)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, err := drainBody(resp)
	if err != nil {
		return "", &ErrorResponse{Kind: ErrIO, Message: err.Error(), Bucket: bucket}
	}
	return string(body), nil
}

// PutBucketPolicy issues PUT /{bucket}?policy with raw policy JSON.
func (c *Client) PutBucketPolicy(ctx context.Context, bucket, policyJSON string) error {
	md := newRequestMetadata(http.MethodPut)
	md.bucket = bucket
	md.query.Set("policy", "")
	md.headers = multimap.New()
	md.headers.Set("Content-Type", "application/json")
	md.body = segbytes.FromSlice([]byte(policyJSON))
	md.hasBody = true

	resp, err := c.execute(ctx, md)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return nil
}

// DeleteBucketPolicy issues DELETE /{bucket}?policy.
func (c *Client) DeleteBucketPolicy(ctx context.Context, bucket string) error {
	md := newRequestMetadata(http.MethodDelete)
	md.bucket = bucket
	md.query.Set("policy", "")

	resp, err := c.execute(ctx, md)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return nil
}

// DeleteObject issues DELETE /{bucket}/{object}.
func (c *Client) DeleteObject(ctx context.Context, bucket, object string) error {
	md := newRequestMetadata(http.MethodDelete)
	md.bucket, md.object = bucket, object

	resp, err := c.execute(ctx, md)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return nil
}

// GetObject issues GET /{bucket}/{object} and returns the response so the
// caller can stream the body without it being buffered here.
func (c *Client) GetObject(ctx context.Context, bucket, object string) (*http.Response, error) {
	md := newRequestMetadata(http.MethodGet)
	md.bucket, md.object = bucket, object
	return c.execute(ctx, md)
}
