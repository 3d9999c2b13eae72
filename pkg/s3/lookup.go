package s3

import (
	"encoding/xml"
	"io"
	"net/http"
	"time"

	"github.com/minio/s3tables-go/internal/multimap"
	"github.com/minio/s3tables-go/internal/s3utils"
	"github.com/minio/s3tables-go/internal/sig4"
)

// lookupBucketRegion issues the unsigned-region, path-style
// "GET /{bucket}?location" call against us-east-1 and decodes the
// <LocationConstraint> response, grounded on the teacher's
// getBucketLocationRequest/getBucketLocation/processBucketLocationResponse.
// GetRegionCached caches the result, so it runs again for a bucket only
// after that bucket's entry is missing or has been evicted.
func (c *Client) lookupBucketRegion(bucket string) (string, error) {
	if err := s3utils.CheckValidBucketName(bucket); err != nil {
		return "", err
	}

	query := multimap.New()
	query.Set("location", "")
	target, err := BuildURL(c.base, http.MethodGet, defaultRegion, query, bucket, "")
	if err != nil {
		return "", err
	}

	headers := multimap.New()
	headers.Set("Host", target.HostHeaderValue())
	headers.Set("x-amz-content-sha256", sig4.EmptySHA256Hex)
	now := time.Now().UTC()
	headers.Set("x-amz-date", sig4.AmzDate(now))
	headers.Set("User-Agent", c.userAgent)

	httpReq, err := http.NewRequest(http.MethodGet, target.String(), nil)
	if err != nil {
		return "", err
	}
	applyHeaders(httpReq, headers)

	if c.creds != nil {
		credVal, err := c.creds.Retrieve()
		if err != nil {
			return "", err
		}
		signReq := sig4.Request{Method: http.MethodGet, Path: target.Path, Query: target.Query, Headers: headers}
		sig4.SignV4(signReq, sig4.Credentials(credVal), defaultRegion, "s3", c.keyCache, now)
		applyHeaders(httpReq, headers)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", &ErrorResponse{Kind: ErrNetwork, Message: err.Error(), Bucket: bucket}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		er := decodeErrorResponse(resp, body, bucket, "", nil)
		switch er.Code {
		case "AuthorizationHeaderMalformed", "InvalidRegion", "AccessDenied":
			// An anonymous or region-mismatched probe still lets the caller
			// proceed with the default region, per the teacher's fallback.
			return defaultRegion, nil
		}
		return "", er
	}

	var locationConstraint struct {
		XMLName xml.Name `xml:"LocationConstraint"`
		Value   string   `xml:",chardata"`
	}
	if err := xml.NewDecoder(resp.Body).Decode(&locationConstraint); err != nil {
		return "", &ErrorResponse{Kind: ErrIO, Message: "decoding LocationConstraint: " + err.Error(), Bucket: bucket}
	}

	switch locationConstraint.Value {
	case "":
		return "us-east-1", nil
	case "EU":
		return "eu-west-1", nil
	default:
		return locationConstraint.Value, nil
	}
}
