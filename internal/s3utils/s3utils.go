// Package s3utils holds small, dependency-free helpers for bucket/object
// name validation and AWS endpoint classification. It plays the role the
// teacher client vendors as "github.com/minio/minio-go/pkg/s3utils": a grab
// bag of pure functions the signer, URL builder, and region cache all share.
package s3utils

import (
	"net"
	"net/url"
	"regexp"
	"strings"
	"unicode"
)

var (
	validBucketName       = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9.\-]{1,61}[A-Za-z0-9]$`)
	validBucketNameStrict = regexp.MustCompile(`^[a-z0-9][a-z0-9.\-]{1,61}[a-z0-9]$`)
	ipAddress             = regexp.MustCompile(`^(\d+\.){3}\d+$`)
)

// CheckValidBucketName validates a bucket name against the relaxed S3 rule
// set (matches the historical minio-go behavior: allows uppercase, but
// enforces length and character set).
func CheckValidBucketName(bucket string) error {
	if strings.TrimSpace(bucket) == "" {
		return newValidationError("bucket name cannot be empty")
	}
	if len(bucket) < 3 || len(bucket) > 63 {
		return newValidationError("bucket name must be between 3 and 63 characters long")
	}
	if !validBucketName.MatchString(bucket) {
		return newValidationError("bucket name contains invalid characters")
	}
	if ipAddress.MatchString(bucket) {
		return newValidationError("bucket name cannot be an IP address")
	}
	if strings.Contains(bucket, "..") || strings.Contains(bucket, ".-") || strings.Contains(bucket, "-.") {
		return newValidationError("bucket name contains invalid character sequences")
	}
	return nil
}

// CheckValidBucketNameStrict additionally rejects uppercase letters, the
// stricter DNS-compliant rule required for virtual-host-style addressing
// and transfer acceleration.
func CheckValidBucketNameStrict(bucket string) error {
	if err := CheckValidBucketName(bucket); err != nil {
		return err
	}
	if !validBucketNameStrict.MatchString(bucket) {
		return newValidationError("bucket name must be DNS-compliant (lowercase) for this operation")
	}
	return nil
}

// CheckValidObjectName validates an object key: non-empty and valid UTF-8.
func CheckValidObjectName(object string) error {
	if object == "" {
		return newValidationError("object name cannot be empty")
	}
	return checkValidObjectNamePrefix(object)
}

func checkValidObjectNamePrefix(prefix string) error {
	if len(prefix) > 1024 {
		return newValidationError("object name cannot be longer than 1024 characters")
	}
	for _, r := range prefix {
		if r == unicode.ReplacementChar {
			return newValidationError("object name contains invalid UTF-8")
		}
	}
	return nil
}

type validationError struct{ msg string }

func (e *validationError) Error() string { return e.msg }

func newValidationError(msg string) error { return &validationError{msg} }

// EncodePath percent-encodes each path segment per SigV4 rules (unreserved
// set passes through, "/" is preserved as a segment separator, everything
// else becomes uppercase-hex percent escapes of its UTF-8 bytes).
func EncodePath(path string) string {
	const unreserved = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789-_.~"
	var b strings.Builder
	for i := 0; i < len(path); i++ {
		c := path[i]
		switch {
		case strings.IndexByte(unreserved, c) >= 0 || c == '/':
			b.WriteByte(c)
		default:
			b.WriteByte('%')
			b.WriteByte("0123456789ABCDEF"[c>>4])
			b.WriteByte("0123456789ABCDEF"[c&0xf])
		}
	}
	return b.String()
}

// QueryEncode renders url.Values the way SigV4 canonical query strings
// require: sorted keys, "/" percent-encoded in both keys and values.
func QueryEncode(v url.Values) string {
	if len(v) == 0 {
		return ""
	}
	keys := make([]string, 0, len(v))
	for k := range v {
		keys = append(keys, k)
	}
	sortStrings(keys)
	var b strings.Builder
	first := true
	for _, k := range keys {
		vals := append([]string(nil), v[k]...)
		sortStrings(vals)
		for _, val := range vals {
			if !first {
				b.WriteByte('&')
			}
			first = false
			b.WriteString(queryEscape(k))
			b.WriteByte('=')
			b.WriteString(queryEscape(val))
		}
	}
	return b.String()
}

func queryEscape(s string) string {
	const unreserved = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789-_.~"
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		if strings.IndexByte(unreserved, c) >= 0 {
			b.WriteByte(c)
		} else {
			b.WriteByte('%')
			b.WriteByte("0123456789ABCDEF"[c>>4])
			b.WriteByte("0123456789ABCDEF"[c&0xf])
		}
	}
	return b.String()
}

func sortStrings(s []string) {
	// insertion sort: these lists are always short (query params).
	for i := 1; i < len(s); i++ {
		for j := i; j > 0 && s[j-1] > s[j]; j-- {
			s[j-1], s[j] = s[j], s[j-1]
		}
	}
}

// Endpoint classification. Regexes mirror the historical minio-go/aws-sdk
// patterns for recognizing AWS-operated S3 endpoints and their variants.
var (
	reS3Regional     = regexp.MustCompile(`^s3[.-]([a-z0-9-]+)\.amazonaws\.com(\.cn)?$`)
	reS3Accelerate   = regexp.MustCompile(`^s3-accelerate(\.dualstack)?\.amazonaws\.com$`)
	reS3Dualstack    = regexp.MustCompile(`\.dualstack\.`)
	reFIPS           = regexp.MustCompile(`s3-fips[.-]`)
	reGovCloud       = regexp.MustCompile(`us-gov-`)
	reOutposts       = regexp.MustCompile(`\.s3-outposts\.`)
	reAccessPoint    = regexp.MustCompile(`^s3-accesspoint[.-]`)
	reVPCE           = regexp.MustCompile(`\.vpce-`)
	reGoogleEndpoint = regexp.MustCompile(`^(.*\.)?storage\.googleapis\.com$`)
)

// IsAmazonEndpoint reports whether u addresses an AWS-operated S3 endpoint
// (any region, including China partitions and accelerate).
func IsAmazonEndpoint(u url.URL) bool {
	host := stripPort(u.Host)
	return reS3Regional.MatchString(host) || reS3Accelerate.MatchString(host) || host == "s3.amazonaws.com"
}

// IsAmazonFIPSEndpoint reports whether host encodes a FIPS S3 endpoint.
func IsAmazonFIPSEndpoint(u url.URL) bool {
	return reFIPS.MatchString(stripPort(u.Host))
}

// IsAmazonGovCloudEndpoint reports whether host addresses a GovCloud region.
func IsAmazonGovCloudEndpoint(u url.URL) bool {
	return reGovCloud.MatchString(stripPort(u.Host))
}

// IsAmazonAccelerateEndpoint reports whether host is the global transfer
// acceleration endpoint.
func IsAmazonAccelerateEndpoint(u url.URL) bool {
	return reS3Accelerate.MatchString(stripPort(u.Host))
}

// IsDualStackEndpoint reports whether host carries the "dualstack" prefix.
func IsDualStackEndpoint(u url.URL) bool {
	return reS3Dualstack.MatchString(stripPort(u.Host))
}

// IsAmazonOutpostsEndpoint reports an S3-on-Outposts-shaped host.
func IsAmazonOutpostsEndpoint(u url.URL) bool {
	return reOutposts.MatchString(stripPort(u.Host))
}

// IsVPCEndpoint reports a VPC endpoint (vpce-*) host.
func IsVPCEndpoint(u url.URL) bool {
	return reVPCE.MatchString(stripPort(u.Host))
}

// IsAmazonAccessPointEndpoint reports an S3 access-point host, which must
// not be addressed over plain HTTP.
func IsAmazonAccessPointEndpoint(u url.URL) bool {
	return reAccessPoint.MatchString(stripPort(u.Host))
}

// IsGoogleEndpoint reports a Google Cloud Storage endpoint.
func IsGoogleEndpoint(u url.URL) bool {
	return reGoogleEndpoint.MatchString(stripPort(u.Host))
}

// IsVirtualHostSupported reports whether virtual-host-style addressing can
// be used for bucketName against endpoint u. AWS and GCS support it for
// DNS-compliant bucket names; everything else defaults to path-style.
func IsVirtualHostSupported(u url.URL, bucketName string) bool {
	if bucketName == "" {
		return false
	}
	if !IsAmazonEndpoint(u) && !IsGoogleEndpoint(u) {
		return false
	}
	if strings.Contains(bucketName, ".") && u.Scheme == "https" {
		// A dot in the bucket name breaks TLS SNI/certificate matching for
		// virtual-host addressing.
		return false
	}
	return CheckValidBucketNameStrict(bucketName) == nil
}

// GetRegionFromURL extracts the region component from an AWS regional S3
// hostname, or "" if the host does not encode one (e.g. a MinIO endpoint).
func GetRegionFromURL(u url.URL) string {
	host := stripPort(u.Host)
	if host == "s3.amazonaws.com" || reS3Accelerate.MatchString(host) {
		return ""
	}
	m := reS3Regional.FindStringSubmatch(host)
	if m == nil {
		return ""
	}
	region := m[1]
	if region == "external-1" || region == "" {
		return "us-east-1"
	}
	return region
}

func stripPort(host string) string {
	if h, _, err := net.SplitHostPort(host); err == nil {
		return h
	}
	return host
}
