// Package sig4 implements AWS Signature Version 4: canonical-request
// construction, signing-key derivation and caching, and the three signer
// entry points the request engine needs — header signing, presigning, and
// POST-policy signing. It generalizes the teacher's vendored
// minio-go/pkg/s3signer into a standalone, engine-agnostic package operating
// on *multimap.Multimap rather than *http.Request, so it can also drive the
// aws-chunked per-chunk signatures in pkg/s3/chunked.go.
package sig4

import (
	"encoding/base64"
	"strconv"
	"strings"
	"time"

	"github.com/minio/s3tables-go/internal/multimap"
)

const (
	// Algorithm is the SigV4 algorithm name used in both the Authorization
	// header and the presigned-query-string form.
	Algorithm = "AWS4-HMAC-SHA256"

	iso8601DateFormat = "20060102T150405Z"
	yyyymmdd          = "20060102"
)

// Credentials is the tuple fetched fresh from a credential provider on every
// request; it is never cached or stored inside the signer or key cache.
type Credentials struct {
	AccessKeyID     string
	SecretAccessKey string
	SessionToken    string
}

// Request is the subset of an S3Request the signer needs: enough to build
// a canonical request without depending on net/http.
type Request struct {
	Method  string
	Path    string // raw (unencoded) URI path, e.g. "/bucket/key with spaces"
	Query   *multimap.Multimap
	Headers *multimap.Multimap
}

// Scope renders the "YYYYMMDD/region/service/aws4_request" credential scope.
func Scope(t time.Time, region, service string) string {
	return strings.Join([]string{t.Format(yyyymmdd), region, service, "aws4_request"}, "/")
}

// AmzDate renders t in the ISO-8601 basic form AWS requires for the
// x-amz-date header and presign query parameter.
func AmzDate(t time.Time) string { return t.Format(iso8601DateFormat) }

// CanonicalRequest builds the six-line canonical request string.
func CanonicalRequest(method, encodedPath, canonicalQuery, canonicalHeaders, signedHeaders, payloadHash string) string {
	return strings.Join([]string{
		method,
		encodedPath,
		canonicalQuery,
		canonicalHeaders,
		"",
		signedHeaders,
		payloadHash,
	}, "\n")
}

// StringToSign builds the "AWS4-HMAC-SHA256\n<date>\n<scope>\n<hash>" form.
func StringToSign(t time.Time, scope, canonicalRequest string) string {
	return Algorithm + "\n" + AmzDate(t) + "\n" + scope + "\n" + SHA256Hex([]byte(canonicalRequest))
}

// encodedPath renders the canonical URI: each segment percent-encoded per
// the SigV4 unreserved set, with "/" preserved as the segment separator. An
// empty path canonicalizes to "/".
func encodedPath(path string) string {
	if path == "" {
		return "/"
	}
	return multimap.EncodePathSegment(path)
}

// SignV4 signs req in place by adding an Authorization header, and returns
// the signature hex string. The caller MUST already have set Host,
// x-amz-date, x-amz-content-sha256, and (for session credentials)
// x-amz-security-token before calling this.
func SignV4(req Request, creds Credentials, region, service string, cache *KeyCache, now time.Time) string {
	payloadHash := req.Headers.Get("x-amz-content-sha256")
	if payloadHash == "" {
		payloadHash = req.Headers.Get("X-Amz-Content-Sha256")
	}
	canonicalHeaders, signedHeaders := req.Headers.CanonicalHeaders()
	canonicalQuery := ""
	if req.Query != nil {
		canonicalQuery = req.Query.CanonicalQueryString()
	}
	cr := CanonicalRequest(req.Method, encodedPath(req.Path), canonicalQuery, canonicalHeaders, signedHeaders, payloadHash)

	scope := Scope(now, region, service)
	sts := StringToSign(now, scope, cr)
	key := cache.Derive(creds.SecretAccessKey, now.Format(yyyymmdd), region, service)
	signature := HexEncode(HMACSHA256(key, []byte(sts)))

	auth := Algorithm + " Credential=" + creds.AccessKeyID + "/" + scope +
		", SignedHeaders=" + signedHeaders + ", Signature=" + signature
	req.Headers.Set("Authorization", auth)
	return signature
}

// PresignV4 returns the query multimap augmented with every SigV4 query
// parameter (X-Amz-Algorithm, X-Amz-Credential, X-Amz-Date, X-Amz-Expires,
// X-Amz-SignedHeaders=host, X-Amz-Signature, and X-Amz-Security-Token if a
// session token is present). The canonical header block for a presigned URL
// contains only "host", and the payload hash is always UNSIGNED-PAYLOAD.
func PresignV4(req Request, creds Credentials, region, service string, expires time.Duration, cache *KeyCache, now time.Time) *multimap.Multimap {
	query := req.Query
	if query == nil {
		query = multimap.New()
	}
	query.Set("X-Amz-Algorithm", Algorithm)
	scope := Scope(now, region, service)
	query.Set("X-Amz-Credential", creds.AccessKeyID+"/"+scope)
	query.Set("X-Amz-Date", AmzDate(now))
	query.Set("X-Amz-Expires", strconv.FormatInt(int64(expires/time.Second), 10))
	query.Set("X-Amz-SignedHeaders", "host")
	if creds.SessionToken != "" {
		query.Set("X-Amz-Security-Token", creds.SessionToken)
	}

	hostOnly := multimap.New()
	hostOnly.Set("host", req.Headers.Get("host"))
	canonicalHeaders, _ := hostOnly.CanonicalHeaders()

	cr := CanonicalRequest(req.Method, encodedPath(req.Path), query.CanonicalQueryString(), canonicalHeaders, "host", UnsignedPayload)
	sts := StringToSign(now, scope, cr)
	key := cache.Derive(creds.SecretAccessKey, now.Format(yyyymmdd), region, service)
	signature := HexEncode(HMACSHA256(key, []byte(sts)))
	query.Set("X-Amz-Signature", signature)
	return query
}

// PostPresignV4 HMACs a base64-encoded POST policy document against the
// derived signing key and returns the hex signature for the POST form
// field "x-amz-signature".
func PostPresignV4(policy []byte, creds Credentials, region, service string, cache *KeyCache, now time.Time) (policyBase64, signature string) {
	policyBase64 = base64.StdEncoding.EncodeToString(policy)
	key := cache.Derive(creds.SecretAccessKey, now.Format(yyyymmdd), region, service)
	signature = HexEncode(HMACSHA256(key, []byte(policyBase64)))
	return policyBase64, signature
}
