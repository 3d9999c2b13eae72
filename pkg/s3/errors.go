package s3

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"net/http"
)

// ErrorKind is the closed taxonomy of error classes this client recognizes,
// derived from HTTP status, headers, and XML payloads per spec.md §4.4.
type ErrorKind int

const (
	ErrUnknown ErrorKind = iota
	ErrNoSuchBucket
	ErrNoSuchKey
	ErrRetryHead
	ErrPermanentRedirect
	ErrRedirect
	ErrBadRequest
	ErrAccessDenied
	ErrMethodNotAllowed
	ErrResourceConflict
	ErrResourceNotFound
	ErrRegionMismatch
	ErrPostPolicyError
	ErrOrphanedMetadata
	ErrNamespaceNotEmpty
	ErrWarehouseNotFound
	ErrInvalidInventoryJobID
	ErrInvalidConfig
	ErrInvalidComposeSourcePartSize
	ErrInvalidComposeSourceMultipart
	ErrInvalidObjectSize
	ErrInvalidMultipartCount
	ErrInvalidRetentionConfig
	ErrSseTLSRequired
	ErrUnsupportedAPI
	ErrServerError
	ErrIO
	ErrNetwork
	ErrValidation
	ErrTables
)

func (k ErrorKind) String() string {
	switch k {
	case ErrNoSuchBucket:
		return "NoSuchBucket"
	case ErrNoSuchKey:
		return "NoSuchKey"
	case ErrRetryHead:
		return "RetryHead"
	case ErrPermanentRedirect:
		return "PermanentRedirect"
	case ErrRedirect:
		return "Redirect"
	case ErrBadRequest:
		return "BadRequest"
	case ErrAccessDenied:
		return "AccessDenied"
	case ErrMethodNotAllowed:
		return "MethodNotAllowed"
	case ErrResourceConflict:
		return "ResourceConflict"
	case ErrResourceNotFound:
		return "ResourceNotFound"
	case ErrRegionMismatch:
		return "RegionMismatch"
	case ErrPostPolicyError:
		return "PostPolicyError"
	case ErrOrphanedMetadata:
		return "OrphanedMetadata"
	case ErrNamespaceNotEmpty:
		return "NamespaceNotEmpty"
	case ErrWarehouseNotFound:
		return "WarehouseNotFound"
	case ErrInvalidInventoryJobID:
		return "InvalidInventoryJobId"
	case ErrInvalidConfig:
		return "InvalidConfig"
	case ErrInvalidComposeSourcePartSize:
		return "InvalidComposeSourcePartSize"
	case ErrInvalidComposeSourceMultipart:
		return "InvalidComposeSourceMultipart"
	case ErrInvalidObjectSize:
		return "InvalidObjectSize"
	case ErrInvalidMultipartCount:
		return "InvalidMultipartCount"
	case ErrInvalidRetentionConfig:
		return "InvalidRetentionConfig"
	case ErrSseTLSRequired:
		return "SseTlsRequired"
	case ErrUnsupportedAPI:
		return "UnsupportedApi"
	case ErrServerError:
		return "ServerError"
	case ErrIO:
		return "IO"
	case ErrNetwork:
		return "Network"
	case ErrValidation:
		return "Validation"
	case ErrTables:
		return "Tables"
	default:
		return "Unknown"
	}
}

// ErrorResponse is the structured, user-visible error returned by this
// client. It carries everything spec.md §7 requires for logging and
// diagnosis without further lookups: bucket, object, code, message,
// request-id, host-id.
type ErrorResponse struct {
	Kind       ErrorKind
	Code       string
	Message    string
	Resource   string
	RequestID  string
	HostID     string
	Bucket     string
	Key        string
	StatusCode int
}

func (e *ErrorResponse) Error() string {
	return fmt.Sprintf("%s: %s (bucket=%q key=%q status=%d request-id=%q)",
		e.Kind, e.Message, e.Bucket, e.Key, e.StatusCode, e.RequestID)
}

// xmlErrorBody mirrors the <Error>...</Error> document S3-compatible
// servers emit on failure.
type xmlErrorBody struct {
	XMLName   xml.Name `xml:"Error"`
	Code      string   `xml:"Code"`
	Message   string   `xml:"Message"`
	Resource  string   `xml:"Resource"`
	RequestID string   `xml:"RequestId"`
	HostID    string   `xml:"HostId"`
	Region    string   `xml:"Region"`
	BucketName string  `xml:"BucketName"`
	Key       string   `xml:"Key"`
}

// codeToKind maps the server's string error Code to our closed ErrorKind
// enum. Codes outside this table surface as ErrServerError with the raw
// code preserved on ErrorResponse.Code.
var codeToKind = map[string]ErrorKind{
	"NoSuchBucket":          ErrNoSuchBucket,
	"NoSuchKey":             ErrNoSuchKey,
	"AccessDenied":          ErrAccessDenied,
	"MethodNotAllowed":      ErrMethodNotAllowed,
	"BadRequest":            ErrBadRequest,
	"InvalidBucketName":     ErrBadRequest,
	"PermanentRedirect":     ErrPermanentRedirect,
	"Redirect":              ErrRedirect,
	"BucketNotEmpty":        ErrResourceConflict,
	"NamespaceNotEmpty":     ErrNamespaceNotEmpty,
	"WarehouseNotFound":     ErrWarehouseNotFound,
	"InvalidInventoryJobId": ErrInvalidInventoryJobID,
	"OrphanedMetadata":      ErrOrphanedMetadata,
}

// decodeErrorResponse parses a non-2xx HTTP response into an *ErrorResponse
// per spec.md §4.4: XML body when present and declared application/xml,
// otherwise synthesized from the status code. redirectCtx carries the
// request-side facts (method, retry budget, region cache) decodeRedirect
// needs to distinguish RetryHead from a plain Redirect; it may be nil.
func decodeErrorResponse(resp *http.Response, body []byte, bucket, key string, redirectCtx *redirectContext) *ErrorResponse {
	contentType := resp.Header.Get("Content-Type")
	if len(body) > 0 && containsXML(contentType) {
		var x xmlErrorBody
		if err := xml.Unmarshal(body, &x); err == nil && x.Code != "" {
			kind, ok := codeToKind[x.Code]
			if !ok {
				kind = ErrServerError
			}
			er := &ErrorResponse{
				Kind:       kind,
				Code:       x.Code,
				Message:    x.Message,
				Resource:   x.Resource,
				RequestID:  firstNonEmpty(x.RequestID, resp.Header.Get("x-amz-request-id")),
				HostID:     firstNonEmpty(x.HostID, resp.Header.Get("x-amz-id-2")),
				Bucket:     firstNonEmpty(x.BucketName, bucket),
				Key:        firstNonEmpty(x.Key, key),
				StatusCode: resp.StatusCode,
			}
			return er
		}
	}
	return synthesizeError(resp, bucket, key, redirectCtx)
}

func containsXML(contentType string) bool {
	for _, want := range []string{"application/xml", "text/xml"} {
		if len(contentType) >= len(want) && indexOf(contentType, want) >= 0 {
			return true
		}
	}
	return false
}

func indexOf(haystack, needle string) int {
	for i := 0; i+len(needle) <= len(haystack); i++ {
		if haystack[i:i+len(needle)] == needle {
			return i
		}
	}
	return -1
}

func firstNonEmpty(a, b string) string {
	if a != "" {
		return a
	}
	return b
}

// synthesizeError builds an ErrorResponse from status code alone, per the
// table in spec.md §4.4, for bodies that are empty or not XML.
func synthesizeError(resp *http.Response, bucket, key string, redirectCtx *redirectContext) *ErrorResponse {
	base := &ErrorResponse{
		RequestID:  resp.Header.Get("x-amz-request-id"),
		HostID:     resp.Header.Get("x-amz-id-2"),
		Bucket:     bucket,
		Key:        key,
		StatusCode: resp.StatusCode,
	}
	switch resp.StatusCode {
	case http.StatusMovedPermanently, http.StatusTemporaryRedirect, http.StatusBadRequest:
		return decodeRedirect(resp, base, redirectCtx)
	case http.StatusForbidden:
		base.Kind, base.Code, base.Message = ErrAccessDenied, "AccessDenied", "Access Denied."
	case http.StatusNotFound:
		if key != "" {
			base.Kind, base.Code, base.Message = ErrNoSuchKey, "NoSuchKey", "The specified key does not exist."
		} else if bucket != "" {
			base.Kind, base.Code, base.Message = ErrNoSuchBucket, "NoSuchBucket", "The specified bucket does not exist."
		} else {
			base.Kind, base.Code, base.Message = ErrResourceNotFound, "ResourceNotFound", "The specified resource does not exist."
		}
	case http.StatusMethodNotAllowed, http.StatusNotImplemented:
		base.Kind, base.Code, base.Message = ErrMethodNotAllowed, "MethodNotAllowed", "The specified method is not allowed against this resource."
	case http.StatusConflict:
		if bucket != "" {
			base.Kind, base.Code, base.Message = ErrNoSuchBucket, "NoSuchBucket", "The specified bucket does not exist."
		} else {
			base.Kind, base.Code, base.Message = ErrResourceConflict, "ResourceConflict", "The request could not be completed due to a conflict."
		}
	default:
		base.Kind, base.Code, base.Message = ErrServerError, "ServerError", fmt.Sprintf("server returned status %d", resp.StatusCode)
	}
	return base
}

// RegionCacheLookup answers whether bucket is currently cached, used by
// decodeRedirect to decide between Redirect and RetryHead.
type RegionCacheLookup func(bucket string) (region string, ok bool)

// redirectContext carries the per-attempt facts decodeRedirect needs beyond
// the HTTP response: whether this was a HEAD request, whether retries
// remain, and how to check the region cache. Built fresh by the engine for
// every attempt and threaded explicitly through decodeErrorResponse, rather
// than stashed in a package-level variable, since many requests may be
// in flight concurrently on the same Client.
type redirectContext struct {
	isHead      bool
	retriesLeft bool
	bucket      string
	cacheLookup RegionCacheLookup
}

// decodeRedirect implements spec.md §4.4's redirect handler.
func decodeRedirect(resp *http.Response, base *ErrorResponse, ctx *redirectContext) *ErrorResponse {
	region := resp.Header.Get("x-amz-bucket-region")
	if region != "" && ctx != nil && ctx.isHead && ctx.retriesLeft && ctx.cacheLookup != nil {
		if _, cached := ctx.cacheLookup(ctx.bucket); cached {
			base.Kind = ErrRetryHead
			base.Code = "RetryHead"
			return base
		}
	}
	base.Kind = ErrRedirect
	base.Code = "Redirect"
	msg := "the bucket is in a different region"
	if region != "" {
		msg += "; use region " + region
	}
	base.Message = msg
	return base
}

// ToErrorResponse unwraps err into an *ErrorResponse if it is (or wraps)
// one, for callers that want to switch on .Kind/.Code.
func ToErrorResponse(err error) *ErrorResponse {
	if err == nil {
		return &ErrorResponse{}
	}
	var er *ErrorResponse
	if errors.As(err, &er) {
		return er
	}
	return &ErrorResponse{Kind: ErrUnknown, Message: err.Error()}
}

// drainBody reads and closes resp.Body, returning the bytes read. Errors
// reading the body surface as ErrIO.
func drainBody(resp *http.Response) ([]byte, error) {
	defer resp.Body.Close()
	return io.ReadAll(resp.Body)
}
