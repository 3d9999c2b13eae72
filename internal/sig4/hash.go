package sig4

import (
	"crypto/hmac"
	"encoding/hex"

	sha256simd "github.com/minio/sha256-simd"
)

// EmptySHA256Hex is the SHA-256 of the empty string, used as the payload
// hash for GET/HEAD/DELETE requests and as the data-hash line for the
// terminating zero-length chunk in aws-chunked signing.
const EmptySHA256Hex = "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855"

// UnsignedPayload is the literal AWS uses in place of a real payload hash
// for presigned URLs.
const UnsignedPayload = "UNSIGNED-PAYLOAD"

// StreamingSignedTrailerPayload is the x-amz-content-sha256 literal for
// signed aws-chunked uploads with a trailing checksum.
const StreamingSignedTrailerPayload = "STREAMING-AWS4-HMAC-SHA256-PAYLOAD-TRAILER"

// StreamingUnsignedTrailerPayload is the x-amz-content-sha256 literal for
// unsigned aws-chunked uploads with a trailing checksum.
const StreamingUnsignedTrailerPayload = "STREAMING-UNSIGNED-PAYLOAD-TRAILER"

// SHA256Hex returns the lowercase-hex SHA-256 digest of data.
func SHA256Hex(data []byte) string {
	sum := sha256simd.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// HMACSHA256 returns the raw HMAC-SHA256 of data under key.
func HMACSHA256(key, data []byte) []byte {
	h := hmac.New(sha256simd.New, key)
	h.Write(data)
	return h.Sum(nil)
}

// HexEncode is a small convenience wrapper kept alongside the hashing
// helpers so callers don't need to import encoding/hex separately.
func HexEncode(b []byte) string { return hex.EncodeToString(b) }
