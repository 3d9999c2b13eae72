package sig4

import "time"

// ChunkSeedSignature is the signature from the main request's Authorization
// header — the seed that the first data chunk's signature is chained from.
type ChunkSeedSignature = string

// ChunkStringToSign builds the per-chunk string-to-sign for aws-chunked
// signed streaming:
//
//	"AWS4-HMAC-SHA256-PAYLOAD\n<amz-date>\n<scope>\n<prev-signature>\n<SHA256("")>\n<SHA256(chunk-data)>"
//
// prevSignature is the seed signature (from the main request) for the first
// chunk, and the previous chunk's signature for every chunk after that. The
// terminating zero-length chunk passes EmptySHA256Hex as dataSHA256Hex.
func ChunkStringToSign(t time.Time, scope, prevSignature, dataSHA256Hex string) string {
	return "AWS4-HMAC-SHA256-PAYLOAD\n" +
		AmzDate(t) + "\n" +
		scope + "\n" +
		prevSignature + "\n" +
		EmptySHA256Hex + "\n" +
		dataSHA256Hex
}

// TrailerStringToSign builds the string-to-sign for the final signed
// trailer line, using "AWS4-HMAC-SHA256-TRAILER" in place of "-PAYLOAD".
func TrailerStringToSign(t time.Time, scope, prevSignature, trailerSHA256Hex string) string {
	return "AWS4-HMAC-SHA256-TRAILER\n" +
		AmzDate(t) + "\n" +
		scope + "\n" +
		prevSignature + "\n" +
		EmptySHA256Hex + "\n" +
		trailerSHA256Hex
}

// SignChunk signs stringToSign with the given derived signing key and
// returns the hex signature.
func SignChunk(signingKey []byte, stringToSign string) string {
	return HexEncode(HMACSHA256(signingKey, []byte(stringToSign)))
}
