package s3

import (
	"github.com/minio/s3tables-go/internal/multimap"
	"github.com/minio/s3tables-go/internal/segbytes"
)

// ChecksumAlgorithm enumerates the trailing-checksum algorithms aws-chunked
// streaming supports (spec.md §4.6).
type ChecksumAlgorithm int

const (
	ChecksumNone ChecksumAlgorithm = iota
	ChecksumCRC32
	ChecksumCRC32C
	ChecksumSHA1
	ChecksumSHA256
)

// TrailerHeaderName returns the x-amz-trailer value for alg.
func (a ChecksumAlgorithm) TrailerHeaderName() string {
	switch a {
	case ChecksumCRC32:
		return "x-amz-checksum-crc32"
	case ChecksumCRC32C:
		return "x-amz-checksum-crc32c"
	case ChecksumSHA1:
		return "x-amz-checksum-sha1"
	case ChecksumSHA256:
		return "x-amz-checksum-sha256"
	default:
		return ""
	}
}

// requestMetadata is the caller-supplied description of one request, the
// direct analogue of the teacher's requestMetadata struct, extended with
// the aws-chunked and streaming-signature fields spec.md §4.5 requires.
type requestMetadata struct {
	method string
	bucket string
	object string

	region string // region hint; "" lets the engine resolve it

	query   *multimap.Multimap
	headers *multimap.Multimap

	body    segbytes.Bytes
	hasBody bool

	trailingChecksum   ChecksumAlgorithm
	useSignedStreaming bool
}

func newRequestMetadata(method string) requestMetadata {
	return requestMetadata{
		method:  method,
		query:   multimap.New(),
		headers: multimap.New(),
	}
}
