package s3

import (
	"bytes"
	"crypto/sha1"
	"encoding/base64"
	"hash"
	"hash/crc32"
	"io"
	"strconv"
	"time"

	sha256simd "github.com/minio/sha256-simd"
	"github.com/minio/s3tables-go/internal/sig4"
)

// DefaultChunkSize is the default aws-chunked chunk size (spec.md §4.6).
const DefaultChunkSize = 64 * 1024

// EncodedLength precomputes the exact byte length of the aws-chunked
// encoding of a rawLen-byte payload under chunkSize framing with trailing
// checksum alg, signed or unsigned. It is a pure function of its four
// inputs (spec.md §9), so Content-Length can be emitted before streaming
// begins.
func EncodedLength(rawLen int64, chunkSize int64, alg ChecksumAlgorithm, signed bool) int64 {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	sigOverhead := int64(0)
	if signed {
		sigOverhead = int64(len(";chunk-signature=")) + 64
	}

	var total int64
	remaining := rawLen
	for remaining > 0 {
		n := chunkSize
		if remaining < n {
			n = remaining
		}
		hexLen := int64(len(strconv.FormatInt(n, 16)))
		total += hexLen + sigOverhead + 2 /* \r\n */ + n + 2 /* \r\n */
		remaining -= n
	}
	// Terminating zero-length chunk: hex("0") is one character.
	total += 1 + sigOverhead + 2 + 0 + 2

	// Trailer line: "<name>:<digest>\r\n", optionally followed by
	// "x-amz-trailer-signature:<64 hex chars>\r\n" when signed, then the
	// closing "\r\n".
	name := alg.TrailerHeaderName()
	total += int64(len(name)) + 1 + digestEncodedLen(alg) + 2
	if signed && name != "" {
		total += int64(len(trailerSignatureHeaderName)) + 1 + 64 + 2
	}
	total += 2
	return total
}

// trailerSignatureHeaderName is the wire name of the line that carries the
// AWS4-HMAC-SHA256-TRAILER signature over the trailer, per spec.md §4.6.
const trailerSignatureHeaderName = "x-amz-trailer-signature"

// digestEncodedLen returns the base64-encoded length of alg's raw digest.
func digestEncodedLen(alg ChecksumAlgorithm) int64 {
	raw := digestRawLen(alg)
	return 4 * ((raw + 2) / 3)
}

func digestRawLen(alg ChecksumAlgorithm) int64 {
	switch alg {
	case ChecksumCRC32, ChecksumCRC32C:
		return 4
	case ChecksumSHA1:
		return 20
	case ChecksumSHA256:
		return 32
	default:
		return 0
	}
}

func newChecksumHasher(alg ChecksumAlgorithm) hash.Hash {
	switch alg {
	case ChecksumCRC32:
		return crc32.NewIEEE()
	case ChecksumCRC32C:
		return crc32.New(crc32.MakeTable(crc32.Castagnoli))
	case ChecksumSHA1:
		return sha1.New()
	case ChecksumSHA256:
		return sha256simd.New()
	default:
		return nil
	}
}

// chunkSigner carries the signing state threaded across successive chunks
// of one aws-chunked stream: the chained previous signature, the signing
// key, and the request's date/scope.
type chunkSigner struct {
	signingKey []byte
	scope      string
	now        time.Time
	prevSig    string
}

func newChunkSigner(creds sig4.Credentials, region, service string, cache *sig4.KeyCache, now time.Time, seedSignature string) *chunkSigner {
	date := now.Format("20060102")
	return &chunkSigner{
		signingKey: cache.Derive(creds.SecretAccessKey, date, region, service),
		scope:      sig4.Scope(now, region, service),
		now:        now,
		prevSig:    seedSignature,
	}
}

func (s *chunkSigner) signChunk(dataSHA256Hex string) string {
	sts := sig4.ChunkStringToSign(s.now, s.scope, s.prevSig, dataSHA256Hex)
	sig := sig4.SignChunk(s.signingKey, sts)
	s.prevSig = sig
	return sig
}

func (s *chunkSigner) signTrailer(trailerSHA256Hex string) string {
	sts := sig4.TrailerStringToSign(s.now, s.scope, s.prevSig, trailerSHA256Hex)
	return sig4.SignChunk(s.signingKey, sts)
}

// ChunkedEncoder streams src as aws-chunked framing with a trailing
// checksum, signing each chunk if signer is non-nil (spec.md §4.6). It
// reads at most chunkSize bytes of src at a time, so memory use is bounded
// regardless of the source's total length.
type ChunkedEncoder struct {
	src       io.Reader
	chunkSize int
	alg       ChecksumAlgorithm
	signer    *chunkSigner // nil => unsigned streaming

	hasher hash.Hash
	out    bytes.Buffer
	done   bool
	buf    []byte
}

// NewChunkedEncoder builds an encoder. signer may be nil for unsigned
// streaming.
func NewChunkedEncoder(src io.Reader, chunkSize int, alg ChecksumAlgorithm, signer *chunkSigner) *ChunkedEncoder {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	return &ChunkedEncoder{
		src:       src,
		chunkSize: chunkSize,
		alg:       alg,
		signer:    signer,
		hasher:    newChecksumHasher(alg),
		buf:       make([]byte, chunkSize),
	}
}

// Read implements io.Reader, emitting framed chunks as they become
// available.
func (e *ChunkedEncoder) Read(p []byte) (int, error) {
	for e.out.Len() == 0 && !e.done {
		n, err := io.ReadFull(e.src, e.buf)
		if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
			return 0, err
		}
		if n > 0 {
			e.hasher.Write(e.buf[:n])
			e.writeChunk(e.buf[:n])
		}
		if n < e.chunkSize {
			// Source exhausted: emit the terminating zero-length chunk and
			// trailer, then mark done.
			e.writeChunk(nil)
			e.writeTrailer()
			e.done = true
		}
	}
	return e.out.Read(p)
}

func (e *ChunkedEncoder) writeChunk(data []byte) {
	dataHash := sig4.SHA256Hex(data)
	header := strconv.FormatInt(int64(len(data)), 16)
	if e.signer != nil {
		sig := e.signer.signChunk(dataHash)
		header += ";chunk-signature=" + sig
	}
	e.out.WriteString(header)
	e.out.WriteString("\r\n")
	e.out.Write(data)
	e.out.WriteString("\r\n")
}

func (e *ChunkedEncoder) writeTrailer() {
	digest := base64.StdEncoding.EncodeToString(e.hasher.Sum(nil))
	name := e.alg.TrailerHeaderName()
	if name == "" {
		e.out.WriteString("\r\n")
		return
	}
	e.out.WriteString(name)
	e.out.WriteByte(':')
	e.out.WriteString(digest)
	e.out.WriteString("\r\n")
	if e.signer != nil {
		trailerHash := sig4.SHA256Hex([]byte(name + ":" + digest + "\n"))
		sig := e.signer.signTrailer(trailerHash)
		e.out.WriteString(trailerSignatureHeaderName)
		e.out.WriteByte(':')
		e.out.WriteString(sig)
		e.out.WriteString("\r\n")
	}
	e.out.WriteString("\r\n")
}
