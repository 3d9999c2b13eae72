package s3

import (
	"bytes"
	"encoding/base64"
	"io"
	"strings"
	"testing"

	"github.com/minio/s3tables-go/internal/sig4"
	"github.com/stretchr/testify/require"
)

func TestEncodedLengthMatchesActualOutput(t *testing.T) {
	cases := []struct {
		name      string
		rawLen    int64
		chunkSize int64
		alg       ChecksumAlgorithm
		signed    bool
	}{
		{"empty-unsigned-crc32", 0, 8, ChecksumCRC32, false},
		{"exact-boundary-unsigned", 16, 8, ChecksumCRC32, false},
		{"partial-last-chunk-unsigned", 17, 8, ChecksumCRC32C, false},
		{"exact-boundary-signed-sha256", 16, 8, ChecksumSHA256, true},
		{"partial-last-chunk-signed-sha1", 19, 8, ChecksumSHA1, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			data := bytes.Repeat([]byte{'a'}, int(tc.rawLen))
			var signer *chunkSigner
			if tc.signed {
				signer = &chunkSigner{signingKey: []byte("k"), scope: "scope", prevSig: "seed"}
			}
			enc := NewChunkedEncoder(bytes.NewReader(data), int(tc.chunkSize), tc.alg, signer)
			out, err := io.ReadAll(enc)
			require.NoError(t, err)

			want := EncodedLength(tc.rawLen, tc.chunkSize, tc.alg, tc.signed)
			require.Equal(t, want, int64(len(out)), "encoded length mismatch for %s", tc.name)
		})
	}
}

func TestChunkedEncoderTerminatesWithZeroChunkAndTrailer(t *testing.T) {
	data := []byte("hello world")
	enc := NewChunkedEncoder(bytes.NewReader(data), 4, ChecksumCRC32, nil)
	out, err := io.ReadAll(enc)
	require.NoError(t, err)
	s := string(out)
	require.True(t, strings.Contains(s, "\r\n0\r\n") || strings.HasSuffix(beforeTrailer(s), "0"))
	require.True(t, strings.Contains(s, "x-amz-checksum-crc32:"))
	require.True(t, strings.HasSuffix(s, "\r\n\r\n"))
}

// beforeTrailer returns s up to (not including) the trailer line, a small
// helper to keep the zero-chunk assertion above readable.
func beforeTrailer(s string) string {
	idx := strings.Index(s, "x-amz-checksum-crc32:")
	if idx < 0 {
		return s
	}
	return s[:idx]
}

func TestWriteTrailerEmitsTrailerSignatureOnWire(t *testing.T) {
	data := []byte("abcdefgh")
	signer := &chunkSigner{signingKey: []byte("k"), scope: "scope", prevSig: "seed"}
	enc := NewChunkedEncoder(bytes.NewReader(data), 4, ChecksumCRC32, signer)
	out, err := io.ReadAll(enc)
	require.NoError(t, err)
	s := string(out)

	const marker = "x-amz-trailer-signature:"
	idx := strings.Index(s, marker)
	require.True(t, idx >= 0, "wire output missing %s line: %q", marker, s)
	rest := s[idx+len(marker):]
	end := strings.Index(rest, "\r\n")
	require.True(t, end >= 0)
	gotSig := rest[:end]
	require.Len(t, gotSig, 64)

	// Recompute the expected trailer signature by replaying the exact same
	// chunk sequence ("abcd", "efgh", terminating empty chunk) through a
	// freshly seeded signer, independent of ChunkedEncoder.
	want := &chunkSigner{signingKey: []byte("k"), scope: "scope", prevSig: "seed"}
	want.signChunk(sig4.SHA256Hex([]byte("abcd")))
	want.signChunk(sig4.SHA256Hex([]byte("efgh")))
	want.signChunk(sig4.SHA256Hex(nil))
	hasher := newChecksumHasher(ChecksumCRC32)
	hasher.Write(data)
	digest := base64.StdEncoding.EncodeToString(hasher.Sum(nil))
	name := ChecksumCRC32.TrailerHeaderName()
	trailerHash := sig4.SHA256Hex([]byte(name + ":" + digest + "\n"))
	wantSig := want.signTrailer(trailerHash)

	require.Equal(t, wantSig, gotSig)
}

func TestChunkStringToSignChainsAcrossChunks(t *testing.T) {
	data := bytes.Repeat([]byte{'x'}, 20)
	signer := &chunkSigner{signingKey: []byte("k"), scope: "scope", prevSig: "seed-signature"}
	enc := NewChunkedEncoder(bytes.NewReader(data), 8, ChecksumSHA256, signer)
	_, err := io.ReadAll(enc)
	require.NoError(t, err)
	require.NotEqual(t, "seed-signature", signer.prevSig)
}
