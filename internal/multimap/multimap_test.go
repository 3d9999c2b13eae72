package multimap_test

import (
	"testing"

	"github.com/minio/s3tables-go/internal/multimap"
	"github.com/stretchr/testify/require"
)

func TestCanonicalHeadersExcludesAuthAndUserAgent(t *testing.T) {
	m := multimap.New()
	m.Add("Host", "examplebucket.s3.amazonaws.com")
	m.Add("X-Amz-Date", "20130524T000000Z")
	m.Add("Authorization", "should-not-appear")
	m.Add("User-Agent", "should-not-appear-either")

	block, signed := m.CanonicalHeaders()
	require.Equal(t, "host:examplebucket.s3.amazonaws.com\nx-amz-date:20130524T000000Z\n", block)
	require.Equal(t, "host;x-amz-date", signed)
}

func TestCanonicalHeadersCollapsesInteriorSpacesNotTabs(t *testing.T) {
	m := multimap.New()
	m.Add("X-Amz-Meta-Foo", "  a   b  ")
	m.Add("X-Amz-Meta-Bar", "a\tb")

	block, _ := m.CanonicalHeaders()
	require.Contains(t, block, "x-amz-meta-bar:a\tb\n")
	require.Contains(t, block, "x-amz-meta-foo:a b\n")
}

func TestCanonicalHeadersIdempotent(t *testing.T) {
	m := multimap.New()
	m.Add("X-Amz-Meta-Foo", "a b")
	block1, signed1 := m.CanonicalHeaders()

	m2 := multimap.New()
	m2.Add("X-Amz-Meta-Foo", "a b")
	block2, signed2 := m2.CanonicalHeaders()

	require.Equal(t, block1, block2)
	require.Equal(t, signed1, signed2)
}

func TestCanonicalQueryStringSortsByKeyThenValue(t *testing.T) {
	m := multimap.New()
	m.Add("b", "2")
	m.Add("a", "2")
	m.Add("a", "1")

	require.Equal(t, "a=1&a=2&b=2", m.CanonicalQueryString())
}

func TestEncodeQueryComponentEncodesSlash(t *testing.T) {
	require.Equal(t, "a%2Fb", multimap.EncodeQueryComponent("a/b"))
}

func TestEncodePathSegmentPreservesSlash(t *testing.T) {
	require.Equal(t, "a/b c", multimap.EncodePathSegment("a/b")+" c")
	require.Equal(t, "a/b%20c", multimap.EncodePathSegment("a/b c"))
}

func TestCaseInsensitiveLookupPreservesOriginalCasing(t *testing.T) {
	m := multimap.New()
	m.Set("Content-Type", "text/plain")
	require.Equal(t, "text/plain", m.Get("content-type"))
	require.Equal(t, []string{"Content-Type"}, m.Keys())
}
