package s3

import (
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestPresignedGetObjectProducesSignedURL(t *testing.T) {
	c, err := New("s3.example.com", true, WithSkipRegionLookup(),
		WithCredentials(mustProvider()), WithTransport(&recordingDoer{}))
	require.NoError(t, err)

	raw, err := c.PresignedGetObject("bucket", "key.txt", 15*time.Minute)
	require.NoError(t, err)

	u, err := url.Parse(raw)
	require.NoError(t, err)
	q := u.Query()
	require.Equal(t, "AWS4-HMAC-SHA256", q.Get("X-Amz-Algorithm"))
	require.Equal(t, "900", q.Get("X-Amz-Expires"))
	require.NotEmpty(t, q.Get("X-Amz-Signature"))
	require.Equal(t, "host", q.Get("X-Amz-SignedHeaders"))
}

func TestPresignedURLRejectsExpiryOutOfRange(t *testing.T) {
	c, err := New("s3.example.com", true, WithCredentials(mustProvider()))
	require.NoError(t, err)

	_, err = c.PresignedGetObject("bucket", "key.txt", 8*24*time.Hour)
	require.Error(t, err)
	require.Equal(t, ErrValidation, ToErrorResponse(err).Kind)
}

func TestPresignedURLRequiresCredentials(t *testing.T) {
	c, err := New("s3.example.com", true)
	require.NoError(t, err)

	_, err = c.PresignedGetObject("bucket", "key.txt", time.Minute)
	require.Error(t, err)
}
