package verify

import (
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vertextoedge/wget-fetch/internal/domain"
)

func TestNew_RejectsBadChecksum(t *testing.T) {
	_, err := New(domain.RequestOptions{Checksum: &domain.Checksum{Algorithm: "crc32", Expected: "00"}})
	assert.ErrorIs(t, err, domain.ErrUnknownAlgorithm)

	_, err = New(domain.RequestOptions{Checksum: &domain.Checksum{Algorithm: "sha256"}})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestVerifier_Content(t *testing.T) {
	tests := []struct {
		name      string
		algorithm string
		expected  string
		wantErr   bool
	}{
		{name: "sha256", algorithm: "sha256", expected: "2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824"},
		{name: "sha256 upper case", algorithm: "SHA-256", expected: "2CF24DBA5FB0A30E26E83B2AC5B9E29E1B161E5C1FA7425E73043362938B9824"},
		{name: "sha1", algorithm: "sha1", expected: "aaf4c61ddcc5e8a2dabede0f3b482cd9aea9434d"},
		{name: "md5", algorithm: "md5", expected: "5d41402abc4b2a76b9719d911017c592"},
		{name: "blake3", algorithm: "blake3", expected: "ea8f163db38682925e4491c5e58d4bb3506ef8c14eb78a86e908c5624a67200f"},
		{name: "blake2b", algorithm: "BLAKE2b-256", expected: "324dcf027dd4a30a932c441f365a25e86b173defa4b8e58948253471b81b72cf"},
		{name: "mismatch", algorithm: "sha256", expected: "00", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := New(domain.RequestOptions{Checksum: &domain.Checksum{Algorithm: tt.algorithm, Expected: tt.expected}})
			require.NoError(t, err)

			err = v.Content(strings.NewReader("hello"))
			if tt.wantErr {
				assert.ErrorIs(t, err, domain.ErrChecksumMismatch)
				assert.Equal(t, domain.KindChecksumMismatch, Kind(err))
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestVerifier_Size(t *testing.T) {
	v, err := New(domain.RequestOptions{})
	require.NoError(t, err)

	assert.NoError(t, v.Size(10, -1), "unknown size is vacuously fine")
	assert.NoError(t, v.Size(10, 10))

	err = v.Size(9, 10)
	assert.ErrorIs(t, err, domain.ErrSizeMismatch)
	assert.Equal(t, domain.KindSizeMismatch, Kind(err))
}

func TestVerifier_ETag(t *testing.T) {
	v, err := New(domain.RequestOptions{ExpectedETag: "abc"})
	require.NoError(t, err)

	assert.NoError(t, v.ETag(http.Header{"Etag": {`"abc"`}}))
	assert.NoError(t, v.ETag(http.Header{"Etag": {`W/"abc"`}}))
	assert.True(t, errors.Is(v.ETag(http.Header{"Etag": {`"def"`}}), domain.ErrChecksumMismatch))
	assert.True(t, errors.Is(v.ETag(http.Header{}), domain.ErrChecksumMismatch))

	none, _ := New(domain.RequestOptions{})
	assert.NoError(t, none.ETag(http.Header{}))
}

func TestVerifier_NoChecksum(t *testing.T) {
	v, err := New(domain.RequestOptions{})
	require.NoError(t, err)

	assert.False(t, v.HasChecksum())
	assert.Nil(t, v.NewHash())
	assert.NoError(t, v.Content(strings.NewReader("anything")))
}
