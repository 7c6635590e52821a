package verify

import (
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/hex"
	"errors"
	"fmt"
	"hash"
	"io"
	"net/http"
	"strings"

	"golang.org/x/crypto/blake2b"
	"lukechampine.com/blake3"

	"github.com/vertextoedge/wget-fetch/internal/domain"
	"github.com/vertextoedge/wget-fetch/internal/util/httpheader"
)

// NewHash returns a hash for a checksum algorithm name
func NewHash(algorithm string) (hash.Hash, error) {
	switch strings.ToLower(strings.ReplaceAll(algorithm, "-", "")) {
	case "sha256":
		return sha256.New(), nil
	case "sha1":
		return sha1.New(), nil
	case "sha512":
		return sha512.New(), nil
	case "md5":
		return md5.New(), nil
	case "blake3":
		return blake3.New(32, nil), nil
	case "blake2b", "blake2b256":
		// only errors on an oversized key
		h, _ := blake2b.New256(nil)
		return h, nil
	}
	return nil, fmt.Errorf("%w: %q", domain.ErrUnknownAlgorithm, algorithm)
}

// Verifier checks transferred bytes against what the caller and server declared
type Verifier struct {
	checksum *domain.Checksum
	etag     string
}

// New builds a Verifier from request options.
// It fails early on an unknown checksum algorithm or an empty digest.
func New(opts domain.RequestOptions) (*Verifier, error) {
	v := &Verifier{etag: opts.ExpectedETag}
	if opts.Checksum != nil {
		if _, err := NewHash(opts.Checksum.Algorithm); err != nil {
			return nil, err
		}
		if strings.TrimSpace(opts.Checksum.Expected) == "" {
			return nil, fmt.Errorf("%w: empty expected checksum", domain.ErrInvalidInput)
		}
		c := *opts.Checksum
		v.checksum = &c
	}
	return v, nil
}

// HasChecksum reports whether a digest must be computed over the content
func (v *Verifier) HasChecksum() bool {
	return v != nil && v.checksum != nil
}

// NewHash returns a fresh hash for the configured checksum, or nil
func (v *Verifier) NewHash() hash.Hash {
	if !v.HasChecksum() {
		return nil
	}
	h, _ := NewHash(v.checksum.Algorithm)
	return h
}

// Size fails when a declared size differs from the received byte count
func (v *Verifier) Size(received, expected int64) error {
	if expected >= 0 && expected != received {
		return fmt.Errorf("%w: expected %d bytes, received %d", domain.ErrSizeMismatch, expected, received)
	}
	return nil
}

// Digest compares the sum of h against the expected checksum
func (v *Verifier) Digest(h hash.Hash) error {
	if !v.HasChecksum() {
		return nil
	}
	actual := hex.EncodeToString(h.Sum(nil))
	expected := strings.ToLower(strings.TrimSpace(v.checksum.Expected))
	if actual != expected {
		return fmt.Errorf("%w: %s expected %s, got %s",
			domain.ErrChecksumMismatch, v.checksum.Algorithm, expected, actual)
	}
	return nil
}

// Content hashes r and compares the digest. A no-op without a checksum.
func (v *Verifier) Content(r io.Reader) error {
	if !v.HasChecksum() {
		return nil
	}
	h := v.NewHash()
	if _, err := io.Copy(h, r); err != nil {
		return fmt.Errorf("failed to read content for checksum: %w", err)
	}
	return v.Digest(h)
}

// ETag compares the response ETag with the expected one, ignoring quotes
// and the weak prefix
func (v *Verifier) ETag(header http.Header) error {
	if v == nil || v.etag == "" {
		return nil
	}
	got := httpheader.CleanETag(header.Get("ETag"))
	if got != httpheader.CleanETag(v.etag) {
		return fmt.Errorf("%w: etag expected %q, got %q", domain.ErrChecksumMismatch, v.etag, header.Get("ETag"))
	}
	return nil
}

// Kind maps a verification error onto its TransferError kind
func Kind(err error) domain.ErrorKind {
	if errors.Is(err, domain.ErrSizeMismatch) {
		return domain.KindSizeMismatch
	}
	return domain.KindChecksumMismatch
}
