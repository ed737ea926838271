package utils

import (
	"crypto/sha1"
	"encoding/hex"
	"io"
	"os"
	"strings"
)

// Digest is what update manifests record about a package file
type Digest struct {
	SHA1 string
	Size int64
}

// DigestFile hashes a file and measures its size
func DigestFile(path string) (*Digest, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	h := sha1.New()
	size, err := io.Copy(h, f)
	if err != nil {
		return nil, err
	}

	return &Digest{
		SHA1: hex.EncodeToString(h.Sum(nil)),
		Size: size,
	}, nil
}

// ManifestSHA1 is the SHA1 spelled the way Squirrel.Windows writes it
func (d *Digest) ManifestSHA1() string {
	return strings.ToUpper(d.SHA1)
}

// ShortHash returns the first n hex characters of the SHA1 of s. It is
// used for stable identifiers, not integrity.
func ShortHash(s string, n int) string {
	sum := sha1.Sum([]byte(s))
	id := hex.EncodeToString(sum[:])
	if n > 0 && n < len(id) {
		return id[:n]
	}
	return id
}
