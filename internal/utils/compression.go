package utils

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/ulikunitz/xz"
)

// Compression names a supported codec
type Compression string

const (
	CompressionNone Compression = ""
	CompressionGzip Compression = "gzip"
	CompressionXz   Compression = "xz"
)

var (
	gzipMagic = []byte{0x1F, 0x8B}
	xzMagic   = []byte{0xFD, 0x37, 0x7A, 0x58, 0x5A, 0x00}
)

// CompressionFor picks the codec from a file name suffix
func CompressionFor(name string) Compression {
	switch {
	case strings.HasSuffix(name, ".gz"):
		return CompressionGzip
	case strings.HasSuffix(name, ".xz"):
		return CompressionXz
	default:
		return CompressionNone
	}
}

// StripCompression removes a known compression suffix from name
func StripCompression(name string) string {
	switch CompressionFor(name) {
	case CompressionGzip:
		return strings.TrimSuffix(name, ".gz")
	case CompressionXz:
		return strings.TrimSuffix(name, ".xz")
	}
	return name
}

// Sniff detects the codec from the leading magic bytes
func Sniff(data []byte) Compression {
	switch {
	case bytes.HasPrefix(data, xzMagic):
		return CompressionXz
	case bytes.HasPrefix(data, gzipMagic):
		return CompressionGzip
	default:
		return CompressionNone
	}
}

// Compress encodes data with c. CompressionNone returns data unchanged.
func Compress(c Compression, data []byte) ([]byte, error) {
	switch c {
	case CompressionGzip:
		return GzipCompress(data)
	case CompressionXz:
		return XzCompress(data)
	case CompressionNone:
		return data, nil
	default:
		return nil, fmt.Errorf("unknown compression %q", c)
	}
}

// Decompress decodes data, detecting the codec from its magic bytes
func Decompress(data []byte) ([]byte, error) {
	switch Sniff(data) {
	case CompressionGzip:
		return GzipDecompress(data)
	case CompressionXz:
		return XzDecompress(data)
	default:
		return data, nil
	}
}

// GzipCompress compresses data using gzip
func GzipCompress(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	w := gzip.NewWriter(&buf)

	if _, err := w.Write(data); err != nil {
		return nil, err
	}

	if err := w.Close(); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

// GzipDecompress decompresses gzip data
func GzipDecompress(data []byte) ([]byte, error) {
	r, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer r.Close()

	return io.ReadAll(r)
}

// XzCompress compresses data using xz
func XzCompress(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	w, err := xz.NewWriter(&buf)
	if err != nil {
		return nil, err
	}

	if _, err := w.Write(data); err != nil {
		return nil, err
	}

	if err := w.Close(); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

// XzDecompress decompresses xz data
func XzDecompress(data []byte) ([]byte, error) {
	r, err := xz.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	return io.ReadAll(r)
}
