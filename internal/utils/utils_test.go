package utils

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

func TestCompressionFor(t *testing.T) {
	tests := []struct {
		name string
		want Compression
		base string
	}{
		{"index.yaml", CompressionNone, "index.yaml"},
		{"index.yaml.gz", CompressionGzip, "index.yaml"},
		{"index.json.xz", CompressionXz, "index.json"},
	}

	for _, tt := range tests {
		if got := CompressionFor(tt.name); got != tt.want {
			t.Errorf("CompressionFor(%q) = %q, want %q", tt.name, got, tt.want)
		}
		if got := StripCompression(tt.name); got != tt.base {
			t.Errorf("StripCompression(%q) = %q, want %q", tt.name, got, tt.base)
		}
	}
}

func TestCompressRoundTrip(t *testing.T) {
	data := bytes.Repeat([]byte("releases:\n  - version: 1.0.0\n"), 50)

	for _, c := range []Compression{CompressionNone, CompressionGzip, CompressionXz} {
		encoded, err := Compress(c, data)
		if err != nil {
			t.Fatalf("Compress(%q): %v", c, err)
		}
		if got := Sniff(encoded); got != c {
			t.Errorf("Sniff after %q compression = %q", c, got)
		}

		decoded, err := Decompress(encoded)
		if err != nil {
			t.Fatalf("Decompress(%q): %v", c, err)
		}
		if !bytes.Equal(decoded, data) {
			t.Errorf("%q round trip changed the data", c)
		}
	}
}

func TestCompressUnknown(t *testing.T) {
	if _, err := Compress("zstd", []byte("x")); err == nil {
		t.Error("expected an error for an unknown codec")
	}
}

func TestDigestFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app-1.0.0-full.nupkg")
	if err := os.WriteFile(path, []byte("hello"), 0644); err != nil {
		t.Fatal(err)
	}

	d, err := DigestFile(path)
	if err != nil {
		t.Fatalf("DigestFile: %v", err)
	}
	if d.SHA1 != "aaf4c61ddcc5e8a2dabede0f3b482cd9aea9434d" {
		t.Errorf("SHA1 = %s", d.SHA1)
	}
	if d.ManifestSHA1() != "AAF4C61DDCC5E8A2DABEDE0F3B482CD9AEA9434D" {
		t.Errorf("ManifestSHA1 = %s", d.ManifestSHA1())
	}
	if d.Size != 5 {
		t.Errorf("Size = %d", d.Size)
	}

	if _, err := DigestFile(filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Error("expected an error for a missing file")
	}
}

func TestShortHash(t *testing.T) {
	if got := ShortHash("hello", 16); got != "aaf4c61ddcc5e8a2" {
		t.Errorf("ShortHash = %s", got)
	}
	if got := ShortHash("hello", 0); len(got) != 40 {
		t.Errorf("ShortHash without limit = %s", got)
	}
}

func TestWriteFileCreatesDirectories(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a", "b", "RELEASES")
	if err := WriteFile(path, []byte("x"), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("file not written: %v", err)
	}
}
