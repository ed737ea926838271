// Package manifest reads and writes Squirrel.Windows RELEASES files: one
// "<sha1> <filename> <size>" entry per line.
package manifest

import (
	"bufio"
	"bytes"
	"fmt"
	"path"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/Masterminds/semver/v3"

	"github.com/ralt/relserve/internal/models"
)

// Filename is the name Squirrel.Windows requests the manifest under
const Filename = "RELEASES"

var bom = []byte{0xEF, 0xBB, 0xBF}

// app-1.2.3-beta.1-full.nupkg
var nupkgPattern = regexp.MustCompile(`^(.+?)-(\d+\.\d+\.\d+(?:-[0-9A-Za-z.]+?)??)(?:-(full|delta))?\.nupkg$`)

// Entry is one package line of a RELEASES file
type Entry struct {
	SHA1     string
	Filename string
	Size     int64
}

// Parse decodes a RELEASES file. Blank lines are ignored, any other line
// that is not exactly three fields fails the whole parse.
func Parse(data []byte) ([]Entry, error) {
	data = bytes.TrimPrefix(data, bom)

	var entries []Entry
	scanner := bufio.NewScanner(bytes.NewReader(data))
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		fields := strings.Fields(line)
		if len(fields) != 3 {
			return nil, models.NewError(models.ErrManifest, Filename,
				"line %d: expected 3 fields, got %d", lineNo, len(fields))
		}

		size, err := strconv.ParseInt(fields[2], 10, 64)
		if err != nil || size < 0 {
			return nil, models.NewError(models.ErrManifest, Filename,
				"line %d: invalid size %q", lineNo, fields[2])
		}

		entries = append(entries, Entry{
			SHA1:     fields[0],
			Filename: fields[1],
			Size:     size,
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, models.WrapError(models.ErrManifest, Filename, err)
	}

	return entries, nil
}

// Generate encodes entries, one newline-terminated line each. The length of
// the result is what goes into the Content-Length header.
func Generate(entries []Entry) []byte {
	var buf bytes.Buffer
	for _, e := range entries {
		fmt.Fprintf(&buf, "%s %s %d\n", e.SHA1, e.Filename, e.Size)
	}
	return buf.Bytes()
}

// Sort orders entries by package name and ascending version, the delta
// package of a version ahead of its full package. Entries that are not
// named like Squirrel packages go last, in their original order.
func Sort(entries []Entry) {
	slices.SortStableFunc(entries, func(a, b Entry) int {
		av, bv := a.Version(), b.Version()
		switch {
		case av == "" || bv == "":
			return boolCompare(av == "", bv == "")
		case a.Name() != b.Name():
			return strings.Compare(a.Name(), b.Name())
		}
		if c := compareVersions(av, bv); c != 0 {
			return c
		}
		return boolCompare(!a.Delta(), !b.Delta())
	})
}

func compareVersions(a, b string) int {
	va, errA := semver.NewVersion(a)
	vb, errB := semver.NewVersion(b)
	if errA != nil || errB != nil {
		return strings.Compare(a, b)
	}
	return va.Compare(vb)
}

// boolCompare sorts false before true
func boolCompare(a, b bool) int {
	switch {
	case a == b:
		return 0
	case a:
		return 1
	default:
		return -1
	}
}

// Rewrite returns copies of entries with every filename passed through fn
func Rewrite(entries []Entry, fn func(filename string) string) []Entry {
	out := make([]Entry, len(entries))
	for i, e := range entries {
		e.Filename = fn(e.Filename)
		out[i] = e
	}
	return out
}

// Name returns the package id encoded in the nupkg filename
func (e Entry) Name() string {
	name, _, _ := e.parts()
	return name
}

// Version returns the package version encoded in the nupkg filename
func (e Entry) Version() string {
	_, version, _ := e.parts()
	return version
}

// Delta reports whether the entry is a delta package
func (e Entry) Delta() bool {
	_, _, delta := e.parts()
	return delta
}

func (e Entry) parts() (name, version string, delta bool) {
	m := nupkgPattern.FindStringSubmatch(path.Base(e.Filename))
	if m == nil {
		return "", "", false
	}
	return m[1], m[2], m[3] == "delta"
}
