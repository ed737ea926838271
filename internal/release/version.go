package release

import (
	"strings"

	"github.com/Masterminds/semver/v3"
	rpmutils "github.com/sassoftware/go-rpmutils"

	"github.com/ralt/relserve/internal/models"
)

const (
	// StableChannel is the channel of every version without a pre-release
	StableChannel = "stable"
	// AnyChannel matches releases of every channel
	AnyChannel = "*"
	// Latest is the version range meaning "whatever sorts first"
	Latest = "latest"
)

// NormalizeVersion returns the canonical semver form of tag, or the trimmed
// tag itself when it is not a version semver can parse.
func NormalizeVersion(tag string) string {
	tag = strings.TrimSpace(tag)
	v, err := semver.NewVersion(tag)
	if err != nil {
		return tag
	}
	return v.String()
}

// ChannelFromVersion derives the release channel from the first pre-release
// identifier, e.g. "2.7.0-beta.1" is on "beta".
func ChannelFromVersion(version string) string {
	v, err := semver.NewVersion(version)
	if err != nil || v.Prerelease() == "" {
		return StableChannel
	}
	channel, _, _ := strings.Cut(v.Prerelease(), ".")
	return strings.ToLower(channel)
}

// CompareVersions orders two version strings. Semver versions compare by
// semver precedence and always rank above tags semver cannot parse, which
// compare among themselves rpm-style.
func CompareVersions(a, b string) int {
	va, errA := semver.NewVersion(a)
	vb, errB := semver.NewVersion(b)
	switch {
	case errA == nil && errB == nil:
		return va.Compare(vb)
	case errA == nil:
		return 1
	case errB == nil:
		return -1
	default:
		return rpmutils.Vercmp(a, b)
	}
}

// Range is a compiled version range. The zero value and "latest" match
// every version.
type Range struct {
	raw         string
	constraints *semver.Constraints
}

// ParseRange validates a semver range expression
func ParseRange(s string) (Range, error) {
	s = strings.TrimSpace(s)
	if s == "" || s == Latest {
		return Range{raw: s}, nil
	}
	c, err := semver.NewConstraint(s)
	if err != nil {
		return Range{}, models.NewError(models.ErrInvalidQuery, s, "invalid version range: %v", err)
	}
	return Range{raw: s, constraints: c}, nil
}

// Matches reports whether version falls inside the range. Versions semver
// cannot parse never match a non-trivial range.
func (r Range) Matches(version string) bool {
	if r.constraints == nil {
		return true
	}
	v, err := semver.NewVersion(version)
	if err != nil {
		return false
	}
	return r.constraints.Check(v)
}

// IsLatest reports whether the range is absent or "latest"
func (r Range) IsLatest() bool {
	return r.constraints == nil
}

// String returns the range as given
func (r Range) String() string {
	return r.raw
}
