package platform

import (
	"strings"

	"github.com/ralt/relserve/internal/models"
)

// Tag is a legacy composite platform identifier such as "osx_universal"
// or "linux_rpm_32".
type Tag string

const (
	OSX32        Tag = "osx_32"
	OSX64        Tag = "osx_64"
	OSXARM64     Tag = "osx_arm64"
	OSXUniversal Tag = "osx_universal"
	Windows32    Tag = "windows_32"
	Windows64    Tag = "windows_64"
	Linux32      Tag = "linux_32"
	Linux64      Tag = "linux_64"
	LinuxRPM32   Tag = "linux_rpm_32"
	LinuxRPM64   Tag = "linux_rpm_64"
	LinuxDeb32   Tag = "linux_deb_32"
	LinuxDeb64   Tag = "linux_deb_64"
)

// Platform is the (os, legacy architecture, package format) triple a Tag encodes
type Platform struct {
	OS      OperatingSystem
	Arch    LegacyArchitecture
	Package PackageFormat
}

var tagTable = []struct {
	tag      Tag
	platform Platform
}{
	{OSX32, Platform{OSX, Arch32, NoPackage}},
	{OSX64, Platform{OSX, Arch64, NoPackage}},
	{OSXARM64, Platform{OSX, ArchARM64, NoPackage}},
	{OSXUniversal, Platform{OSX, ArchUniversal, NoPackage}},
	{Windows32, Platform{Windows, Arch32, NoPackage}},
	{Windows64, Platform{Windows, Arch64, NoPackage}},
	{Linux32, Platform{Linux, Arch32, NoPackage}},
	{Linux64, Platform{Linux, Arch64, NoPackage}},
	{LinuxRPM32, Platform{Linux, Arch32, Rpm}},
	{LinuxRPM64, Platform{Linux, Arch64, Rpm}},
	{LinuxDeb32, Platform{Linux, Arch32, Deb}},
	{LinuxDeb64, Platform{Linux, Arch64, Deb}},
}

// Historical spellings. Bare OS names map to that OS's default architecture.
var tagAliases = map[string]Tag{
	"osx":              OSX64,
	"darwin":           OSX64,
	"mac":              OSX64,
	"osx_x64":          OSX64,
	"darwin_x64":       OSX64,
	"darwin_arm64":     OSXARM64,
	"mac_arm64":        OSXARM64,
	"darwin_universal": OSXUniversal,
	"osx_univ":         OSXUniversal,
	"windows":          Windows32,
	"win":              Windows32,
	"win32":            Windows32,
	"win_32":           Windows32,
	"win64":            Windows64,
	"win_64":           Windows64,
	"windows_x64":      Windows64,
	"linux":            Linux64,
	"linux_rpm":        LinuxRPM64,
	"linux_deb":        LinuxDeb64,
}

// Tags lists every current tag
func Tags() []Tag {
	tags := make([]Tag, len(tagTable))
	for i, entry := range tagTable {
		tags[i] = entry.tag
	}
	return tags
}

// Encode returns the tag for p, if p is part of the tag vocabulary
func Encode(p Platform) (Tag, bool) {
	for _, entry := range tagTable {
		if entry.platform == p {
			return entry.tag, true
		}
	}
	return "", false
}

// Decode resolves a current tag or a historical alias into its platform
func Decode(s string) (Platform, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	if alias, ok := tagAliases[name]; ok {
		name = string(alias)
	}
	for _, entry := range tagTable {
		if string(entry.tag) == name {
			return entry.platform, nil
		}
	}
	return Platform{}, unsupportedPlatform(s)
}

// Tag returns the encoded form of p, or "" when p has no tag
func (p Platform) Tag() Tag {
	tag, _ := Encode(p)
	return tag
}

// String implements fmt.Stringer
func (t Tag) String() string {
	return string(t)
}

func unsupportedPlatform(s string) error {
	names := make([]string, len(tagTable))
	for i, entry := range tagTable {
		names[i] = string(entry.tag)
	}
	return models.NewError(models.ErrUnsupportedPlatform, s,
		"unsupported platform, expected one of [%s]", strings.Join(names, ", "))
}
