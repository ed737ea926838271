package platform

import (
	"path/filepath"
	"strings"
)

// squirrelManifest is the Squirrel.Windows manifest filename, lower-cased
const squirrelManifest = "releases"

// matcher tests a lower-cased filename
type matcher func(name string) bool

// rule maps a filename pattern to a value. Rule lists are evaluated in
// order and the first match wins.
type rule[T any] struct {
	match matcher
	value T
}

func hasSuffix(suffixes ...string) matcher {
	return func(name string) bool {
		for _, s := range suffixes {
			if strings.HasSuffix(name, s) {
				return true
			}
		}
		return false
	}
}

func contains(tokens ...string) matcher {
	return func(name string) bool {
		for _, t := range tokens {
			if strings.Contains(name, t) {
				return true
			}
		}
		return false
	}
}

func equals(literal string) matcher {
	return func(name string) bool {
		return name == literal
	}
}

func firstMatch[T any](rules []rule[T], name string) (T, bool) {
	for _, r := range rules {
		if r.match(name) {
			return r.value, true
		}
	}
	var zero T
	return zero, false
}

// Extension rules come before substring rules
var osRules = []rule[OperatingSystem]{
	{hasSuffix(".dmg"), OSX},
	{hasSuffix(".exe", ".nupkg"), Windows},
	{hasSuffix(".deb", ".rpm", ".tar.gz", ".tgz"), Linux},
	{equals(squirrelManifest), Windows},
	{contains("darwin", "osx", "mac"), OSX},
	{contains("win"), Windows},
	{contains("linux"), Linux},
}

var universalMatch = contains("universal", "univ")

// Every matching rule contributes, universal markers short-circuit
var archSetRules = []rule[[]Architecture]{
	{equals(squirrelManifest), []Architecture{X32, X64}},
	{contains("arm64"), []Architecture{ARM64}},
	{contains("x64", "amd64", "x86_64"), []Architecture{X64}},
	{contains("x32", "ia32", "i386"), []Architecture{X32}},
}

// arm is checked before any bit-width token because "arm64" contains "64".
// Any 32-bit marker wins over the 64-bit default, so "app-win32-x64.zip"
// and "x86_64" names are 32-bit for legacy clients.
var legacyArchRules = []rule[LegacyArchitecture]{
	{equals(squirrelManifest), ArchUniversal},
	{universalMatch, ArchUniversal},
	{contains("arm64", "arm"), ArchARM64},
	{contains("ia32", "i386", "x86", "32"), Arch32},
}

var packageRules = []rule[PackageFormat]{
	{hasSuffix(".deb"), Deb},
	{hasSuffix(".rpm"), Rpm},
}

// OperatingSystemFor detects the operating system an asset targets.
// It returns false when no rule recognizes the filename.
func OperatingSystemFor(filename string) (OperatingSystem, bool) {
	return firstMatch(osRules, strings.ToLower(filename))
}

// ArchitecturesFor detects every architecture an asset supports. The result
// is never empty: a filename without architecture tokens is assumed x64.
func ArchitecturesFor(filename string) ArchitectureSet {
	name := strings.ToLower(filename)
	if universalMatch(name) {
		return NewArchitectureSet(X64, ARM64)
	}

	var found []Architecture
	for _, r := range archSetRules {
		if r.match(name) {
			found = append(found, r.value...)
		}
	}
	if len(found) == 0 {
		return NewArchitectureSet(X64)
	}
	return NewArchitectureSet(found...)
}

// LegacyArchitectureFor detects the single-valued architecture used by
// legacy platform tags. It defaults to 64-bit.
func LegacyArchitectureFor(filename string) LegacyArchitecture {
	if arch, ok := firstMatch(legacyArchRules, strings.ToLower(filename)); ok {
		return arch
	}
	return Arch64
}

// HasArchitectureToken reports whether filename names an architecture at
// all, as opposed to relying on the 64-bit default.
func HasArchitectureToken(filename string) bool {
	name := strings.ToLower(filename)
	if _, ok := firstMatch(legacyArchRules, name); ok {
		return true
	}
	_, ok := firstMatch(archSetRules, name)
	return ok
}

// PackageFormatFor detects the installer package family, if any
func PackageFormatFor(filename string) (PackageFormat, bool) {
	return firstMatch(packageRules, strings.ToLower(filename))
}

// ExtensionOf returns the lower-cased extension of filename, keeping
// ".tar.gz" whole.
func ExtensionOf(filename string) string {
	name := strings.ToLower(filename)
	if strings.HasSuffix(name, ".tar.gz") {
		return ".tar.gz"
	}
	return filepath.Ext(name)
}
