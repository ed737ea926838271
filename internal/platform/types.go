// Package platform derives operating system, architecture and package
// format from release asset filenames, and translates between those
// attributes and the legacy composite platform tags older clients send.
package platform

import (
	"sort"
	"strings"
)

// OperatingSystem identifies the target OS of an asset
type OperatingSystem string

const (
	OSX     OperatingSystem = "osx"
	Windows OperatingSystem = "windows"
	Linux   OperatingSystem = "linux"
)

// OperatingSystems lists every recognized OS in display order
var OperatingSystems = []OperatingSystem{OSX, Windows, Linux}

// Architecture is a CPU architecture an asset runs on
type Architecture string

const (
	X32   Architecture = "x32"
	X64   Architecture = "x64"
	ARM64 Architecture = "arm64"
)

// Architectures lists every supported architecture in canonical order
var Architectures = []Architecture{X32, X64, ARM64}

// LegacyArchitecture is the single-valued architecture older clients use
type LegacyArchitecture string

const (
	Arch32        LegacyArchitecture = "32"
	Arch64        LegacyArchitecture = "64"
	ArchARM64     LegacyArchitecture = "arm64"
	ArchUniversal LegacyArchitecture = "universal"
)

// PackageFormat is an installer package family. The zero value means the
// format is not known or not relevant.
type PackageFormat string

const (
	NoPackage PackageFormat = ""
	Deb       PackageFormat = "deb"
	Rpm       PackageFormat = "rpm"
)

// ArchitectureSet is a deduplicated set of architectures kept in canonical order
type ArchitectureSet []Architecture

// NewArchitectureSet builds a set from archs, dropping duplicates
func NewArchitectureSet(archs ...Architecture) ArchitectureSet {
	seen := make(map[Architecture]bool, len(archs))
	set := make(ArchitectureSet, 0, len(archs))
	for _, a := range archs {
		if seen[a] {
			continue
		}
		seen[a] = true
		set = append(set, a)
	}
	sort.SliceStable(set, func(i, j int) bool {
		return archRank(set[i]) < archRank(set[j])
	})
	return set
}

func archRank(a Architecture) int {
	for i, known := range Architectures {
		if known == a {
			return i
		}
	}
	return len(Architectures)
}

// Contains reports whether a is in the set
func (s ArchitectureSet) Contains(a Architecture) bool {
	for _, have := range s {
		if have == a {
			return true
		}
	}
	return false
}

// ContainsAll reports whether every architecture of other is in the set.
// An empty other is always contained.
func (s ArchitectureSet) ContainsAll(other ArchitectureSet) bool {
	for _, a := range other {
		if !s.Contains(a) {
			return false
		}
	}
	return true
}

// IsUniversal reports whether the set covers more than one architecture
func (s ArchitectureSet) IsUniversal() bool {
	return len(s) > 1
}

// String returns the set joined with "+", e.g. "x64+arm64"
func (s ArchitectureSet) String() string {
	parts := make([]string, len(s))
	for i, a := range s {
		parts[i] = string(a)
	}
	return strings.Join(parts, "+")
}

// Architectures expands a legacy architecture into the set it stands for
func (a LegacyArchitecture) Architectures() ArchitectureSet {
	switch a {
	case Arch32:
		return NewArchitectureSet(X32)
	case ArchARM64:
		return NewArchitectureSet(ARM64)
	case ArchUniversal:
		return NewArchitectureSet(X64, ARM64)
	default:
		return NewArchitectureSet(X64)
	}
}
