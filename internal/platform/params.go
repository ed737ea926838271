package platform

import (
	"strings"

	"github.com/ralt/relserve/internal/models"
)

// Extensions clients may ask for explicitly
var SupportedExtensions = []string{".zip", ".dmg", ".exe", ".nupkg", ".deb", ".rpm", ".tar.gz", ".tgz"}

// DownloadExtensions returns the installer extensions served by default for
// an OS and package format.
func DownloadExtensions(os OperatingSystem, pkg PackageFormat) []string {
	switch os {
	case OSX:
		return []string{".dmg"}
	case Windows:
		return []string{".exe"}
	case Linux:
		switch pkg {
		case Rpm:
			return []string{".rpm"}
		case Deb:
			return []string{".deb"}
		default:
			return []string{".tar.gz", ".tgz"}
		}
	}
	return nil
}

// UpdateExtensions returns the extensions auto-updaters consume
func UpdateExtensions(os OperatingSystem, pkg PackageFormat) []string {
	switch os {
	case OSX:
		return []string{".zip"}
	case Windows:
		return []string{".nupkg"}
	default:
		return DownloadExtensions(os, pkg)
	}
}

// ParseOperatingSystem parses a client-supplied OS token
func ParseOperatingSystem(s string) (OperatingSystem, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "osx", "darwin", "mac", "macos":
		return OSX, nil
	case "windows", "win", "win32":
		return Windows, nil
	case "linux":
		return Linux, nil
	}
	return "", models.NewError(models.ErrInvalidQuery, s,
		"unrecognized operating system, expected one of osx, windows, linux")
}

// ParseArchitectures parses a client-supplied architecture token. The
// universal token expands to every architecture a universal binary covers.
func ParseArchitectures(s string) (ArchitectureSet, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "x64", "amd64", "64", "x86_64":
		return NewArchitectureSet(X64), nil
	case "arm64", "aarch64":
		return NewArchitectureSet(ARM64), nil
	case "x32", "ia32", "i386", "32", "x86":
		return NewArchitectureSet(X32), nil
	case "universal", "univ":
		return NewArchitectureSet(X64, ARM64), nil
	}
	return nil, models.NewError(models.ErrInvalidQuery, s,
		"unsupported architecture, expected one of x32, x64, arm64, univ, universal")
}

// ParsePackageFormat parses an optional package format token
func ParsePackageFormat(s string) (PackageFormat, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return NoPackage, nil
	case "deb":
		return Deb, nil
	case "rpm":
		return Rpm, nil
	}
	return NoPackage, models.NewError(models.ErrInvalidQuery, s,
		"unsupported package format, expected deb or rpm")
}

// ParseExtension normalizes an optional file type such as "zip" or ".dmg"
func ParseExtension(s string) (string, error) {
	ext := strings.ToLower(strings.TrimSpace(s))
	if ext == "" {
		return "", nil
	}
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	for _, supported := range SupportedExtensions {
		if ext == supported {
			return ext, nil
		}
	}
	return "", models.NewError(models.ErrInvalidQuery, s,
		"unsupported file type, expected one of %s", strings.Join(SupportedExtensions, ", "))
}
