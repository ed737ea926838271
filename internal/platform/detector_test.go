package platform

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

var filenameCases = []struct {
	filename string
	os       OperatingSystem
	arch     LegacyArchitecture
	pkg      PackageFormat
	tag      Tag
}{
	{"myapp-v0.25.1-darwin-x64.zip", OSX, Arch64, NoPackage, OSX64},
	{"myapp.dmg", OSX, Arch64, NoPackage, OSX64},
	{"myapp-arm.dmg", OSX, ArchARM64, NoPackage, OSXARM64},
	{"myapp-v0.25.1-darwin-universal.zip", OSX, ArchUniversal, NoPackage, OSXUniversal},
	{"myapp-osx-univ.zip", OSX, ArchUniversal, NoPackage, OSXUniversal},
	{"myapp-universal.dmg", OSX, ArchUniversal, NoPackage, OSXUniversal},
	{"myapp-v0.25.1-win32-ia32.zip", Windows, Arch32, NoPackage, Windows32},
	{"myapp-v0.25.1-win32-x64.zip", Windows, Arch32, NoPackage, Windows32},
	{"myapp-v0.25.1-win-x64.zip", Windows, Arch64, NoPackage, Windows64},
	{"app-1.0.0-x86_64.rpm", Linux, Arch32, Rpm, LinuxRPM32},
	{"atom-1.0.9-delta.nupkg", Windows, Arch64, NoPackage, Windows64},
	{"RELEASES", Windows, ArchUniversal, NoPackage, ""},
	{"enterprise-amd64.tar.gz", Linux, Arch64, NoPackage, Linux64},
	{"enterprise-amd64.tgz", Linux, Arch64, NoPackage, Linux64},
	{"enterprise-ia32.tar.gz", Linux, Arch32, NoPackage, Linux32},
	{"enterprise-ia32.tgz", Linux, Arch32, NoPackage, Linux32},
	{"atom-ia32.deb", Linux, Arch32, Deb, LinuxDeb32},
	{"atom-amd64.deb", Linux, Arch64, Deb, LinuxDeb64},
	{"atom-ia32.rpm", Linux, Arch32, Rpm, LinuxRPM32},
	{"atom-amd64.rpm", Linux, Arch64, Rpm, LinuxRPM64},
	{"app-x86_64.AppImage", OperatingSystem(""), Arch32, NoPackage, ""},
}

func TestOperatingSystemFor(t *testing.T) {
	for _, tc := range filenameCases {
		t.Run(tc.filename, func(t *testing.T) {
			os, ok := OperatingSystemFor(tc.filename)
			if tc.os == "" {
				assert.False(t, ok)
				return
			}
			assert.True(t, ok)
			assert.Equal(t, tc.os, os)
		})
	}
}

func TestOperatingSystemForPrecedence(t *testing.T) {
	// extension rules beat substring rules
	os, ok := OperatingSystemFor("tool-darwin-installer.exe")
	assert.True(t, ok)
	assert.Equal(t, Windows, os)

	// "darwin" contains "win" but is checked first
	os, ok = OperatingSystemFor("tool-darwin.zip")
	assert.True(t, ok)
	assert.Equal(t, OSX, os)

	_, ok = OperatingSystemFor("checksums.txt")
	assert.False(t, ok)
}

func TestLegacyArchitectureFor(t *testing.T) {
	for _, tc := range filenameCases {
		t.Run(tc.filename, func(t *testing.T) {
			assert.Equal(t, tc.arch, LegacyArchitectureFor(tc.filename))
		})
	}
}

func TestLegacyArchitectureForIsTotal(t *testing.T) {
	valid := map[LegacyArchitecture]bool{Arch32: true, Arch64: true, ArchARM64: true, ArchUniversal: true}
	for _, name := range []string{"", "a", "x86", "arm", "README.md", "app-i386", "app-1.0.0"} {
		got := LegacyArchitectureFor(name)
		if !valid[got] {
			t.Errorf("LegacyArchitectureFor(%q) = %q", name, got)
		}
	}
	assert.Equal(t, Arch64, LegacyArchitectureFor("no-tokens-here"))
	// arm64 wins over the generic 64-bit tokens
	assert.Equal(t, ArchARM64, LegacyArchitectureFor("app-arm64-x64.zip"))
}

func TestLegacyArchitecture32BitMarkerWins(t *testing.T) {
	for _, name := range []string{"app-win32-x64.zip", "app-1.0.0-x86_64.rpm", "app-ia32-x64.exe"} {
		assert.Equal(t, Arch32, LegacyArchitectureFor(name), name)
	}
	for _, name := range []string{"app-x64.zip", "app-1.0.0-amd64.rpm", "AppSetup.exe"} {
		assert.Equal(t, Arch64, LegacyArchitectureFor(name), name)
	}
}

func TestHasArchitectureToken(t *testing.T) {
	assert.False(t, HasArchitectureToken("AppSetup.exe"))
	assert.False(t, HasArchitectureToken("app-1.0.0-full.nupkg"))
	assert.True(t, HasArchitectureToken("app-x64.zip"))
	assert.True(t, HasArchitectureToken("app-amd64.deb"))
	assert.True(t, HasArchitectureToken("app-ia32.exe"))
	assert.True(t, HasArchitectureToken("app-arm64.dmg"))
	assert.True(t, HasArchitectureToken("RELEASES"))
}

func TestPackageFormatFor(t *testing.T) {
	for _, tc := range filenameCases {
		t.Run(tc.filename, func(t *testing.T) {
			pkg, ok := PackageFormatFor(tc.filename)
			assert.Equal(t, tc.pkg, pkg)
			assert.Equal(t, tc.pkg != NoPackage, ok)
		})
	}
}

func TestArchitecturesFor(t *testing.T) {
	tests := []struct {
		filename string
		want     ArchitectureSet
	}{
		{"app-2.0.0-universal.dmg", ArchitectureSet{X64, ARM64}},
		{"app-2.0.0-univ.dmg", ArchitectureSet{X64, ARM64}},
		{"app-universal-ia32.zip", ArchitectureSet{X64, ARM64}},
		{"app-2.0.0-arm64.dmg", ArchitectureSet{ARM64}},
		{"app-2.0.0-x64.dmg", ArchitectureSet{X64}},
		{"app-amd64.deb", ArchitectureSet{X64}},
		{"app-ia32.deb", ArchitectureSet{X32}},
		{"app-i386.rpm", ArchitectureSet{X32}},
		{"app-x32-arm64.zip", ArchitectureSet{X32, ARM64}},
		{"RELEASES", ArchitectureSet{X32, X64}},
		{"AtomSetup.exe", ArchitectureSet{X64}},
	}

	for _, tt := range tests {
		t.Run(tt.filename, func(t *testing.T) {
			assert.Equal(t, tt.want, ArchitecturesFor(tt.filename))
		})
	}
}

func TestArchitecturesForNeverEmptyWhenOSKnown(t *testing.T) {
	for _, tc := range filenameCases {
		if _, ok := OperatingSystemFor(tc.filename); !ok {
			continue
		}
		if len(ArchitecturesFor(tc.filename)) == 0 {
			t.Errorf("ArchitecturesFor(%q) is empty", tc.filename)
		}
	}
}

func TestExtensionOf(t *testing.T) {
	assert.Equal(t, ".tar.gz", ExtensionOf("App-1.0.TAR.GZ"))
	assert.Equal(t, ".tgz", ExtensionOf("app.tgz"))
	assert.Equal(t, ".dmg", ExtensionOf("app.dmg"))
	assert.Equal(t, "", ExtensionOf("RELEASES"))
}
