// Package notes renders release notes for one release or a range of them.
package notes

import (
	"fmt"
	"strings"

	"github.com/ralt/relserve/internal/release"
)

// Format renders a single release's notes under a version heading. A
// release without notes renders as an empty string.
func Format(r *release.Release) string {
	if r == nil {
		return ""
	}
	body := strings.TrimSpace(r.Notes)
	if body == "" {
		return ""
	}
	return fmt.Sprintf("## %s\n\n%s", r.Version, body)
}

// Merge concatenates the notes of releases in the given order. The first
// release is left out unless includeLatest is set. Releases with empty
// notes are skipped entirely.
func Merge(releases []*release.Release, includeLatest bool) string {
	if !includeLatest && len(releases) > 0 {
		releases = releases[1:]
	}

	sections := make([]string, 0, len(releases))
	for _, r := range releases {
		if section := Format(r); section != "" {
			sections = append(sections, section)
		}
	}
	return strings.Join(sections, "\n\n")
}
