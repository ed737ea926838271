package notes

import (
	"testing"

	"github.com/ralt/relserve/internal/release"
)

func releases() []*release.Release {
	return []*release.Release{
		{Version: "1.2.0", Notes: "Fixed the updater.\n"},
		{Version: "1.1.0", Notes: "   "},
		{Version: "1.0.0", Notes: "First release."},
	}
}

func TestMerge(t *testing.T) {
	tests := []struct {
		name          string
		includeLatest bool
		want          string
	}{
		{
			name:          "with latest",
			includeLatest: true,
			want:          "## 1.2.0\n\nFixed the updater.\n\n## 1.0.0\n\nFirst release.",
		},
		{
			name:          "without latest",
			includeLatest: false,
			want:          "## 1.0.0\n\nFirst release.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Merge(releases(), tt.includeLatest); got != tt.want {
				t.Errorf("Merge() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestMergeEmpty(t *testing.T) {
	if got := Merge(nil, true); got != "" {
		t.Errorf("Merge(nil) = %q", got)
	}
	if got := Merge(nil, false); got != "" {
		t.Errorf("Merge(nil) = %q", got)
	}
	only := []*release.Release{{Version: "1.0.0", Notes: "x"}}
	if got := Merge(only, false); got != "" {
		t.Errorf("Merge(single, false) = %q", got)
	}
}

func TestFormat(t *testing.T) {
	if got := Format(&release.Release{Version: "2.0.0", Notes: "\n* new\n"}); got != "## 2.0.0\n\n* new" {
		t.Errorf("Format() = %q", got)
	}
	if got := Format(&release.Release{Version: "2.0.0"}); got != "" {
		t.Errorf("Format() of empty notes = %q", got)
	}
	if got := Format(nil); got != "" {
		t.Errorf("Format(nil) = %q", got)
	}
}
