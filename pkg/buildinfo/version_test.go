package buildinfo

import (
	"strings"
	"testing"
)

func TestIsDev(t *testing.T) {
	orig := Version
	defer func() { Version = orig }()

	tests := []struct {
		version string
		want    bool
	}{
		{"dev", true},
		{"", true},
		{"v1.2.3", false},
	}
	for _, tt := range tests {
		Version = tt.version
		if got := IsDev(); got != tt.want {
			t.Errorf("IsDev() with Version=%q = %v, want %v", tt.version, got, tt.want)
		}
	}
}

func TestTemplate(t *testing.T) {
	if !strings.Contains(Template(), "{{.Name}} version") {
		t.Errorf("Template() = %q, missing cobra name placeholder", Template())
	}
	if !strings.Contains(String(), "commit: ") {
		t.Errorf("String() = %q, missing commit line", String())
	}
}
