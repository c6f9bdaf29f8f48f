package buildinfo

import (
	"strings"
	"testing"
)

func TestGet(t *testing.T) {
	info := Get()

	tests := []struct {
		name  string
		value string
	}{
		{"Version", info.Version},
		{"Commit", info.Commit},
		{"BuildTime", info.BuildTime},
		{"GoVersion", info.GoVersion},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.value == "" {
				t.Errorf("%s should not be empty", tt.name)
			}
		})
	}

	if info.GoVersion == "unknown" {
		t.Error("GoVersion should come from the embedded build info in tests")
	}
}

func TestGet_LdflagsWin(t *testing.T) {
	orig := Version
	t.Cleanup(func() { Version = orig })
	Version = "v9.9.9"

	if got := Get().Version; got != "v9.9.9" {
		t.Fatalf("Version = %q", got)
	}
}

func TestString(t *testing.T) {
	s := String()
	i := Get()
	if !strings.HasPrefix(s, i.Version+" ("+i.Commit+") built at ") {
		t.Errorf("String() = %q", s)
	}
	if !strings.HasSuffix(s, i.GoVersion) {
		t.Errorf("String() = %q, missing go version", s)
	}
}
