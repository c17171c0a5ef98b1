package pkg

import (
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
)

func TestName(t *testing.T) {
	expected := "lineprof"
	if Name != expected {
		t.Errorf("Expected Name to be %q, got %q", expected, Name)
	}
}

func TestVersion(t *testing.T) {
	// Version is embedded from the VERSION file next to this source file.
	buf, err := os.ReadFile("VERSION")
	if err != nil {
		t.Fatalf("Failed to read VERSION file: %v", err)
	}

	if content := strings.TrimSpace(string(buf)); Version != content {
		t.Errorf("Expected Version to be %q, got %q", content, Version)
	}
}

func TestAuthor(t *testing.T) {
	if len(Author) == 0 {
		t.Fatal("Expected Author to have at least one entry")
	}

	if !slices.ContainsFunc(Author, func(a AuthorInfo) bool {
		return a.Name == "ardnew"
	}) {
		t.Errorf("Expected Author to contain %q", "ardnew")
	}

	for i, author := range Author {
		if author.Name == "" && author.Email == "" {
			t.Errorf("Author[%d] must define at least Name or Email", i)
		}
	}
}

func TestPrefix_TestBinary_UsesName(t *testing.T) {
	// Test binaries are named "<pkg>.test" and must not leak into paths.
	if got := Prefix(); got != Name {
		t.Errorf("Expected Prefix %q under go test, got %q", Name, got)
	}

	if got := EnvPrefix(); got != "LINEPROF_" {
		t.Errorf("Expected EnvPrefix %q, got %q", "LINEPROF_", got)
	}
}

func TestConfigDir_EndsWithPrefix(t *testing.T) {
	for name, dir := range map[string]string{
		"config": ConfigDir(),
		"cache":  CacheDir(),
	} {
		t.Run(name, func(t *testing.T) {
			if filepath.Base(dir) != Prefix() {
				t.Errorf("Expected %s dir to end with %q, got %q", name, Prefix(), dir)
			}
		})
	}
}
