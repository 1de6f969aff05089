package walker

import (
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, root, rel string, data []byte) {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
}

func relPaths(sources []Source) []string {
	out := make([]string, len(sources))
	for i, s := range sources {
		out[i] = s.RelPath
	}
	return out
}

func TestCollectIncludeExclude(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "notes/meeting.md", []byte("# Meeting"))
	writeFile(t, root, "notes/draft.txt", []byte("draft"))
	writeFile(t, root, "archive/old.md", []byte("# Old"))
	writeFile(t, root, "image.png", []byte{0x89, 0x50, 0x4e, 0x47})

	sources, err := Collect(root, Options{
		Include: []string{"**/*.md"},
		Exclude: []string{"archive/**"},
	})
	if err != nil {
		t.Fatalf("Collect() error: %v", err)
	}
	got := relPaths(sources)
	if len(got) != 1 || got[0] != "notes/meeting.md" {
		t.Errorf("Collect() = %v, want [notes/meeting.md]", got)
	}
}

func TestCollectSkipsBinaryAndOversized(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "ok.txt", []byte("plain text"))
	writeFile(t, root, "binary.txt", []byte{'a', 0x00, 'b'})

	big := make([]byte, 128)
	for i := range big {
		big[i] = 'x'
	}
	writeFile(t, root, "big.txt", big)

	sources, err := Collect(root, Options{MaxFileSize: 64})
	if err != nil {
		t.Fatalf("Collect() error: %v", err)
	}
	got := relPaths(sources)
	if len(got) != 1 || got[0] != "ok.txt" {
		t.Errorf("Collect() = %v, want [ok.txt]", got)
	}
}

func TestCollectSkipsExcludedDirsAndGitignore(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, ".gitignore", []byte("ignored\n*.tmp\n"))
	writeFile(t, root, "keep.md", []byte("# Keep"))
	writeFile(t, root, "scratch.tmp", []byte("scratch"))
	writeFile(t, root, "ignored/secret.md", []byte("# Secret"))
	writeFile(t, root, "node_modules/pkg/readme.md", []byte("# Pkg"))
	writeFile(t, root, ".docintel/docintel.db-journal", []byte("journal"))

	sources, err := Collect(root, Options{Include: []string{"**/*.md", "**/*.tmp"}})
	if err != nil {
		t.Fatalf("Collect() error: %v", err)
	}
	got := relPaths(sources)
	if len(got) != 1 || got[0] != "keep.md" {
		t.Errorf("Collect() = %v, want [keep.md]", got)
	}
}

func TestMatchesIncludeEmptyMeansAll(t *testing.T) {
	if !MatchesInclude("any/path.txt", nil) {
		t.Error("empty include patterns should match everything")
	}
	if MatchesExclude("any/path.txt", nil) {
		t.Error("empty exclude patterns should match nothing")
	}
}
