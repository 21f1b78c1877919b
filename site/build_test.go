// ABOUTME: Tests for the site builder covering mirroring, exclusion, injection, determinism, and failure modes.
// ABOUTME: Every test builds a small project under t.TempDir() with dist/ inside the source root.
package site

import (
	"bytes"
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"
)

const testPartial = `<nav class="site"><a href="/">Home</a></nav>`

// writeTree creates files (relative path -> content) under root.
func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
}

// readTree returns every regular file under root keyed by slash-separated
// relative path.
func readTree(t *testing.T, root string) map[string][]byte {
	t.Helper()
	out := map[string][]byte{}
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, _ := filepath.Rel(root, path)
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		out[filepath.ToSlash(rel)] = data
		return nil
	})
	if err != nil {
		t.Fatalf("reading tree %s: %v", root, err)
	}
	return out
}

func sortedKeys(m map[string][]byte) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func newTestProject(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"assets/partials/navbar.html": testPartial,
		"index.html":                  "<body>" + testToken + "<h1>Home</h1></body>",
		"about/index.html":            "<body>" + testToken + "<h1>About</h1></body>",
		"plain.html":                  "<body><p>no nav here</p></body>",
		"assets/css/site.css":         "body { margin: 0; }",
		"assets/js/data.js":           "var siteData = {};",
		"empty.txt":                   "",
		"tools/build_site.py":         "print('build')",
		".git/HEAD":                   "ref: refs/heads/main",
		"docs/tools/notes.txt":        "nested tools dir is not excluded",
	})
	if err := os.WriteFile(filepath.Join(root, "assets/img.bin"), []byte{0x00, 0xff, 0x10, 0x00}, 0o600); err != nil {
		t.Fatal(err)
	}
	return root
}

func newTestBuilder(t *testing.T, root string, markdown bool) *Builder {
	t.Helper()
	b, err := NewBuilder(BuildOptions{
		SourceRoot:  root,
		OutputRoot:  filepath.Join(root, "dist"),
		PartialPath: "assets/partials/navbar.html",
		Placeholder: testToken,
		ExcludeDirs: []string{"dist", "tools", ".git"},
		Markdown:    markdown,
	})
	if err != nil {
		t.Fatalf("NewBuilder: %v", err)
	}
	return b
}

func TestBuildMirrorsSourceTree(t *testing.T) {
	root := newTestProject(t)
	b := newTestBuilder(t, root, false)

	report, err := b.Build(context.Background())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	out := readTree(t, filepath.Join(root, "dist"))
	want := []string{
		"about/index.html",
		"assets/css/site.css",
		"assets/img.bin",
		"assets/js/data.js",
		"assets/partials/navbar.html",
		"docs/tools/notes.txt",
		"empty.txt",
		"index.html",
		"plain.html",
	}
	got := sortedKeys(out)
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Fatalf("expected files %v, got %v", want, got)
	}

	if report.Files != len(want) {
		t.Errorf("expected report.Files=%d, got %d", len(want), report.Files)
	}
	if report.Injected != 2 {
		t.Errorf("expected 2 injected pages, got %d", report.Injected)
	}
	if report.Copied != 5 {
		t.Errorf("expected 5 copied files, got %d", report.Copied)
	}
	if report.ID == "" {
		t.Error("expected a build id")
	}
}

func TestBuildInjectsPartial(t *testing.T) {
	root := newTestProject(t)
	if _, err := newTestBuilder(t, root, false).Build(context.Background()); err != nil {
		t.Fatalf("Build: %v", err)
	}

	index, err := os.ReadFile(filepath.Join(root, "dist", "index.html"))
	if err != nil {
		t.Fatal(err)
	}
	want := "<body>" + testPartial + "<h1>Home</h1></body>"
	if string(index) != want {
		t.Errorf("expected %q, got %q", want, string(index))
	}

	plain, err := os.ReadFile(filepath.Join(root, "dist", "plain.html"))
	if err != nil {
		t.Fatal(err)
	}
	if string(plain) != "<body><p>no nav here</p></body>" {
		t.Errorf("expected page without placeholder unchanged, got %q", string(plain))
	}
}

func TestBuildCopiesNonMarkupVerbatim(t *testing.T) {
	root := newTestProject(t)
	if _, err := newTestBuilder(t, root, false).Build(context.Background()); err != nil {
		t.Fatalf("Build: %v", err)
	}

	for _, rel := range []string{"assets/img.bin", "assets/css/site.css", "empty.txt", "assets/js/data.js"} {
		src, err := os.ReadFile(filepath.Join(root, rel))
		if err != nil {
			t.Fatal(err)
		}
		dst, err := os.ReadFile(filepath.Join(root, "dist", rel))
		if err != nil {
			t.Fatalf("expected %s in output: %v", rel, err)
		}
		if !bytes.Equal(src, dst) {
			t.Errorf("expected %s to be byte-identical", rel)
		}
	}

	info, err := os.Stat(filepath.Join(root, "dist", "assets", "img.bin"))
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Errorf("expected mode 0600 preserved, got %v", info.Mode().Perm())
	}
	srcInfo, err := os.Stat(filepath.Join(root, "assets", "img.bin"))
	if err != nil {
		t.Fatal(err)
	}
	if !info.ModTime().Equal(srcInfo.ModTime()) {
		t.Errorf("expected mtime %v preserved, got %v", srcInfo.ModTime(), info.ModTime())
	}
}

func TestBuildIsDeterministic(t *testing.T) {
	root := newTestProject(t)
	b := newTestBuilder(t, root, false)

	if _, err := b.Build(context.Background()); err != nil {
		t.Fatalf("first Build: %v", err)
	}
	first := readTree(t, filepath.Join(root, "dist"))

	if _, err := b.Build(context.Background()); err != nil {
		t.Fatalf("second Build: %v", err)
	}
	second := readTree(t, filepath.Join(root, "dist"))

	if len(first) != len(second) {
		t.Fatalf("expected %d files after rebuild, got %d", len(first), len(second))
	}
	for rel, data := range first {
		if !bytes.Equal(data, second[rel]) {
			t.Errorf("expected %s to be identical across builds", rel)
		}
	}
}

func TestBuildRemovesStaleOutput(t *testing.T) {
	root := newTestProject(t)
	writeTree(t, root, map[string]string{"dist/stale.html": "old"})

	if _, err := newTestBuilder(t, root, false).Build(context.Background()); err != nil {
		t.Fatalf("Build: %v", err)
	}
	if _, err := os.Stat(filepath.Join(root, "dist", "stale.html")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("expected stale file to be gone, stat err=%v", err)
	}
}

func TestBuildLeavesNoScratchDirectories(t *testing.T) {
	root := newTestProject(t)
	b := newTestBuilder(t, root, false)
	for i := 0; i < 2; i++ {
		if _, err := b.Build(context.Background()); err != nil {
			t.Fatalf("Build: %v", err)
		}
	}

	entries, err := os.ReadDir(root)
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), ".dist-") {
			t.Errorf("expected no scratch directories, found %s", e.Name())
		}
	}
}

func TestBuildMirrorFailureKeepsPreviousOutput(t *testing.T) {
	root := newTestProject(t)
	writeTree(t, root, map[string]string{"dist/keep.html": "previous build"})
	if err := os.Symlink(filepath.Join(root, "nowhere.css"), filepath.Join(root, "broken.css")); err != nil {
		t.Skipf("symlinks unavailable: %v", err)
	}

	_, err := newTestBuilder(t, root, false).Build(context.Background())
	if err == nil {
		t.Fatal("expected build to fail on a dangling symlink")
	}
	if !strings.Contains(err.Error(), "broken.css") {
		t.Errorf("expected error to name broken.css, got %v", err)
	}

	got, err := os.ReadFile(filepath.Join(root, "dist", "keep.html"))
	if err != nil || string(got) != "previous build" {
		t.Errorf("expected previous output untouched, got %q (err=%v)", got, err)
	}

	entries, err := os.ReadDir(root)
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), ".dist-") {
			t.Errorf("expected no scratch directories after failure, found %s", e.Name())
		}
	}
}

func TestBuildSkipsLeftoverScratchDirectories(t *testing.T) {
	root := newTestProject(t)
	writeTree(t, root, map[string]string{".dist-crashed.tmp/index.html": "half-built"})

	if _, err := newTestBuilder(t, root, false).Build(context.Background()); err != nil {
		t.Fatalf("Build: %v", err)
	}
	if _, err := os.Stat(filepath.Join(root, "dist", ".dist-crashed.tmp")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("expected leftover scratch directory to be skipped, stat err=%v", err)
	}
}

func TestBuildMissingPartialWritesNothing(t *testing.T) {
	root := newTestProject(t)
	writeTree(t, root, map[string]string{"dist/keep.html": "previous build"})
	if err := os.Remove(filepath.Join(root, "assets", "partials", "navbar.html")); err != nil {
		t.Fatal(err)
	}

	_, err := newTestBuilder(t, root, false).Build(context.Background())
	if !errors.Is(err, ErrPartialNotFound) {
		t.Fatalf("expected ErrPartialNotFound, got %v", err)
	}

	got, err := os.ReadFile(filepath.Join(root, "dist", "keep.html"))
	if err != nil || string(got) != "previous build" {
		t.Errorf("expected previous output untouched, got %q (err=%v)", got, err)
	}
}

func TestBuildDoesNotMirrorEmptyDirectories(t *testing.T) {
	root := newTestProject(t)
	if err := os.MkdirAll(filepath.Join(root, "empty", "nested"), 0o755); err != nil {
		t.Fatal(err)
	}

	if _, err := newTestBuilder(t, root, false).Build(context.Background()); err != nil {
		t.Fatalf("Build: %v", err)
	}
	if _, err := os.Stat(filepath.Join(root, "dist", "empty")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("expected empty directory not to be mirrored, stat err=%v", err)
	}
}

func TestBuildCanceledContext(t *testing.T) {
	root := newTestProject(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newTestBuilder(t, root, false).Build(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if _, err := os.Stat(filepath.Join(root, "dist")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("expected no output after canceled build, stat err=%v", err)
	}
}

func TestBuildRendersMarkdown(t *testing.T) {
	root := newTestProject(t)
	writeTree(t, root, map[string]string{
		"blog/first.md": "# First post\n\nHello *world*.\n",
		"guide.md":      "# Guide\n",
		"guide.html":    "<body>hand written</body>",
	})

	report, err := newTestBuilder(t, root, true).Build(context.Background())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if report.Rendered != 1 {
		t.Errorf("expected 1 rendered page, got %d", report.Rendered)
	}

	page, err := os.ReadFile(filepath.Join(root, "dist", "blog", "first.html"))
	if err != nil {
		t.Fatalf("expected rendered page: %v", err)
	}
	body := string(page)
	if !strings.Contains(body, testPartial) {
		t.Errorf("expected partial injected into rendered page, got %q", body)
	}
	if !strings.Contains(body, "<em>world</em>") {
		t.Errorf("expected markdown rendered to HTML, got %q", body)
	}
	if strings.Contains(body, testToken) {
		t.Errorf("expected no placeholder left, got %q", body)
	}

	src, err := os.ReadFile(filepath.Join(root, "dist", "blog", "first.md"))
	if err != nil || !strings.HasPrefix(string(src), "# First post") {
		t.Errorf("expected markdown source copied verbatim, got %q (err=%v)", src, err)
	}

	guide, err := os.ReadFile(filepath.Join(root, "dist", "guide.html"))
	if err != nil || string(guide) != "<body>hand written</body>" {
		t.Errorf("expected source page to win over rendered markdown, got %q (err=%v)", guide, err)
	}
}

func TestBuildMarkdownDisabled(t *testing.T) {
	root := newTestProject(t)
	writeTree(t, root, map[string]string{"notes.md": "# Notes\n"})

	if _, err := newTestBuilder(t, root, false).Build(context.Background()); err != nil {
		t.Fatalf("Build: %v", err)
	}
	if _, err := os.Stat(filepath.Join(root, "dist", "notes.html")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("expected no rendered page without markdown enabled, stat err=%v", err)
	}
}

func TestNewBuilderValidation(t *testing.T) {
	root := t.TempDir()

	tests := []struct {
		name string
		opts BuildOptions
		want error
	}{
		{
			name: "empty placeholder",
			opts: BuildOptions{SourceRoot: root, OutputRoot: filepath.Join(root, "dist")},
			want: ErrEmptyPlaceholder,
		},
		{
			name: "output equals source",
			opts: BuildOptions{SourceRoot: root, OutputRoot: root, Placeholder: testToken},
			want: ErrOutputOverlapsSource,
		},
		{
			name: "output above source",
			opts: BuildOptions{SourceRoot: filepath.Join(root, "site"), OutputRoot: root, Placeholder: testToken},
			want: ErrOutputOverlapsSource,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewBuilder(tt.opts); !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestBuildOutputOutsideSource(t *testing.T) {
	root := newTestProject(t)
	out := filepath.Join(t.TempDir(), "public")

	b, err := NewBuilder(BuildOptions{
		SourceRoot:  root,
		OutputRoot:  out,
		PartialPath: filepath.Join(root, "assets", "partials", "navbar.html"),
		Placeholder: testToken,
		ExcludeDirs: []string{"tools", ".git"},
	})
	if err != nil {
		t.Fatalf("NewBuilder: %v", err)
	}
	if _, err := b.Build(context.Background()); err != nil {
		t.Fatalf("Build: %v", err)
	}
	if _, err := os.Stat(filepath.Join(out, "index.html")); err != nil {
		t.Errorf("expected index.html in external output: %v", err)
	}
}
