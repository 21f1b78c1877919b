// ABOUTME: Site builder that mirrors a source tree into an output tree, injecting the shared partial into markup.
// ABOUTME: Builds into a staging directory next to the output and swaps it into place only after a full mirror.
package site

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
)

var (
	// ErrPartialNotFound is returned before anything is written when the
	// partial fragment file does not exist.
	ErrPartialNotFound = errors.New("partial not found")
	// ErrEmptyPlaceholder rejects builds whose placeholder token is empty.
	ErrEmptyPlaceholder = errors.New("placeholder token must not be empty")
	// ErrOutputOverlapsSource rejects an output root equal to or above the source root.
	ErrOutputOverlapsSource = errors.New("output root must not contain the source root")
)

// DefaultMarkupExts lists the extensions treated as markup when none are configured.
var DefaultMarkupExts = []string{".html", ".htm"}

// BuildOptions configures a Builder.
type BuildOptions struct {
	SourceRoot  string   // project directory to mirror
	OutputRoot  string   // destination tree, recreated on every build
	PartialPath string   // partial fragment; relative paths resolve against SourceRoot
	Placeholder string   // literal token replaced by the partial
	ExcludeDirs []string // top-level directory names never traversed
	MarkupExts  []string // extensions receiving injection (default: .html, .htm)
	Markdown    bool     // also render .md files to sibling .html pages
}

// Report summarizes a completed build.
type Report struct {
	ID       string
	Files    int // files written to the output tree
	Injected int // markup files that contained the placeholder
	Copied   int // files copied verbatim
	Rendered int // markdown pages rendered to HTML
	Duration time.Duration
}

// Builder produces an output tree from a source tree. A Builder must not be
// run concurrently with another build targeting the same output root.
type Builder struct {
	src        string
	out        string
	partial    string
	token      string
	exclude    map[string]bool
	markupExts map[string]bool
	markdown   *markdownRenderer
}

// NewBuilder validates opts and resolves all paths to absolute form.
func NewBuilder(opts BuildOptions) (*Builder, error) {
	if opts.SourceRoot == "" {
		return nil, fmt.Errorf("SourceRoot must not be empty")
	}
	if opts.OutputRoot == "" {
		return nil, fmt.Errorf("OutputRoot must not be empty")
	}
	if opts.Placeholder == "" {
		return nil, ErrEmptyPlaceholder
	}

	src, err := filepath.Abs(opts.SourceRoot)
	if err != nil {
		return nil, fmt.Errorf("resolving source root: %w", err)
	}
	out, err := filepath.Abs(opts.OutputRoot)
	if err != nil {
		return nil, fmt.Errorf("resolving output root: %w", err)
	}
	if rel, err := filepath.Rel(out, src); err == nil && !strings.HasPrefix(rel, "..") {
		return nil, fmt.Errorf("%w: source=%s output=%s", ErrOutputOverlapsSource, src, out)
	}

	partial := opts.PartialPath
	if !filepath.IsAbs(partial) {
		partial = filepath.Join(src, partial)
	}

	b := &Builder{
		src:        src,
		out:        out,
		partial:    partial,
		token:      opts.Placeholder,
		exclude:    make(map[string]bool, len(opts.ExcludeDirs)),
		markupExts: make(map[string]bool),
	}
	for _, name := range opts.ExcludeDirs {
		b.exclude[name] = true
	}
	exts := opts.MarkupExts
	if len(exts) == 0 {
		exts = DefaultMarkupExts
	}
	for _, ext := range exts {
		b.markupExts[strings.ToLower(ext)] = true
	}
	if opts.Markdown {
		b.markdown = newMarkdownRenderer()
	}
	return b, nil
}

// Build runs one full build. On error the previous output tree is left as it
// was and no partially built tree is swapped in.
func (b *Builder) Build(ctx context.Context) (*Report, error) {
	start := time.Now()
	report := &Report{ID: strings.ToLower(ulid.Make().String())}

	partial, err := b.readPartial()
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(filepath.Dir(b.out), 0o755); err != nil {
		return nil, fmt.Errorf("creating output parent: %w", err)
	}
	staging := b.scratchPath(report.ID, "tmp")
	if err := os.Mkdir(staging, 0o755); err != nil {
		return nil, fmt.Errorf("creating staging directory: %w", err)
	}

	log.Printf("build id=%s source=%s output=%s", report.ID, b.src, b.out)

	if err := b.mirror(ctx, staging, partial, report); err != nil {
		_ = os.RemoveAll(staging)
		return nil, err
	}
	if err := b.swap(staging, report.ID); err != nil {
		_ = os.RemoveAll(staging)
		return nil, err
	}

	report.Duration = time.Since(start)
	log.Printf("build id=%s files=%d injected=%d copied=%d rendered=%d duration=%s",
		report.ID,
		report.Files,
		report.Injected,
		report.Copied,
		report.Rendered,
		report.Duration.Round(time.Millisecond),
	)
	return report, nil
}

func (b *Builder) readPartial() (string, error) {
	data, err := os.ReadFile(b.partial)
	if errors.Is(err, os.ErrNotExist) {
		return "", fmt.Errorf("%w: %s", ErrPartialNotFound, b.partial)
	}
	if err != nil {
		return "", fmt.Errorf("reading partial %s: %w", b.partial, err)
	}
	return string(data), nil
}

// mirror walks the source tree in lexical order and writes every reachable
// file beneath dst.
func (b *Builder) mirror(ctx context.Context, dst, partial string, report *Report) error {
	return filepath.WalkDir(b.src, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return fmt.Errorf("walking %s: %w", path, walkErr)
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		rel, err := filepath.Rel(b.src, path)
		if err != nil {
			return fmt.Errorf("relativizing %s: %w", path, err)
		}
		if rel == "." {
			return nil
		}

		if d.IsDir() {
			if b.pruned(path, rel, dst) {
				return filepath.SkipDir
			}
			return nil
		}

		info, err := regularFileInfo(path, d)
		if err != nil {
			return fmt.Errorf("stat %s: %w", rel, err)
		}
		if info == nil {
			log.Printf("build skip path=%s reason=not-a-regular-file", rel)
			return nil
		}

		target := filepath.Join(dst, rel)
		ext := strings.ToLower(filepath.Ext(rel))

		if b.markupExts[ext] {
			injected, err := writeMarkup(path, target, partial, b.token, info.Mode().Perm())
			if err != nil {
				return fmt.Errorf("injecting %s: %w", rel, err)
			}
			if injected {
				report.Injected++
			}
			report.Files++
			return nil
		}

		if err := copyFile(path, target, info); err != nil {
			return fmt.Errorf("copying %s: %w", rel, err)
		}
		report.Copied++
		report.Files++

		if b.markdown != nil && ext == ".md" {
			rendered, err := b.renderMarkdown(path, rel, dst, partial)
			if err != nil {
				return fmt.Errorf("rendering %s: %w", rel, err)
			}
			if rendered {
				report.Rendered++
				report.Files++
			}
		}
		return nil
	})
}

// pruned reports whether a directory is skipped: excluded by its first path
// component, or one of the builder's own output and scratch directories.
func (b *Builder) pruned(abs, rel, staging string) bool {
	first := strings.SplitN(filepath.ToSlash(rel), "/", 2)[0]
	if b.exclude[first] {
		return true
	}
	if abs == b.out || abs == staging {
		return true
	}
	return filepath.Dir(abs) == filepath.Dir(b.out) && b.isScratchName(filepath.Base(abs))
}

func (b *Builder) scratchPath(id, kind string) string {
	return filepath.Join(filepath.Dir(b.out), fmt.Sprintf(".%s-%s.%s", filepath.Base(b.out), id, kind))
}

func (b *Builder) isScratchName(name string) bool {
	prefix := "." + filepath.Base(b.out) + "-"
	return strings.HasPrefix(name, prefix) &&
		(strings.HasSuffix(name, ".tmp") || strings.HasSuffix(name, ".old"))
}

// swap moves the previous output aside, renames staging into place and then
// discards the previous output. If the final rename fails the previous output
// is restored.
func (b *Builder) swap(staging, id string) error {
	var previous string
	if _, err := os.Lstat(b.out); err == nil {
		previous = b.scratchPath(id, "old")
		if err := os.Rename(b.out, previous); err != nil {
			return fmt.Errorf("moving previous output aside: %w", err)
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("stat output %s: %w", b.out, err)
	}

	if err := os.Rename(staging, b.out); err != nil {
		if previous != "" {
			_ = os.Rename(previous, b.out)
		}
		return fmt.Errorf("renaming build into %s: %w", b.out, err)
	}

	if previous != "" {
		if err := os.RemoveAll(previous); err != nil {
			log.Printf("build id=%s warning: removing previous output %s: %v", id, previous, err)
		}
	}
	return nil
}
