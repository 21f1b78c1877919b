// ABOUTME: Optional Markdown page rendering for the builder using goldmark.
// ABOUTME: Rendered pages are wrapped in a shell carrying the placeholder so they receive the partial too.
package site

import (
	"bytes"
	"errors"
	"fmt"
	"html"
	"os"
	"path/filepath"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

type markdownRenderer struct {
	md goldmark.Markdown
}

func newMarkdownRenderer() *markdownRenderer {
	return &markdownRenderer{
		md: goldmark.New(goldmark.WithExtensions(extension.GFM)),
	}
}

// page converts markdown source into a standalone HTML document whose body
// starts with token.
func (r *markdownRenderer) page(title string, source []byte, token string) (string, error) {
	var buf bytes.Buffer
	if err := r.md.Convert(source, &buf); err != nil {
		return "", err
	}

	var sb strings.Builder
	sb.WriteString("<!DOCTYPE html>\n<html>\n<head>\n<meta charset=\"utf-8\">\n")
	fmt.Fprintf(&sb, "<title>%s</title>\n", html.EscapeString(title))
	sb.WriteString("</head>\n<body>\n")
	sb.WriteString(token)
	sb.WriteString("\n<main>\n")
	sb.Write(buf.Bytes())
	sb.WriteString("</main>\n</body>\n</html>\n")
	return sb.String(), nil
}

// renderMarkdown writes the HTML sibling of the markdown file at rel into dst.
// It returns false without writing when the source tree already has a page of
// that name.
func (b *Builder) renderMarkdown(path, rel, dst, partial string) (bool, error) {
	htmlRel := strings.TrimSuffix(rel, filepath.Ext(rel)) + ".html"
	if _, err := os.Stat(filepath.Join(b.src, htmlRel)); err == nil {
		return false, nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return false, err
	}

	source, err := os.ReadFile(path)
	if err != nil {
		return false, err
	}
	title := strings.TrimSuffix(filepath.Base(rel), filepath.Ext(rel))
	doc, err := b.markdown.page(title, source, b.token)
	if err != nil {
		return false, err
	}

	if err := writeFile(filepath.Join(dst, htmlRel), []byte(Inject(doc, partial, b.token)), 0o644); err != nil {
		return false, err
	}
	return true, nil
}
