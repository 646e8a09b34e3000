package corpus

import (
	"bytes"
	"fmt"
	"io"
	"mime"
	"path/filepath"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
	"golang.org/x/net/html"
)

// Format identifies how a corpus text is encoded.
type Format int

const (
	Plain Format = iota
	Markdown
	HTML
)

func (f Format) String() string {
	switch f {
	case Markdown:
		return "markdown"
	case HTML:
		return "html"
	default:
		return "plain"
	}
}

// ParseFormat parses a format name as printed by Format.String. The empty
// string is Plain.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(s) {
	case "", "plain", "text", "txt":
		return Plain, nil
	case "markdown", "md":
		return Markdown, nil
	case "html", "htm":
		return HTML, nil
	}
	return Plain, fmt.Errorf("unknown corpus format %q", s)
}

// DetectFormat picks a format from a MIME type, falling back to the file
// extension of name. Anything unrecognised is Plain.
func DetectFormat(name, contentType string) Format {
	if mediaType, _, err := mime.ParseMediaType(contentType); err == nil {
		switch mediaType {
		case "text/markdown", "text/x-markdown":
			return Markdown
		case "text/html", "application/xhtml+xml":
			return HTML
		case "text/plain":
			return Plain
		}
	}
	switch strings.ToLower(filepath.Ext(name)) {
	case ".md", ".markdown":
		return Markdown
	case ".html", ".htm", ".xhtml":
		return HTML
	}
	return Plain
}

// Extract returns the prose of r with the markup of format f removed. Code
// blocks, scripts and page chrome are dropped since they make poor training
// text. Blocks are separated by blank lines.
func Extract(r io.Reader, f Format) (string, error) {
	switch f {
	case Markdown:
		src, err := io.ReadAll(r)
		if err != nil {
			return "", err
		}
		return extractMarkdown(src)
	case HTML:
		return extractHTML(r)
	default:
		src, err := io.ReadAll(r)
		if err != nil {
			return "", err
		}
		return string(src), nil
	}
}

func extractMarkdown(src []byte) (string, error) {
	doc := goldmark.New().Parser().Parse(text.NewReader(src))

	var buf bytes.Buffer
	err := ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		switch node := n.(type) {
		case *ast.FencedCodeBlock, *ast.CodeBlock, *ast.HTMLBlock, *ast.CodeSpan, *ast.RawHTML:
			return ast.WalkSkipChildren, nil
		case *ast.Text:
			if entering {
				writeCollapsed(&buf, string(node.Segment.Value(src)))
				if (node.SoftLineBreak() || node.HardLineBreak()) && !endsWithSpace(buf.Bytes()) {
					buf.WriteByte(' ')
				}
			}
		case *ast.String:
			if entering {
				writeCollapsed(&buf, string(node.Value))
			}
		default:
			if !entering && n.Type() == ast.TypeBlock && n.Kind() != ast.KindDocument {
				endBlock(&buf)
			}
		}
		return ast.WalkContinue, nil
	})
	if err != nil {
		return "", fmt.Errorf("walk markdown: %w", err)
	}
	return strings.TrimSpace(buf.String()), nil
}

func extractHTML(r io.Reader) (string, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return "", fmt.Errorf("parse html: %w", err)
	}

	var buf bytes.Buffer
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			writeCollapsed(&buf, n.Data)
			return
		case html.ElementNode:
			switch n.Data {
			case "script", "style", "nav", "footer", "header", "noscript", "pre", "code", "head":
				return
			}
		}

		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}

		if n.Type == html.ElementNode && isBlockElement(n.Data) {
			endBlock(&buf)
		}
	}
	walk(doc)

	return strings.TrimSpace(buf.String()), nil
}

func isBlockElement(tag string) bool {
	switch tag {
	case "p", "div", "li", "td", "th", "blockquote", "section", "article",
		"h1", "h2", "h3", "h4", "h5", "h6", "dd", "dt", "figcaption":
		return true
	}
	return false
}

// endBlock terminates the current block with a blank line, once.
func endBlock(buf *bytes.Buffer) {
	b := bytes.TrimRight(buf.Bytes(), " ")
	buf.Truncate(len(b))
	if buf.Len() == 0 || bytes.HasSuffix(buf.Bytes(), []byte("\n\n")) {
		return
	}
	buf.WriteString("\n\n")
}

// writeCollapsed appends s with runs of white space collapsed to one space.
// Whether s began or ended with white space is preserved, so that inline
// elements join up the way a browser renders them.
func writeCollapsed(buf *bytes.Buffer, s string) {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		if s != "" && buf.Len() > 0 && !endsWithSpace(buf.Bytes()) {
			buf.WriteByte(' ')
		}
		return
	}
	if isSpace(s[0]) && buf.Len() > 0 && !endsWithSpace(buf.Bytes()) {
		buf.WriteByte(' ')
	}
	buf.WriteString(strings.Join(fields, " "))
	if isSpace(s[len(s)-1]) {
		buf.WriteByte(' ')
	}
}

func isSpace(b byte) bool {
	switch b {
	case ' ', '\t', '\n', '\r', '\f':
		return true
	}
	return false
}

func endsWithSpace(b []byte) bool {
	if len(b) == 0 {
		return false
	}
	switch b[len(b)-1] {
	case ' ', '\n':
		return true
	}
	return false
}
