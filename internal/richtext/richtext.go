// Package richtext handles the formatted-text strings produced by the note
// editor. Content stays opaque HTML everywhere else; this package is the only
// place that looks inside it.
package richtext

import (
	"bytes"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"golang.org/x/net/html"
)

var md = goldmark.New(
	goldmark.WithExtensions(extension.GFM),
)

// PlainText returns the visible text of an HTML fragment with block
// boundaries collapsed to single spaces.
func PlainText(fragment string) string {
	z := html.NewTokenizer(strings.NewReader(fragment))
	var b strings.Builder
	for {
		switch z.Next() {
		case html.ErrorToken:
			// io.EOF or malformed input; either way we keep what was read.
			return strings.Join(strings.Fields(b.String()), " ")
		case html.TextToken:
			b.Write(z.Text())
		case html.StartTagToken, html.EndTagToken, html.SelfClosingTagToken:
			b.WriteByte(' ')
		}
	}
}

// IsBlank reports whether the fragment has no visible text, e.g. "<p></p>".
func IsBlank(fragment string) bool {
	return PlainText(fragment) == ""
}

// FromMarkdown renders markdown (as returned by language models) into the
// HTML the editor consumes.
func FromMarkdown(src string) (string, error) {
	var buf bytes.Buffer
	if err := md.Convert([]byte(src), &buf); err != nil {
		return "", err
	}
	return strings.TrimSpace(buf.String()), nil
}
