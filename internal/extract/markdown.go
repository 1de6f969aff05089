package extract

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	gmtext "github.com/yuin/goldmark/text"
)

// Markdown extracts the readable text from a markdown document, dropping
// formatting while keeping headings, paragraphs, list items, and code blocks.
type Markdown struct{}

func (Markdown) Extract(_ context.Context, sourceName string, data []byte) (*Extracted, error) {
	if !utf8.Valid(data) {
		return nil, &ExtractionError{Source: sourceName, Reason: "not valid UTF-8 text"}
	}

	md := goldmark.New()
	doc := md.Parser().Parse(gmtext.NewReader(data))

	var sb strings.Builder
	err := ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch node := n.(type) {
		case *ast.Text:
			sb.Write(node.Segment.Value(data))
			if node.SoftLineBreak() || node.HardLineBreak() {
				sb.WriteByte('\n')
			}
		case *ast.FencedCodeBlock, *ast.CodeBlock:
			lines := n.Lines()
			for i := 0; i < lines.Len(); i++ {
				seg := lines.At(i)
				sb.Write(seg.Value(data))
			}
		case *ast.Paragraph, *ast.Heading, *ast.ListItem:
			if sb.Len() > 0 {
				sb.WriteByte('\n')
			}
		}
		return ast.WalkContinue, nil
	})
	if err != nil {
		return nil, &ExtractionError{Source: sourceName, Reason: "walking markdown tree", Err: err}
	}

	return &Extracted{
		Text:       sb.String(),
		MimeType:   "text/markdown",
		Size:       int64(len(data)),
		SourceName: sourceName,
	}, nil
}
