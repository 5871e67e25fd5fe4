package parser

import (
	"bytes"
	"fmt"
	"html"
	"regexp"
	"strings"

	"github.com/nguyenthenguyen/docx"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/text"

	"ragbot/internal/models"
)

var (
	docxParagraphEnd = regexp.MustCompile(`</w:p>|<w:br\s*/>|<w:cr\s*/>`)
	docxTab          = regexp.MustCompile(`<w:tab\s*/>`)
	xmlTag           = regexp.MustCompile(`<[^>]+>`)
	blankLines       = regexp.MustCompile(`\n{3,}`)
)

func (e *Extractor) extractWord(file models.StoredFile) models.Extraction {
	r, err := docx.ReadDocxFromMemory(bytes.NewReader(file.Data), int64(len(file.Data)))
	if err != nil {
		return models.Extraction{
			Strategy: models.StrategyWord,
			Status:   models.StatusUnreadable,
			Err:      fmt.Errorf("%w: %s: %v", models.ErrExtraction, file.Filename, err),
		}
	}
	defer r.Close()

	return singleBlock(file.Filename, models.StrategyWord, docxText(r.Editable().GetContent()))
}

// docxText turns WordprocessingML into plain text, one line per paragraph
func docxText(xmlContent string) string {
	content := docxParagraphEnd.ReplaceAllString(xmlContent, "\n")
	content = docxTab.ReplaceAllString(content, "\t")
	content = xmlTag.ReplaceAllString(content, "")
	content = html.UnescapeString(content)
	return strings.TrimSpace(blankLines.ReplaceAllString(content, "\n\n"))
}

func (e *Extractor) extractMarkdown(file models.StoredFile) models.Extraction {
	return singleBlock(file.Filename, models.StrategyMarkdown, markdownText(file.Data))
}

// markdownText walks the goldmark AST and keeps only the text, with a blank
// line after every block so paragraphs survive for the chunker
func markdownText(source []byte) string {
	md := goldmark.New(goldmark.WithExtensions(extension.GFM))
	doc := md.Parser().Parse(text.NewReader(source))

	var out strings.Builder
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			if n.Type() == ast.TypeBlock && n.Kind() != ast.KindDocument && n.NextSibling() != nil {
				out.WriteString("\n\n")
			}
			return ast.WalkContinue, nil
		}

		switch node := n.(type) {
		case *ast.Text:
			out.Write(node.Segment.Value(source))
			if node.SoftLineBreak() || node.HardLineBreak() {
				out.WriteString("\n")
			}
		case *ast.String:
			out.Write(node.Value)
		case *ast.CodeBlock, *ast.FencedCodeBlock:
			lines := n.Lines()
			for i := 0; i < lines.Len(); i++ {
				segment := lines.At(i)
				out.Write(segment.Value(source))
			}
			return ast.WalkSkipChildren, nil
		}
		return ast.WalkContinue, nil
	})

	return strings.TrimSpace(blankLines.ReplaceAllString(out.String(), "\n\n"))
}
