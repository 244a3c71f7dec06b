package documents

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	"github.com/gen2brain/go-fitz"

	"github.com/dream-ai/hammond/internal/domain"
)

// Formats recorded in document metadata
const (
	FormatPDF      = "pdf"
	FormatEPUB     = "epub"
	FormatHTML     = "html"
	FormatText     = "text"
	FormatMarkdown = "markdown"
)

// Page is one unit of extracted text. Number is 1-based, or 0 when the
// format has no pages.
type Page struct {
	Number int
	Text   string
}

// Parser extracts text from a file
type Parser interface {
	Format() string
	Parse(ctx context.Context, path string) ([]Page, error)
}

// FitzParser parses PDF and EPUB files with MuPDF, one page at a time
type FitzParser struct {
	format string
}

// NewPDFParser creates a PDF parser
func NewPDFParser() *FitzParser {
	return &FitzParser{format: FormatPDF}
}

// NewEPUBParser creates an EPUB parser
func NewEPUBParser() *FitzParser {
	return &FitzParser{format: FormatEPUB}
}

func (p *FitzParser) Format() string { return p.format }

// Parse extracts the text of every non-blank page
func (p *FitzParser) Parse(ctx context.Context, path string) ([]Page, error) {
	doc, err := fitz.New(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", strings.ToUpper(p.format), err)
	}
	defer doc.Close()

	var pages []Page
	for i := 0; i < doc.NumPage(); i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		text, err := doc.Text(i)
		if err != nil || strings.TrimSpace(text) == "" {
			continue
		}
		pages = append(pages, Page{Number: i + 1, Text: text})
	}
	return pages, nil
}

// TextParser reads plain text and markdown files as they are
type TextParser struct {
	format string
}

// NewTextParser creates a parser for plain text
func NewTextParser() *TextParser {
	return &TextParser{format: FormatText}
}

// NewMarkdownParser creates a parser for markdown
func NewMarkdownParser() *TextParser {
	return &TextParser{format: FormatMarkdown}
}

func (p *TextParser) Format() string { return p.format }

func (p *TextParser) Parse(_ context.Context, path string) ([]Page, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return []Page{{Text: string(data)}}, nil
}

// HTMLParser converts HTML to markdown so that only readable text is indexed
type HTMLParser struct{}

// NewHTMLParser creates an HTML parser
func NewHTMLParser() *HTMLParser {
	return &HTMLParser{}
}

func (p *HTMLParser) Format() string { return FormatHTML }

func (p *HTMLParser) Parse(_ context.Context, path string) ([]Page, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	md, err := htmltomarkdown.ConvertString(string(data))
	if err != nil {
		return nil, fmt.Errorf("failed to convert HTML: %w", err)
	}
	return []Page{{Text: md}}, nil
}

// pageMetadata adds the page number, if any, to a copy of md
func pageMetadata(md map[string]string, page Page) map[string]string {
	out := domain.CopyMetadata(md)
	if page.Number > 0 {
		out[domain.MetaPage] = strconv.Itoa(page.Number)
	}
	return out
}
