package export

import (
	"bytes"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleDeck = "# Welcome\n\n- Write in **Markdown**\n- Get slides\n\n---\n\n## Code\n\n```go\nfunc main() {}\n```\n\n---\n\n## Get Started\n\n1. Write\n2. Export"

func TestFilename(t *testing.T) {
	tests := []struct {
		title string
		want  string
	}{
		{"My Deck", "MyDeck.md"},
		{"Q3 review: sales & ops!", "Q3reviewsalesops.md"},
		{"snake_case_title", "snake_case_title.md"},
		{"", "presentation.md"},
		{"!!! ???", "presentation.md"},
		{"Présentation", "Prsentation.md"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Filename(tt.title, FormatMarkdown), tt.title)
	}
	assert.Equal(t, "MyDeck.pdf", Filename("My Deck", FormatPDF))
	assert.Equal(t, "MyDeck.html", Filename("My Deck", FormatHTML))
}

func TestParseFormat(t *testing.T) {
	for in, want := range map[string]Format{
		"markdown": FormatMarkdown,
		"md":       FormatMarkdown,
		" HTML ":   FormatHTML,
		"pdf":      FormatPDF,
	} {
		got, err := ParseFormat(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got)
	}

	_, err := ParseFormat("pptx")
	assert.Error(t, err)
}

func TestMarkdownExport(t *testing.T) {
	a := Markdown(Deck{Title: "My Deck", Markdown: sampleDeck})
	assert.Equal(t, "MyDeck.md", a.Filename)
	assert.Equal(t, sampleDeck, string(a.Data), "内容原样导出")
	assert.Equal(t, 3, a.Slides)
	assert.Contains(t, a.ContentType, "text/markdown")
}

func TestHTMLExport(t *testing.T) {
	a := HTML(Deck{Title: "<Deck>", Markdown: sampleDeck})
	assert.Equal(t, "Deck.html", a.Filename)
	assert.Equal(t, 3, a.Slides)

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(a.Data))
	require.NoError(t, err)

	assert.Equal(t, "<Deck>", doc.Find("title").Text())
	sections := doc.Find("section.slide")
	require.Equal(t, 3, sections.Length())

	first := sections.Eq(0)
	assert.Equal(t, "Welcome", strings.TrimSpace(first.Find("h1").Text()))
	assert.Equal(t, 2, first.Find("ul li").Length())
	assert.Equal(t, "Markdown", first.Find("li strong").Text())

	assert.Contains(t, sections.Eq(1).Find("pre code").Text(), "func main() {}")
	assert.Equal(t, 2, sections.Eq(2).Find("ol li").Length())
}

func TestHTMLExport_EmptyDeckUsesPlaceholder(t *testing.T) {
	a := HTML(Deck{Markdown: "  \n---\n "})
	assert.Equal(t, "presentation.html", a.Filename)
	assert.Equal(t, 0, a.Slides)

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(a.Data))
	require.NoError(t, err)
	assert.Equal(t, 1, doc.Find("section.slide").Length())
	assert.Equal(t, "Welcome to SlideAI", strings.TrimSpace(doc.Find("h1").Text()))
}

func TestPDFExport(t *testing.T) {
	a, err := PDF(Deck{Title: "My Deck", Markdown: sampleDeck})
	require.NoError(t, err)
	assert.Equal(t, "MyDeck.pdf", a.Filename)
	assert.Equal(t, "application/pdf", a.ContentType)
	assert.Equal(t, 3, a.Slides)
	assert.Equal(t, 3, a.Pages, "每张幻灯片一页")
	assert.True(t, bytes.HasPrefix(a.Data, []byte("%PDF-")))

	pages, err := PageCount(a.Data)
	require.NoError(t, err)
	assert.Equal(t, 3, pages)
}

func TestPDFExport_ReportsUnsupportedCharacters(t *testing.T) {
	a, err := PDF(Deck{Title: "Intl", Markdown: "# Café\n\n- 你好 世界\n- 你好 🚀"})
	require.NoError(t, err)
	assert.Equal(t, 1, a.Pages)
	// é和•在cp1252中，中文和emoji不在
	assert.Equal(t, []rune{'你', '好', '世', '界', '🚀'}, a.Unsupported)

	a, err = PDF(Deck{Title: "Latin", Markdown: sampleDeck})
	require.NoError(t, err)
	assert.Empty(t, a.Unsupported)
}

func TestGlyphTracker(t *testing.T) {
	g := newGlyphTracker(func(s string) string {
		var b strings.Builder
		for _, r := range s {
			if r < utf8.RuneSelf || r == 'é' {
				b.WriteByte(byte(r))
				continue
			}
			b.WriteByte('.')
		}
		return b.String()
	})

	assert.Equal(t, "a..b.", g.translate("a..b.")) // 原文中的点不算替换
	assert.Equal(t, ".\xe9.", g.translate("日é日"))
	assert.Equal(t, []rune{'日'}, g.missing)
}

func TestPDFExport_EmptyDeck(t *testing.T) {
	a, err := PDF(Deck{Title: "", Markdown: ""})
	require.NoError(t, err)
	assert.Equal(t, "presentation.pdf", a.Filename)
	assert.Equal(t, 0, a.Slides)
	assert.Equal(t, 1, a.Pages)
}

func TestPageCount_Invalid(t *testing.T) {
	_, err := PageCount([]byte("not a pdf"))
	assert.Error(t, err)
}

func TestExport(t *testing.T) {
	for _, f := range []Format{FormatMarkdown, FormatHTML, FormatPDF} {
		a, err := Export(f, Deck{Title: "T", Markdown: "# One"})
		require.NoError(t, err, f)
		assert.Equal(t, "T"+f.Extension(), a.Filename)
		assert.Equal(t, f.ContentType(), a.ContentType)
		assert.Equal(t, 1, a.Slides)
	}

	_, err := Export(Format("odp"), Deck{})
	assert.Error(t, err)
}

func TestPlain(t *testing.T) {
	assert.Equal(t, "bold and italic and code", plain("**bold** and *italic* and `code`"))
	assert.Equal(t, "no marks", plain("no marks"))
}
