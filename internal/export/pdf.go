package export

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/fyerfyer/slideai/internal/slides"
	"github.com/jung-kurt/gofpdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

var (
	inlineMarks = regexp.MustCompile(`\*\*([^\r\n]*?)\*\*|\*([^\r\n]*?)\*|` + "`([^`\r\n]*)`")
	orderedItem = regexp.MustCompile(`^(\d+)\.\s+(.*)$`)

	pdfcpuOnce sync.Once
)

// lineStyle 一行文本的排版方式
type lineStyle struct {
	family string
	style  string
	size   float64
	indent float64
	space  float64 // 行高
}

var (
	styleH1     = lineStyle{family: "Helvetica", style: "B", size: 32, space: 16}
	styleH2     = lineStyle{family: "Helvetica", style: "B", size: 24, space: 13}
	styleH3     = lineStyle{family: "Helvetica", style: "B", size: 20, space: 11}
	styleBody   = lineStyle{family: "Helvetica", size: 16, space: 9}
	styleBullet = lineStyle{family: "Helvetica", size: 16, indent: 8, space: 9}
	styleCode   = lineStyle{family: "Courier", size: 12, indent: 4, space: 6}
)

// PDF 导出为PDF，每张幻灯片占一页横向A4
// 生成后用pdfcpu校验文件结构并核对页数
func PDF(deck Deck) (*Artifact, error) {
	segments := slides.Split(deck.Markdown)
	pages := segments
	if len(pages) == 0 {
		pages = []string{slides.Placeholder}
	}

	pdf := gofpdf.New("L", "mm", "A4", "")
	pdf.SetTitle(deck.Title, true)
	pdf.SetCreator("SlideAI", true)
	pdf.SetMargins(20, 20, 20)
	pdf.SetAutoPageBreak(true, 15)
	glyphs := newGlyphTracker(pdf.UnicodeTranslatorFromDescriptor(""))

	for _, segment := range pages {
		pdf.AddPage()
		writeSegment(pdf, glyphs.translate, segment)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to generate PDF: %w", err)
	}

	count, err := PageCount(buf.Bytes())
	if err != nil {
		return nil, err
	}
	// 超长的幻灯片会自动分页，页数只会多不会少
	if count < len(pages) {
		return nil, fmt.Errorf("generated PDF has %d pages, expected at least %d", count, len(pages))
	}

	return &Artifact{
		Filename:    Filename(deck.Title, FormatPDF),
		ContentType: FormatPDF.ContentType(),
		Data:        buf.Bytes(),
		Slides:      len(segments),
		Pages:       count,
		Unsupported: glyphs.missing,
	}, nil
}

// glyphTracker 记录cp1252编码不了的字符
// gofpdf的转换函数会把这些字符静默替换为"."
type glyphTracker struct {
	tr      func(string) string
	seen    map[rune]bool
	missing []rune
}

func newGlyphTracker(tr func(string) string) *glyphTracker {
	return &glyphTracker{tr: tr, seen: make(map[rune]bool)}
}

func (g *glyphTracker) translate(text string) string {
	out := g.tr(text)
	if len(out) != utf8.RuneCountInString(text) {
		return out
	}

	i := 0
	for _, r := range text {
		if r >= utf8.RuneSelf && out[i] == '.' && !g.seen[r] {
			g.seen[r] = true
			g.missing = append(g.missing, r)
		}
		i++
	}
	return out
}

// PageCount 校验PDF并返回页数
func PageCount(data []byte) (int, error) {
	pdfcpuOnce.Do(api.DisableConfigDir)

	conf := model.NewDefaultConfiguration()
	if err := api.Validate(bytes.NewReader(data), conf); err != nil {
		return 0, fmt.Errorf("invalid PDF: %w", err)
	}
	count, err := api.PageCount(bytes.NewReader(data), conf)
	if err != nil {
		return 0, fmt.Errorf("failed to count PDF pages: %w", err)
	}
	return count, nil
}

// writeSegment 按行排版一张幻灯片
func writeSegment(pdf *gofpdf.Fpdf, tr func(string) string, segment string) {
	inCode := false
	for _, raw := range strings.Split(segment, "\n") {
		line := strings.TrimRight(raw, "\r")

		if strings.HasPrefix(strings.TrimSpace(line), "```") {
			inCode = !inCode
			continue
		}
		if inCode {
			writeLine(pdf, styleCode, tr(line))
			continue
		}

		trimmed := strings.TrimSpace(line)
		switch {
		case trimmed == "":
			pdf.Ln(4)
		case strings.HasPrefix(line, "### "):
			writeLine(pdf, styleH3, tr(plain(line[4:])))
		case strings.HasPrefix(line, "## "):
			writeLine(pdf, styleH2, tr(plain(line[3:])))
		case strings.HasPrefix(line, "# "):
			writeLine(pdf, styleH1, tr(plain(line[2:])))
		case strings.HasPrefix(line, "- "), strings.HasPrefix(line, "* "):
			writeLine(pdf, styleBullet, tr("• "+plain(line[2:])))
		default:
			if m := orderedItem.FindStringSubmatch(trimmed); m != nil {
				writeLine(pdf, styleBullet, tr(m[1]+". "+plain(m[2])))
				continue
			}
			writeLine(pdf, styleBody, tr(plain(trimmed)))
		}
	}
}

func writeLine(pdf *gofpdf.Fpdf, s lineStyle, text string) {
	pdf.SetFont(s.family, s.style, s.size)
	left, _, right, _ := pdf.GetMargins()
	pdf.SetX(left + s.indent)
	width, _ := pdf.GetPageSize()
	pdf.MultiCell(width-left-right-s.indent, s.space, text, "", "L", false)
}

// plain 去掉行内强调标记
func plain(text string) string {
	return inlineMarks.ReplaceAllStringFunc(text, func(m string) string {
		sub := inlineMarks.FindStringSubmatch(m)
		for _, s := range sub[1:] {
			if s != "" {
				return s
			}
		}
		return ""
	})
}
