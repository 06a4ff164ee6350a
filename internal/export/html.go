package export

import (
	"bytes"
	"fmt"
	"html"

	"github.com/fyerfyer/slideai/internal/slides"
	"github.com/gomarkdown/markdown"
	mdhtml "github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"
)

const deckStyle = `body{margin:0;font-family:system-ui,sans-serif;background:#111}
.slide{box-sizing:border-box;width:100vw;min-height:100vh;padding:6vh 8vw;background:#fff;border-bottom:4px solid #111}
.slide h1{font-size:3em}.slide pre{background:#f4f4f4;padding:1em;overflow:auto}`

// renderSegment 用完整的Markdown引擎渲染一张幻灯片
// 解析器带有状态，每次渲染都需要新建
func renderSegment(segment string) []byte {
	extensions := parser.CommonExtensions | parser.AutoHeadingIDs
	p := parser.NewWithExtensions(extensions)
	doc := p.Parse([]byte(segment))

	htmlFlags := mdhtml.CommonFlags | mdhtml.HrefTargetBlank
	renderer := mdhtml.NewRenderer(mdhtml.RendererOptions{Flags: htmlFlags})
	return markdown.Render(doc, renderer)
}

// HTML 导出为单个HTML文件，每张幻灯片一个section
func HTML(deck Deck) *Artifact {
	segments := slides.Split(deck.Markdown)
	if len(segments) == 0 {
		segments = []string{slides.Placeholder}
	}

	title := deck.Title
	if title == "" {
		title = "Presentation"
	}

	var buf bytes.Buffer
	buf.WriteString("<!DOCTYPE html>\n<html>\n<head>\n<meta charset=\"utf-8\">\n")
	fmt.Fprintf(&buf, "<title>%s</title>\n", html.EscapeString(title))
	fmt.Fprintf(&buf, "<style>%s</style>\n</head>\n<body>\n", deckStyle)
	for i, segment := range segments {
		fmt.Fprintf(&buf, "<section class=\"slide\" id=\"slide-%d\">\n", i+1)
		buf.Write(renderSegment(segment))
		buf.WriteString("</section>\n")
	}
	buf.WriteString("</body>\n</html>\n")

	return &Artifact{
		Filename:    Filename(deck.Title, FormatHTML),
		ContentType: FormatHTML.ContentType(),
		Data:        buf.Bytes(),
		Slides:      len(slides.Split(deck.Markdown)),
	}
}
