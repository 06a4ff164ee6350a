package export

import (
	"github.com/fyerfyer/slideai/internal/slides"
)

// Markdown 原样导出Markdown文本
func Markdown(deck Deck) *Artifact {
	return &Artifact{
		Filename:    Filename(deck.Title, FormatMarkdown),
		ContentType: FormatMarkdown.ContentType(),
		Data:        []byte(deck.Markdown),
		Slides:      slides.Count(deck.Markdown),
	}
}
