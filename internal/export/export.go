// Package export 将文稿导出为可下载的文件
package export

import (
	"fmt"
	"regexp"
	"strings"
)

// Format 导出格式
type Format string

const (
	FormatMarkdown Format = "markdown"
	FormatHTML     Format = "html"
	FormatPDF      Format = "pdf"
)

// nonWord 文件名中需要去掉的字符
var nonWord = regexp.MustCompile(`[^\w]`)

// Deck 待导出的文稿
type Deck struct {
	Title    string
	Markdown string
}

// Artifact 导出结果
type Artifact struct {
	Filename    string
	ContentType string
	Data        []byte
	Slides      int // 幻灯片数量
	Pages       int // 仅PDF有效

	// Unsupported PDF内置字体无法显示、被替换为"."的字符，按首次出现排列
	Unsupported []rune
}

// ParseFormat 解析导出格式
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case FormatMarkdown, "md":
		return FormatMarkdown, nil
	case FormatHTML:
		return FormatHTML, nil
	case FormatPDF:
		return FormatPDF, nil
	default:
		return "", fmt.Errorf("unsupported export format: %q", s)
	}
}

// Extension 返回格式对应的文件扩展名
func (f Format) Extension() string {
	switch f {
	case FormatHTML:
		return ".html"
	case FormatPDF:
		return ".pdf"
	default:
		return ".md"
	}
}

// ContentType 返回格式对应的MIME类型
func (f Format) ContentType() string {
	switch f {
	case FormatHTML:
		return "text/html; charset=utf-8"
	case FormatPDF:
		return "application/pdf"
	default:
		return "text/markdown; charset=utf-8"
	}
}

// Filename 由标题生成下载文件名，去掉所有非单词字符
// 去掉后为空时使用presentation
func Filename(title string, f Format) string {
	base := nonWord.ReplaceAllString(title, "")
	if base == "" {
		base = "presentation"
	}
	return base + f.Extension()
}

// Export 按指定格式导出
func Export(f Format, deck Deck) (*Artifact, error) {
	switch f {
	case FormatMarkdown:
		return Markdown(deck), nil
	case FormatHTML:
		return HTML(deck), nil
	case FormatPDF:
		return PDF(deck)
	default:
		return nil, fmt.Errorf("unsupported export format: %q", f)
	}
}
