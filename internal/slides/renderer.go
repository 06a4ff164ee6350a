package slides

import (
	"regexp"

	"github.com/microcosm-cc/bluemonday"
)

// Placeholder 文档中没有任何幻灯片时展示的默认内容
const Placeholder = "# Welcome to SlideAI\n\nStart typing in the editor to create your presentation"

// substitution 一条文本替换规则
type substitution struct {
	pattern     *regexp.Regexp
	replacement string
}

// 替换规则按顺序执行：标题、加粗必须在斜体之前，否则**会被斜体规则吃掉
// 行内规则都不跨行
var rules = []substitution{
	{regexp.MustCompile(`(?m)^# ([^\r\n]*)`), "<h1>${1}</h1>"},
	{regexp.MustCompile(`(?m)^## ([^\r\n]*)`), "<h2>${1}</h2>"},
	{regexp.MustCompile(`(?m)^### ([^\r\n]*)`), "<h3>${1}</h3>"},
	{regexp.MustCompile(`\*\*([^\r\n]*?)\*\*`), "<strong>${1}</strong>"},
	{regexp.MustCompile(`\*([^\r\n]*?)\*`), "<em>${1}</em>"},
	{regexp.MustCompile(`(?m)^- ([^\r\n]*)`), "<li>${1}</li>"},
}

// listRun 匹配一段连续的列表项行
var listRun = regexp.MustCompile(`<li>[^\r\n]*</li>(?:\r?\n<li>[^\r\n]*</li>)*`)

// Render 将单个幻灯片段落转换为HTML片段
// 只有第一段连续的列表项会被<ul>包裹，之后的列表项保持原样
// 不对源文本中的HTML字符做任何转义
func Render(segment string) string {
	html := segment
	for _, rule := range rules {
		html = rule.pattern.ReplaceAllString(html, rule.replacement)
	}

	if loc := listRun.FindStringIndex(html); loc != nil {
		html = html[:loc[0]] + "<ul>" + html[loc[0]:loc[1]] + "</ul>" + html[loc[1]:]
	}

	return html
}

// Preview 渲染文档的第一张幻灯片，文档为空时渲染占位内容
func Preview(doc string) string {
	segment, ok := First(doc)
	if !ok {
		segment = Placeholder
	}
	return Render(segment)
}

// Renderer 可配置的预览渲染器
type Renderer struct {
	policy *bluemonday.Policy // 非空时对输出做净化
}

// RendererOption 渲染器配置选项
type RendererOption func(*Renderer)

// WithSanitize 开启输出净化
// 默认关闭，关闭时输出与Render完全一致，原始标签会直接透传
func WithSanitize(enabled bool) RendererOption {
	return func(r *Renderer) {
		if enabled {
			r.policy = bluemonday.UGCPolicy()
		} else {
			r.policy = nil
		}
	}
}

// NewRenderer 创建预览渲染器
func NewRenderer(opts ...RendererOption) *Renderer {
	r := &Renderer{}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Sanitizing 返回是否开启了输出净化
func (r *Renderer) Sanitizing() bool {
	return r.policy != nil
}

// Render 渲染单个段落
func (r *Renderer) Render(segment string) string {
	html := Render(segment)
	if r.policy != nil {
		html = r.policy.Sanitize(html)
	}
	return html
}

// Preview 渲染文档的第一张幻灯片
func (r *Renderer) Preview(doc string) string {
	html := Preview(doc)
	if r.policy != nil {
		html = r.policy.Sanitize(html)
	}
	return html
}
