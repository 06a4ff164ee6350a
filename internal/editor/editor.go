package editor

// ChangeFunc 文档变更回调，参数为变更后的完整文本
type ChangeFunc func(markdown string)

// Editor Markdown编辑器
// 持有当前文档文本，每次变更都同步调用一次回调，不做校验、限长或防抖
type Editor struct {
	text     string
	onChange ChangeFunc
}

// New 使用初始文本创建编辑器
// 与挂载时的行为一致，创建时会用初始文本触发一次回调
func New(initial string, onChange ChangeFunc) *Editor {
	e := &Editor{
		text:     initial,
		onChange: onChange,
	}
	e.notify()
	return e
}

// Text 返回当前文档
func (e *Editor) Text() string {
	return e.text
}

// SetText 整体替换文档并通知监听者
func (e *Editor) SetText(text string) {
	e.text = text
	e.notify()
}

// OnChange 替换变更回调
func (e *Editor) OnChange(fn ChangeFunc) {
	e.onChange = fn
}

func (e *Editor) notify() {
	if e.onChange != nil {
		e.onChange(e.text)
	}
}
