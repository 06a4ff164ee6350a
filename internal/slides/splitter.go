package slides

import "strings"

// Delimiter 幻灯片分隔行，必须独占一整行
const Delimiter = "---"

// Split 将Markdown文档按分隔行拆分为幻灯片段落
// 分隔行及其换行符不计入任何段落，去除空白后为空的段落会被丢弃
func Split(doc string) []string {
	lines := strings.Split(doc, "\n")
	segments := make([]string, 0, 4)

	start := 0
	flush := func(end int) {
		segment := strings.Join(lines[start:end], "\n")
		if strings.TrimSpace(segment) != "" {
			segments = append(segments, segment)
		}
	}

	for i, line := range lines {
		if isDelimiter(line) {
			flush(i)
			start = i + 1
		}
	}
	flush(len(lines))

	return segments
}

// Count 返回文档中的幻灯片数量
func Count(doc string) int {
	return len(Split(doc))
}

// First 返回第一个非空段落，没有时返回false
func First(doc string) (string, bool) {
	segments := Split(doc)
	if len(segments) == 0 {
		return "", false
	}
	return segments[0], true
}

// Join 用分隔行重新拼接段落
func Join(segments []string) string {
	return strings.Join(segments, "\n"+Delimiter+"\n")
}

// isDelimiter 判断一行是否为分隔行
// CRLF文本中行尾的\r属于换行符，不算行内容
func isDelimiter(line string) bool {
	return strings.TrimSuffix(line, "\r") == Delimiter
}
