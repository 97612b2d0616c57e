package html

import (
	"strings"
	"unicode"
)

// Apply 用译文替换片段对应的文本节点
// 原文首尾的空白会被保留，其余节点不受影响
func Apply(seg Segment, translated string) {
	if seg.node == nil {
		return
	}
	data := seg.node.Data
	leading := data[:len(data)-len(strings.TrimLeftFunc(data, unicode.IsSpace))]
	trailing := data[len(strings.TrimRightFunc(data, unicode.IsSpace)):]
	seg.node.Data = leading + translated + trailing
}
