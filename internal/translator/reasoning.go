package translator

import (
	"strings"

	"github.com/dlclark/regexp2"
)

// reasoningPattern 匹配推理模型输出的思考过程，开始和结束标签必须一致
var reasoningPattern = regexp2.MustCompile(`<(think|thinking|thought|reasoning)>.*?</\1>`, regexp2.Singleline|regexp2.IgnoreCase)

// RemoveReasoning 移除推理模型输出中的思考过程
func RemoveReasoning(content string) string {
	if !strings.Contains(content, "<") {
		return content
	}
	result, err := reasoningPattern.Replace(content, "", -1, -1)
	if err != nil {
		// 超时等匹配错误时保留原内容
		return content
	}
	return result
}
