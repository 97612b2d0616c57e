package html

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// TextBearingTags 会被提取文本的元素
var TextBearingTags = []string{
	"p", "h1", "h2", "h3", "h4", "h5", "h6",
	"li", "td", "th", "div", "span",
}

var textBearingSelector = strings.Join(TextBearingTags, ", ")

// Segment 一段待翻译的文本，指向树中的一个文本节点
type Segment struct {
	Index  int
	Source string // 去掉首尾空白后的原文
	node   *html.Node
}

// Extract 按文档顺序提取可翻译的文本片段
// 嵌套的元素会被各自匹配，每个片段只来自匹配元素的直接文本子节点
func Extract(tree *Tree) []Segment {
	var segments []Segment

	doc := goquery.NewDocumentFromNode(tree.Root)
	doc.Find(textBearingSelector).Each(func(_ int, s *goquery.Selection) {
		el := s.Get(0)

		if only := el.FirstChild; only != nil && only == el.LastChild && only.Type == html.TextNode {
			segments = appendSegment(segments, only)
			return
		}

		// 混合内容：逐个检查直接文本子节点
		for c := el.FirstChild; c != nil; c = c.NextSibling {
			if c.Type == html.TextNode {
				segments = appendSegment(segments, c)
			}
		}
	})

	return segments
}

func appendSegment(segments []Segment, n *html.Node) []Segment {
	text := strings.TrimSpace(n.Data)
	if text == "" {
		return segments
	}
	return append(segments, Segment{
		Index:  len(segments),
		Source: text,
		node:   n,
	})
}
