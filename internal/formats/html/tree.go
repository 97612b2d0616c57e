package html

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html"
)

// voidElements 没有结束标签的元素
var voidElements = map[string]bool{
	"area": true, "base": true, "br": true, "col": true, "embed": true,
	"hr": true, "img": true, "input": true, "keygen": true, "link": true,
	"meta": true, "param": true, "source": true, "track": true, "wbr": true,
}

// rawSpan 节点在源文档中的原始字节
type rawSpan struct {
	open  []byte // 开始标签或文本、注释的原始内容
	close []byte // 结束标签
	text  string // 文本节点解析时的内容，用于判断是否被修改
}

// Tree 标记文档树
// 节点使用 x/net/html 的 Node，渲染时未修改的部分原样输出源字节
type Tree struct {
	Root *html.Node
	raw  map[*html.Node]*rawSpan
}

// Parse 解析 HTML/XHTML 文档
// 与 html.Parse 不同，这里不做任何规范化，未修改的树渲染结果与输入逐字节相同
func Parse(r io.Reader) (*Tree, error) {
	t := &Tree{
		Root: &html.Node{Type: html.DocumentNode},
		raw:  make(map[*html.Node]*rawSpan),
	}

	z := html.NewTokenizer(r)
	stack := []*html.Node{t.Root}

	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			if errors.Is(z.Err(), io.EOF) {
				break
			}
			return nil, fmt.Errorf("failed to tokenize markup: %w", z.Err())
		}

		// Text 和 Token 会原地改写缓冲区，先复制原始字节
		raw := append([]byte(nil), z.Raw()...)
		top := stack[len(stack)-1]

		switch tt {
		case html.TextToken:
			text := string(z.Text())
			n := &html.Node{Type: html.TextNode, Data: text}
			top.AppendChild(n)
			t.raw[n] = &rawSpan{open: raw, text: text}

		case html.StartTagToken, html.SelfClosingTagToken:
			tok := z.Token()
			n := &html.Node{
				Type:     html.ElementNode,
				Data:     tok.Data,
				DataAtom: tok.DataAtom,
				Attr:     tok.Attr,
			}
			top.AppendChild(n)
			t.raw[n] = &rawSpan{open: raw}

			if tt == html.SelfClosingTagToken {
				// XHTML 中的 <script/>、<title/> 不应吞掉后续内容
				z.NextIsNotRawText()
				continue
			}
			if !voidElements[tok.Data] {
				stack = append(stack, n)
			}

		case html.EndTagToken:
			name, _ := z.TagName()
			if i := openIndex(stack, string(name)); i > 0 {
				t.raw[stack[i]].close = raw
				stack = stack[:i]
				continue
			}
			// 没有对应开始标签的结束标签原样保留
			top.AppendChild(&html.Node{Type: html.RawNode, Data: string(raw)})

		case html.CommentToken:
			n := &html.Node{Type: html.CommentNode, Data: string(z.Text())}
			top.AppendChild(n)
			t.raw[n] = &rawSpan{open: raw}

		case html.DoctypeToken:
			n := &html.Node{Type: html.DoctypeNode, Data: string(z.Text())}
			top.AppendChild(n)
			t.raw[n] = &rawSpan{open: raw}
		}
	}

	return t, nil
}

// ParseBytes 解析内存中的文档
func ParseBytes(data []byte) (*Tree, error) {
	return Parse(bytes.NewReader(data))
}

// openIndex 返回栈中最近的同名元素位置，找不到返回 -1
func openIndex(stack []*html.Node, name string) int {
	for i := len(stack) - 1; i > 0; i-- {
		if strings.EqualFold(stack[i].Data, name) {
			return i
		}
	}
	return -1
}

// Render 将文档树写回字节
func (t *Tree) Render(w io.Writer) error {
	bw := bufio.NewWriter(w)
	for c := t.Root.FirstChild; c != nil; c = c.NextSibling {
		if err := t.render(bw, c); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// Bytes 渲染为字节切片
func (t *Tree) Bytes() ([]byte, error) {
	var buf bytes.Buffer
	if err := t.Render(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (t *Tree) render(w *bufio.Writer, n *html.Node) error {
	span := t.raw[n]

	switch n.Type {
	case html.TextNode:
		if span != nil && span.text == n.Data {
			_, err := w.Write(span.open)
			return err
		}
		_, err := w.WriteString(html.EscapeString(n.Data))
		return err

	case html.RawNode:
		_, err := w.WriteString(n.Data)
		return err

	case html.ElementNode:
		if span == nil {
			return html.Render(w, n)
		}
		if _, err := w.Write(span.open); err != nil {
			return err
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if err := t.render(w, c); err != nil {
				return err
			}
		}
		_, err := w.Write(span.close)
		return err

	default:
		if span == nil {
			return html.Render(w, n)
		}
		_, err := w.Write(span.open)
		return err
	}
}
