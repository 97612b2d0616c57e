package epub

import (
	"path"
	"strings"

	"github.com/antchfx/xmlquery"
)

const dcNamespace = "http://purl.org/dc/elements/1.1/"

func (p *Package) metadata() *xmlquery.Node {
	return xmlquery.FindOne(p.opf, "//*[local-name()='package']/*[local-name()='metadata']")
}

func (p *Package) manifest() *xmlquery.Node {
	return xmlquery.FindOne(p.opf, "//*[local-name()='package']/*[local-name()='manifest']")
}

func (p *Package) dcElements(name string) []*xmlquery.Node {
	md := p.metadata()
	if md == nil {
		return nil
	}
	return xmlquery.Find(md, "./*[local-name()='"+name+"']")
}

// Titles 返回所有 dc:title 的值
func (p *Package) Titles() []string {
	var titles []string
	for _, n := range p.dcElements("title") {
		titles = append(titles, strings.TrimSpace(n.InnerText()))
	}
	return titles
}

// SetTitle 修改第 index 个标题，不存在时返回 false
func (p *Package) SetTitle(index int, title string) bool {
	nodes := p.dcElements("title")
	if index < 0 || index >= len(nodes) {
		return false
	}
	setText(nodes[index], title)
	return true
}

// Language 返回第一个 dc:language 的值
func (p *Package) Language() string {
	nodes := p.dcElements("language")
	if len(nodes) == 0 {
		return ""
	}
	return strings.TrimSpace(nodes[0].InnerText())
}

// SetLanguage 设置语言，缺少 dc:language 时创建
func (p *Package) SetLanguage(code string) {
	if nodes := p.dcElements("language"); len(nodes) > 0 {
		setText(nodes[0], code)
		return
	}

	md := p.metadata()
	if md == nil {
		return
	}
	el := &xmlquery.Node{
		Type:         xmlquery.ElementNode,
		Data:         "language",
		Prefix:       "dc",
		NamespaceURI: dcNamespace,
	}
	setText(el, code)
	xmlquery.AddChild(md, el)
}

// Resources 返回新增或覆盖的资源
func (p *Package) Resources() []*Resource {
	return p.resources
}

// PutResource 添加资源，相同 id 的资源会被覆盖
func (p *Package) PutResource(r Resource) {
	replaced := false
	for i, existing := range p.resources {
		if existing.ID == r.ID {
			p.resources[i] = &r
			replaced = true
			break
		}
	}
	if !replaced {
		p.resources = append(p.resources, &r)
	}

	manifest := p.manifest()
	if manifest == nil {
		return
	}
	if item := xmlquery.FindOne(manifest, "./*[local-name()='item'][@id='"+r.ID+"']"); item != nil {
		item.SetAttr("href", r.Href)
		item.SetAttr("media-type", r.MediaType)
		return
	}

	item := &xmlquery.Node{
		Type:         xmlquery.ElementNode,
		Data:         "item",
		Prefix:       manifest.Prefix,
		NamespaceURI: manifest.NamespaceURI,
	}
	item.SetAttr("id", r.ID)
	item.SetAttr("href", r.Href)
	item.SetAttr("media-type", r.MediaType)
	xmlquery.AddChild(manifest, item)
}

// resourcePath 资源在压缩包中的路径
func (p *Package) resourcePath(r *Resource) string {
	return path.Join(p.opfDir, r.Href)
}

// setText 用单个文本节点替换元素内容
func setText(n *xmlquery.Node, text string) {
	for c := n.FirstChild; c != nil; {
		next := c.NextSibling
		xmlquery.RemoveFromTree(c)
		c = next
	}
	xmlquery.AddChild(n, &xmlquery.Node{Type: xmlquery.TextNode, Data: text})
}
