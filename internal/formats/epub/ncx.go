package epub

import (
	"path"
	"strings"

	"github.com/antchfx/xmlquery"
)

// loadTOC 读取 NCX 目录，没有 NCX 时目录为空
func (p *Package) loadTOC() error {
	ncxPath := p.findNCX()
	if ncxPath == "" {
		return nil
	}
	if _, ok := p.entries[ncxPath]; !ok {
		return nil
	}

	doc, err := p.parseEntry(ncxPath)
	if err != nil {
		return err
	}
	p.ncxPath = ncxPath
	p.ncx = doc

	navMap := xmlquery.FindOne(doc, "//*[local-name()='navMap']")
	if navMap == nil {
		return nil
	}

	parts := make(map[string]*Part, len(p.Parts))
	for _, part := range p.Parts {
		parts[part.Path] = part
	}

	p.TOC = p.readNavPoints(navMap, path.Dir(ncxPath), parts)
	return nil
}

// findNCX 优先使用 spine 的 toc 属性，其次按媒体类型查找
func (p *Package) findNCX() string {
	manifest := p.manifest()
	if manifest == nil {
		return ""
	}

	var item *xmlquery.Node
	if spine := xmlquery.FindOne(p.opf, "//*[local-name()='spine'][@toc]"); spine != nil {
		item = xmlquery.FindOne(manifest, "./*[local-name()='item'][@id='"+spine.SelectAttr("toc")+"']")
	}
	if item == nil {
		item = xmlquery.FindOne(manifest, "./*[local-name()='item'][@media-type='"+mediaTypeNCX+"']")
	}
	if item == nil {
		return ""
	}

	full, err := p.resolve(p.opfDir, item.SelectAttr("href"))
	if err != nil {
		return ""
	}
	return full
}

func (p *Package) readNavPoints(parent *xmlquery.Node, base string, parts map[string]*Part) []*NavNode {
	var nodes []*NavNode

	for _, el := range xmlquery.Find(parent, "./*[local-name()='navPoint']") {
		node := &NavNode{
			ID: el.SelectAttr("id"),
			el: el,
		}
		if label := xmlquery.FindOne(el, "./*[local-name()='navLabel']/*[local-name()='text']"); label != nil {
			node.Title = strings.TrimSpace(label.InnerText())
		}
		if content := xmlquery.FindOne(el, "./*[local-name()='content']"); content != nil {
			node.Href = content.SelectAttr("src")
		}

		node.Children = p.readNavPoints(el, base, parts)

		switch {
		case len(node.Children) > 0:
			node.Kind = NavSection
		case p.referencesPart(node, base, parts):
			node.Kind = NavPart
		default:
			node.Kind = NavLink
		}

		nodes = append(nodes, node)
	}

	return nodes
}

// referencesPart 节点 id 与所指文档的清单 id 相同时视为直接引用文档
func (p *Package) referencesPart(node *NavNode, base string, parts map[string]*Part) bool {
	if node.ID == "" || node.Href == "" || strings.Contains(node.Href, "#") {
		return false
	}
	full, err := p.resolve(base, node.Href)
	if err != nil {
		return false
	}
	part, ok := parts[full]
	return ok && part.ID == node.ID
}

// syncTOC 将目录节点的 id 写回 NCX，返回是否有改动
func (p *Package) syncTOC() bool {
	changed := false
	var walk func(nodes []*NavNode)
	walk = func(nodes []*NavNode) {
		for _, n := range nodes {
			if n.el != nil && n.ID != "" && n.el.SelectAttr("id") != n.ID {
				n.el.SetAttr("id", n.ID)
				changed = true
			}
			walk(n.Children)
		}
	}
	walk(p.TOC)
	return changed
}
