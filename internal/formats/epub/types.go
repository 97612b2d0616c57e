package epub

import (
	"archive/zip"
	"errors"

	"github.com/antchfx/xmlquery"
)

const (
	// MimeType EPUB 容器的 mimetype 内容
	MimeType = "application/epub+zip"

	containerPath = "META-INF/container.xml"
	mimetypePath  = "mimetype"

	mediaTypeXHTML = "application/xhtml+xml"
	mediaTypeHTML  = "text/html"
	mediaTypeNCX   = "application/x-dtbncx+xml"
)

var (
	// ErrNoRootfile container.xml 中没有 OPF 路径
	ErrNoRootfile = errors.New("container.xml has no rootfile")
	// ErrMissingEntry 清单引用的文件不在压缩包中
	ErrMissingEntry = errors.New("manifest entry missing from archive")
	// ErrInvalidPackage OPF 结构不完整
	ErrInvalidPackage = errors.New("invalid package document")
)

// Part 包中的一个文档文件
type Part struct {
	ID        string // 清单 id
	Href      string // 相对 OPF 的路径
	Path      string // 压缩包中的完整路径
	MediaType string

	content []byte
	output  []byte
	changed bool
}

// Content 返回文档当前内容
func (p *Part) Content() []byte {
	if p.changed {
		return p.output
	}
	return p.content
}

// SetContent 保存处理后的内容
func (p *Part) SetContent(data []byte) {
	p.output = data
	p.changed = true
}

// Changed 内容是否被替换
func (p *Part) Changed() bool {
	return p.changed
}

// NavKind 目录节点类型
type NavKind int

const (
	NavLink    NavKind = iota // 普通链接
	NavSection                // 带子节点的分组
	NavPart                   // 直接引用文档的节点
)

func (k NavKind) String() string {
	switch k {
	case NavSection:
		return "section"
	case NavPart:
		return "part"
	default:
		return "link"
	}
}

// NavNode 目录中的一个节点
type NavNode struct {
	Kind     NavKind
	ID       string
	Title    string
	Href     string
	Children []*NavNode

	el *xmlquery.Node
}

// Resource 需要写入包中的附加资源
type Resource struct {
	ID        string
	Href      string // 相对 OPF 的路径
	MediaType string
	Data      []byte
}

// Package 打开的 EPUB 包
// 未修改的条目在写出时原样复制
type Package struct {
	Source string

	Parts []*Part
	TOC   []*NavNode

	files   []*zip.File
	entries map[string]*zip.File

	opfPath string
	opfDir  string
	opf     *xmlquery.Node

	ncxPath string
	ncx     *xmlquery.Node

	resources []*Resource
}

// OPFPath 返回包文档在压缩包中的路径
func (p *Package) OPFPath() string {
	return p.opfPath
}

// Entry 读取压缩包中的原始条目
func (p *Package) Entry(name string) ([]byte, error) {
	f, ok := p.entries[name]
	if !ok {
		return nil, ErrMissingEntry
	}
	return readZipFile(f)
}
