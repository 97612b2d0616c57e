package epub

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"net/url"
	"os"
	"path"
	"strings"

	"github.com/antchfx/xmlquery"
)

// Open 读取 EPUB 文件
func Open(filename string) (*Package, error) {
	// 读取整个 EPUB 文件到内存
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read EPUB file: %w", err)
	}
	return Read(data, filename)
}

// Read 从内存中的字节解析 EPUB
func Read(data []byte, source string) (*Package, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("failed to open EPUB as ZIP: %w", err)
	}

	pkg := &Package{
		Source:  source,
		files:   zr.File,
		entries: make(map[string]*zip.File, len(zr.File)),
	}
	for _, f := range zr.File {
		pkg.entries[f.Name] = f
	}

	if err := pkg.loadOPF(); err != nil {
		return nil, err
	}
	if err := pkg.loadParts(); err != nil {
		return nil, err
	}
	if err := pkg.loadTOC(); err != nil {
		return nil, err
	}

	return pkg, nil
}

// loadOPF 通过 container.xml 找到并解析包文档
func (p *Package) loadOPF() error {
	container, err := p.parseEntry(containerPath)
	if err != nil {
		return err
	}

	rootfile := xmlquery.FindOne(container, "//*[local-name()='rootfile'][@full-path]")
	if rootfile == nil {
		return ErrNoRootfile
	}

	p.opfPath = rootfile.SelectAttr("full-path")
	p.opfDir = path.Dir(p.opfPath)

	p.opf, err = p.parseEntry(p.opfPath)
	return err
}

// loadParts 按清单顺序收集文档文件
func (p *Package) loadParts() error {
	manifest := p.manifest()
	if manifest == nil {
		return fmt.Errorf("%w: no manifest", ErrInvalidPackage)
	}

	for _, item := range xmlquery.Find(manifest, "./*[local-name()='item']") {
		mediaType := item.SelectAttr("media-type")
		if mediaType != mediaTypeXHTML && mediaType != mediaTypeHTML {
			continue
		}
		// 导航文档不参与翻译
		if hasProperty(item.SelectAttr("properties"), "nav") {
			continue
		}

		href := item.SelectAttr("href")
		full, err := p.resolve(p.opfDir, href)
		if err != nil {
			return err
		}

		f, ok := p.entries[full]
		if !ok {
			return fmt.Errorf("%w: %s", ErrMissingEntry, full)
		}
		content, err := readZipFile(f)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", full, err)
		}

		p.Parts = append(p.Parts, &Part{
			ID:        item.SelectAttr("id"),
			Href:      href,
			Path:      full,
			MediaType: mediaType,
			content:   content,
		})
	}

	return nil
}

func (p *Package) parseEntry(name string) (*xmlquery.Node, error) {
	data, err := p.Entry(name)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", name, err)
	}
	doc, err := xmlquery.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", name, err)
	}
	return doc, nil
}

// resolve 将相对路径解析为压缩包中的完整路径，忽略片段
func (p *Package) resolve(base, href string) (string, error) {
	if i := strings.IndexByte(href, '#'); i >= 0 {
		href = href[:i]
	}
	unescaped, err := url.PathUnescape(href)
	if err != nil {
		return "", fmt.Errorf("%w: bad href %q", ErrInvalidPackage, href)
	}
	return path.Join(base, unescaped), nil
}

func readZipFile(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

func hasProperty(properties, name string) bool {
	for _, p := range strings.Fields(properties) {
		if p == name {
			return true
		}
	}
	return false
}
