package test

import (
	"archive/zip"
	"bytes"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// Chapter 测试 EPUB 中的一个章节
type Chapter struct {
	ID   string
	Href string
	Body string // <body> 内的内容
}

// NavPoint 测试 EPUB 的目录项
type NavPoint struct {
	ID       string // 为空时不写 id 属性
	Label    string
	Src      string
	Children []NavPoint
}

// EPUBSpec 描述要生成的测试 EPUB
type EPUBSpec struct {
	Title    string
	Language string
	Chapters []Chapter
	TOC      []NavPoint
	Extra    map[string]string // 额外写入 OEBPS 的文件
}

// ChapterXHTML 生成章节文件内容
func ChapterXHTML(title, body string) string {
	return `<?xml version="1.0" encoding="UTF-8"?>
<!DOCTYPE html>
<html xmlns="http://www.w3.org/1999/xhtml">
<head>
    <title>` + title + `</title>
    <link rel="stylesheet" type="text/css" href="style.css"/>
</head>
<body>
` + body + `
</body>
</html>`
}

// BuildEPUB 按描述创建 EPUB 字节
func BuildEPUB(t *testing.T, spec EPUBSpec) []byte {
	t.Helper()

	var buf bytes.Buffer
	zipWriter := zip.NewWriter(&buf)

	write := func(name, content string, method uint16) {
		w, err := zipWriter.CreateHeader(&zip.FileHeader{Name: name, Method: method})
		require.NoError(t, err)
		_, err = w.Write([]byte(content))
		require.NoError(t, err)
	}

	// 添加 mimetype 文件
	write("mimetype", "application/epub+zip", zip.Store)

	// 添加 META-INF/container.xml
	write("META-INF/container.xml", `<?xml version="1.0" encoding="UTF-8"?>
<container version="1.0" xmlns="urn:oasis:names:tc:opendocument:xmlns:container">
    <rootfiles>
        <rootfile full-path="OEBPS/content.opf" media-type="application/oebps-package+xml"/>
    </rootfiles>
</container>`, zip.Deflate)

	var manifest, spine strings.Builder
	for _, ch := range spec.Chapters {
		fmt.Fprintf(&manifest, "        <item id=%q href=%q media-type=\"application/xhtml+xml\"/>\n", ch.ID, ch.Href)
		fmt.Fprintf(&spine, "        <itemref idref=%q/>\n", ch.ID)
	}

	metadata := fmt.Sprintf("        <dc:title>%s</dc:title>\n        <dc:creator>Test Author</dc:creator>\n", spec.Title)
	if spec.Language != "" {
		metadata += fmt.Sprintf("        <dc:language>%s</dc:language>\n", spec.Language)
	}

	write("OEBPS/content.opf", `<?xml version="1.0" encoding="UTF-8"?>
<package xmlns="http://www.idpf.org/2007/opf" version="2.0" unique-identifier="bookid">
    <metadata xmlns:dc="http://purl.org/dc/elements/1.1/">
`+metadata+`    </metadata>
    <manifest>
        <item id="ncx" href="toc.ncx" media-type="application/x-dtbncx+xml"/>
        <item id="style" href="style.css" media-type="text/css"/>
`+manifest.String()+`    </manifest>
    <spine toc="ncx">
`+spine.String()+`    </spine>
</package>`, zip.Deflate)

	var navMap strings.Builder
	writeNavPoints(&navMap, spec.TOC, "        ")
	write("OEBPS/toc.ncx", `<?xml version="1.0" encoding="UTF-8"?>
<ncx xmlns="http://www.daisy.org/z3986/2005/ncx/" version="2005-1">
    <head>
        <meta name="dtb:uid" content="bookid"/>
    </head>
    <docTitle><text>`+spec.Title+`</text></docTitle>
    <navMap>
`+navMap.String()+`    </navMap>
</ncx>`, zip.Deflate)

	write("OEBPS/style.css", "body {\n    font-family: Georgia, serif;\n}\n", zip.Deflate)

	for _, ch := range spec.Chapters {
		name, err := url.PathUnescape(ch.Href)
		require.NoError(t, err)
		write("OEBPS/"+name, ChapterXHTML(ch.ID, ch.Body), zip.Deflate)
	}
	for name, content := range spec.Extra {
		write("OEBPS/"+name, content, zip.Deflate)
	}

	require.NoError(t, zipWriter.Close())
	return buf.Bytes()
}

func writeNavPoints(b *strings.Builder, points []NavPoint, indent string) {
	for _, p := range points {
		if p.ID != "" {
			fmt.Fprintf(b, "%s<navPoint id=%q>\n", indent, p.ID)
		} else {
			fmt.Fprintf(b, "%s<navPoint>\n", indent)
		}
		fmt.Fprintf(b, "%s    <navLabel><text>%s</text></navLabel>\n", indent, p.Label)
		fmt.Fprintf(b, "%s    <content src=%q/>\n", indent, p.Src)
		writeNavPoints(b, p.Children, indent+"    ")
		fmt.Fprintf(b, "%s</navPoint>\n", indent)
	}
}

// WriteEPUB 将生成的 EPUB 写入临时目录并返回路径
func WriteEPUB(t *testing.T, spec EPUBSpec) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "book.epub")
	require.NoError(t, os.WriteFile(path, BuildEPUB(t, spec), 0o644))
	return path
}

// ReadEntry 读取 EPUB 中的一个条目
func ReadEntry(t *testing.T, epubPath, name string) string {
	t.Helper()
	zr, err := zip.OpenReader(epubPath)
	require.NoError(t, err)
	defer zr.Close()

	for _, f := range zr.File {
		if f.Name != name {
			continue
		}
		rc, err := f.Open()
		require.NoError(t, err)
		defer rc.Close()
		var out bytes.Buffer
		_, err = out.ReadFrom(rc)
		require.NoError(t, err)
		return out.String()
	}
	t.Fatalf("entry %s not found in %s", name, epubPath)
	return ""
}

// EntryNames 返回 EPUB 中的条目名称（按顺序）
func EntryNames(t *testing.T, epubPath string) []string {
	t.Helper()
	zr, err := zip.OpenReader(epubPath)
	require.NoError(t, err)
	defer zr.Close()

	names := make([]string, 0, len(zr.File))
	for _, f := range zr.File {
		names = append(names, f.Name)
	}
	return names
}
