package epub

import (
	"archive/zip"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/antchfx/xmlquery"
	"github.com/zeebo/blake3"
)

// WriteResult 写出结果
type WriteResult struct {
	Path   string
	Size   int64
	Digest string // 输出文件的 BLAKE3 摘要
}

// countingWriter 统计写入字节数
type countingWriter struct {
	n int64
}

func (c *countingWriter) Write(b []byte) (int, error) {
	c.n += int64(len(b))
	return len(b), nil
}

// Write 将包写到 filename
// 先写临时文件再重命名，失败时不会留下不完整的输出
func Write(pkg *Package, filename string) (result *WriteResult, err error) {
	dir := filepath.Dir(filename)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(filename)+".*.tmp")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp file: %w", err)
	}
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	hasher := blake3.New()
	counter := &countingWriter{}
	if err = pkg.Encode(io.MultiWriter(tmp, hasher, counter)); err != nil {
		return nil, err
	}
	if err = tmp.Sync(); err != nil {
		return nil, fmt.Errorf("failed to sync output: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return nil, fmt.Errorf("failed to close output: %w", err)
	}
	if err = os.Rename(tmp.Name(), filename); err != nil {
		return nil, fmt.Errorf("failed to move output into place: %w", err)
	}

	return &WriteResult{
		Path:   filename,
		Size:   counter.n,
		Digest: hex.EncodeToString(hasher.Sum(nil)),
	}, nil
}

// Encode 将包编码为 ZIP 写入 w
// mimetype 必须是第一个且不压缩的条目
func (p *Package) Encode(w io.Writer) error {
	changed, added, err := p.pendingEntries()
	if err != nil {
		return err
	}

	zw := zip.NewWriter(w)

	mw, err := zw.CreateHeader(&zip.FileHeader{Name: mimetypePath, Method: zip.Store})
	if err != nil {
		return fmt.Errorf("failed to create mimetype entry: %w", err)
	}
	if _, err := io.WriteString(mw, MimeType); err != nil {
		return fmt.Errorf("failed to write mimetype entry: %w", err)
	}

	for _, f := range p.files {
		if f.Name == mimetypePath {
			continue
		}
		data, ok := changed[f.Name]
		if !ok {
			// 未修改的条目直接复制压缩数据
			if err := zw.Copy(f); err != nil {
				return fmt.Errorf("failed to copy %s: %w", f.Name, err)
			}
			continue
		}
		header := &zip.FileHeader{
			Name:     f.Name,
			Method:   zip.Deflate,
			Modified: f.Modified,
		}
		if err := writeEntry(zw, header, data); err != nil {
			return err
		}
	}

	for _, name := range added {
		if err := writeEntry(zw, &zip.FileHeader{Name: name, Method: zip.Deflate}, changed[name]); err != nil {
			return err
		}
	}

	if err := zw.Close(); err != nil {
		return fmt.Errorf("failed to finalize archive: %w", err)
	}
	return nil
}

// pendingEntries 收集需要重写的条目，added 为压缩包中原本不存在的条目
func (p *Package) pendingEntries() (map[string][]byte, []string, error) {
	changed := make(map[string][]byte)
	var added []string

	for _, part := range p.Parts {
		if part.Changed() {
			changed[part.Path] = part.Content()
		}
	}

	changed[p.opfPath] = []byte(p.opf.OutputXMLWithOptions(xmlquery.WithPreserveSpace()))

	if p.ncx != nil && p.syncTOC() {
		changed[p.ncxPath] = []byte(p.ncx.OutputXMLWithOptions(xmlquery.WithPreserveSpace()))
	}

	for _, r := range p.resources {
		name := p.resourcePath(r)
		if name == mimetypePath || name == containerPath || name == p.opfPath {
			return nil, nil, fmt.Errorf("%w: resource %s overwrites a reserved entry", ErrInvalidPackage, name)
		}
		if _, exists := p.entries[name]; !exists {
			if _, seen := changed[name]; !seen {
				added = append(added, name)
			}
		}
		changed[name] = r.Data
	}

	return changed, added, nil
}

func writeEntry(zw *zip.Writer, header *zip.FileHeader, data []byte) error {
	w, err := zw.CreateHeader(header)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", header.Name, err)
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("failed to write %s: %w", header.Name, err)
	}
	return nil
}
