package epub

// Codec 基于文件系统的 EPUB 读写
type Codec struct{}

// NewCodec 创建 EPUB 编解码器
func NewCodec() *Codec {
	return &Codec{}
}

// Open 读取 EPUB 文件
func (Codec) Open(filename string) (*Package, error) {
	return Open(filename)
}

// Write 原子地写出 EPUB 文件
func (Codec) Write(pkg *Package, filename string) (*WriteResult, error) {
	return Write(pkg, filename)
}
