package pipeline

import (
	"fmt"

	"github.com/nerdneilsfield/epub-translator/internal/config"
	"github.com/nerdneilsfield/epub-translator/internal/formats/epub"
)

const (
	// TitleMarker 追加到书名后的标记
	TitleMarker = " (Translated)"

	StylesheetID        = "style_translation"
	StylesheetHref      = "style/translation.css"
	StylesheetMediaType = "text/css"
)

// Stylesheet 生成设置文字方向和字体的样式表
func Stylesheet(direction, fontFamily string) string {
	return fmt.Sprintf(`body {
    direction: %s;
    font-family: %s;
}
p, div, span {
    direction: %s;
}
`, direction, fontFamily, direction)
}

// AdjustMetadata 按目标语言更新包的语言、书名和样式表
func AdjustMetadata(pkg *epub.Package, target string, langs *config.Languages) {
	pkg.SetLanguage(target)

	// 只改第一个书名
	if titles := pkg.Titles(); len(titles) > 0 {
		pkg.SetTitle(0, titles[0]+TitleMarker)
	}

	css := Stylesheet(langs.Direction(target), langs.Font(target))
	pkg.PutResource(epub.Resource{
		ID:        StylesheetID,
		Href:      StylesheetHref,
		MediaType: StylesheetMediaType,
		Data:      []byte(css),
	})
}
