package config

import (
	"sort"
	"strings"
)

// DefaultFontKey 字体表中的兜底条目
const DefaultFontKey = "default"

// AutoLanguage 源语言自动检测
const AutoLanguage = "auto"

// Languages 保存语言相关的只读数据表，进程启动时构建一次后注入到各组件
type Languages struct {
	names  map[string]string
	fonts  map[string]string
	rtl    map[string]bool
	source []string
	target []string
}

// DefaultLanguages 返回内置的语言数据表
func DefaultLanguages() *Languages {
	return &Languages{
		names: map[string]string{
			"zh": "Chinese",
			"en": "English",
			"ja": "Japanese",
			"ko": "Korean",
			"es": "Spanish",
			"fr": "French",
			"de": "German",
			"ru": "Russian",
			"ar": "Arabic",
			"he": "Hebrew",
			"fa": "Persian",
			"th": "Thai",
		},
		fonts: map[string]string{
			"zh":           "'Noto Sans SC', 'Microsoft YaHei', SimSun, sans-serif",
			"ja":           "'Noto Sans JP', 'Yu Gothic', 'MS Gothic', sans-serif",
			"ko":           "'Noto Sans KR', 'Malgun Gothic', sans-serif",
			"ar":           "'Noto Sans Arabic', 'Arial', sans-serif",
			"he":           "'Noto Sans Hebrew', 'Arial', sans-serif",
			"th":           "'Noto Sans Thai', 'Leelawadee', sans-serif",
			DefaultFontKey: "'Noto Sans', Arial, sans-serif",
		},
		rtl: map[string]bool{
			"ar": true,
			"he": true,
			"fa": true,
		},
		source: []string{AutoLanguage, "en", "ja", "ko", "zh", "es", "fr", "de", "ru"},
		target: []string{"zh", "en", "ja", "ko", "es", "fr", "de", "ru", "ar"},
	}
}

// Name 返回语言代码对应的可读名称，未知代码原样返回
func (l *Languages) Name(code string) string {
	if name, ok := l.names[code]; ok {
		return name
	}
	return code
}

// Font 返回语言对应的字体栈，未登记的语言使用默认条目
func (l *Languages) Font(code string) string {
	if font, ok := l.fonts[code]; ok {
		return font
	}
	return l.fonts[DefaultFontKey]
}

// IsRTL 判断语言是否从右向左书写
func (l *Languages) IsRTL(code string) bool {
	return l.rtl[code]
}

// Direction 返回 CSS direction 取值
func (l *Languages) Direction(code string) string {
	if l.IsRTL(code) {
		return "rtl"
	}
	return "ltr"
}

// SourceLanguages 返回可选的源语言代码（包含 auto）
func (l *Languages) SourceLanguages() []string {
	return append([]string(nil), l.source...)
}

// TargetLanguages 返回可选的目标语言代码
func (l *Languages) TargetLanguages() []string {
	return append([]string(nil), l.target...)
}

// IsKnownTarget 判断目标语言是否在固定列表中
func (l *Languages) IsKnownTarget(code string) bool {
	for _, c := range l.target {
		if strings.EqualFold(c, code) {
			return true
		}
	}
	return false
}

// Codes 返回名称表中所有语言代码（排序后）
func (l *Languages) Codes() []string {
	codes := make([]string, 0, len(l.names))
	for code := range l.names {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}
