package scanner

import (
	"path/filepath"
	"strings"
)

// DefaultExtensions 可转换的文本文件扩展名
var DefaultExtensions = []string{
	// 前端
	".js", ".ts", ".vue", ".jsx", ".tsx", ".html", ".css", ".scss", ".less",
	// 后端
	".php", ".java", ".go", ".py", ".rb", ".cs", ".cpp", ".c", ".h", ".hpp",
	".kt", ".scala", ".rs", ".swift", ".m", ".mm", ".pl", ".sh", ".bat", ".ps1", ".sql",
	// 配置和数据
	".json", ".xml", ".yaml", ".yml", ".toml", ".ini", ".conf", ".config", ".properties", ".env",
	// 文档和标记
	".md", ".txt", ".rst", ".adoc",
	// 模板
	".tpl", ".tmpl", ".mustache", ".hbs", ".ejs", ".pug", ".jade",
	// 其他
	".log", ".csv", ".tsv",
}

// Classifier 根据扩展名判断文件是否可转换
type Classifier struct {
	extensions map[string]struct{}
}

// NewClassifier 在默认扩展名之外追加 extra，extra 可以不带前导点
func NewClassifier(extra ...string) *Classifier {
	c := &Classifier{extensions: make(map[string]struct{}, len(DefaultExtensions)+len(extra))}
	for _, ext := range DefaultExtensions {
		c.extensions[ext] = struct{}{}
	}
	for _, ext := range extra {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		c.extensions[ext] = struct{}{}
	}
	return c
}

// IsConvertible 只看扩展名，大小写不敏感，不访问文件系统
func (c *Classifier) IsConvertible(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	if ext == "" {
		return false
	}
	_, ok := c.extensions[ext]
	return ok
}
