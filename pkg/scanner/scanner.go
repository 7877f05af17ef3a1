package scanner

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"
)

// DefaultExcludedDirs 不会进入的目录：版本控制、依赖缓存、构建输出、编辑器元数据
var DefaultExcludedDirs = []string{"node_modules", ".git", "dist", "build", ".vscode"}

// ErrRootNotDirectory 表示遍历根路径不是目录
var ErrRootNotDirectory = errors.Base("root path is not a directory")

// DirError 记录一个无法读取的目录，该目录按空目录处理
type DirError struct {
	Path string
	Err  error
}

// ScanResult 是一次遍历的结果，Files 按深度优先、目录列表顺序排列
type ScanResult struct {
	Files     []string
	DirErrors []DirError
}

// Options 配置 TreeScanner
type Options struct {
	ExtraExcludedDirs []string
	IgnorePatterns    []string // doublestar 模式，相对根目录、使用 / 分隔
}

// TreeScanner 递归枚举目录下所有可转换文件
type TreeScanner struct {
	classifier *Classifier
	excluded   map[string]struct{}
	patterns   []string
	logger     zerolog.Logger
	readDir    func(name string) ([]os.DirEntry, error)
}

// NewTreeScanner 创建 TreeScanner。无效的 ignore 模式会返回错误。
func NewTreeScanner(classifier *Classifier, opts Options, logger zerolog.Logger) (*TreeScanner, error) {
	for _, p := range opts.IgnorePatterns {
		if !doublestar.ValidatePattern(p) {
			return nil, errors.Errorf("invalid ignore pattern %q", p)
		}
	}
	excluded := make(map[string]struct{}, len(DefaultExcludedDirs)+len(opts.ExtraExcludedDirs))
	for _, name := range DefaultExcludedDirs {
		excluded[name] = struct{}{}
	}
	for _, name := range opts.ExtraExcludedDirs {
		if name != "" {
			excluded[name] = struct{}{}
		}
	}
	return &TreeScanner{
		classifier: classifier,
		excluded:   excluded,
		patterns:   opts.IgnorePatterns,
		logger:     logger.With().Str("component", "scanner").Logger(),
		readDir:    os.ReadDir,
	}, nil
}

// Enumerate 深度优先遍历 rootPath，返回全部候选文件。
// 只有根路径不存在或不是目录时返回错误；子目录读取失败会被记录并跳过。
func (s *TreeScanner) Enumerate(ctx context.Context, rootPath string) (*ScanResult, error) {
	info, err := os.Stat(rootPath)
	if err != nil {
		return nil, errors.Errorf("scanning %s: %w", rootPath, err)
	}
	if !info.IsDir() {
		return nil, errors.Errorf("scanning %s: %w", rootPath, ErrRootNotDirectory)
	}

	result := &ScanResult{Files: []string{}}
	if err := s.traverse(ctx, rootPath, rootPath, result); err != nil {
		return nil, err
	}
	s.logger.Debug().
		Str("root", rootPath).
		Int("files", len(result.Files)).
		Int("dir_errors", len(result.DirErrors)).
		Msg("Directory scan completed")
	return result, nil
}

func (s *TreeScanner) traverse(ctx context.Context, root, dir string, result *ScanResult) error {
	if err := ctx.Err(); err != nil {
		return errors.Errorf("scanning %s: %w", root, err)
	}
	entries, err := s.readDir(dir)
	if err != nil {
		s.logger.Warn().Str("path", dir).Err(err).Msg("Failed to read directory, skipping")
		result.DirErrors = append(result.DirErrors, DirError{Path: dir, Err: err})
		return nil
	}
	for _, entry := range entries {
		fullPath := filepath.Join(dir, entry.Name())
		if s.ignored(root, fullPath) {
			s.logger.Debug().Str("path", fullPath).Msg("Skipping ignored path")
			continue
		}
		// 链接到文件的按目标处理，链接到目录的不进入，避免环
		if entry.Type()&fs.ModeSymlink != 0 {
			info, err := os.Stat(fullPath)
			switch {
			case err != nil:
				s.logger.Debug().Str("path", fullPath).Err(err).Msg("Skipping broken symbolic link")
			case info.IsDir():
				s.logger.Debug().Str("path", fullPath).Msg("Skipping symbolic link to directory")
			case info.Mode().IsRegular() && s.classifier.IsConvertible(fullPath):
				result.Files = append(result.Files, fullPath)
			}
			continue
		}
		if entry.IsDir() {
			if _, skip := s.excluded[entry.Name()]; skip {
				continue
			}
			if err := s.traverse(ctx, root, fullPath, result); err != nil {
				return err
			}
			continue
		}
		if entry.Type().IsRegular() && s.classifier.IsConvertible(fullPath) {
			result.Files = append(result.Files, fullPath)
		}
	}
	return nil
}

func (s *TreeScanner) ignored(root, path string) bool {
	if len(s.patterns) == 0 {
		return false
	}
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	rel = filepath.ToSlash(rel)
	for _, p := range s.patterns {
		if ok, _ := doublestar.Match(p, rel); ok {
			return true
		}
	}
	return false
}
