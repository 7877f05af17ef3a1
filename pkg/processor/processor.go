package processor

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"

	"github.com/yleoer/zhconv/pkg/converter"
	"github.com/yleoer/zhconv/pkg/util"
)

// Converter 是处理器依赖的转换能力，由 converter.Adapter 实现
type Converter interface {
	Convert(d converter.Direction, text string) (string, error)
}

// FileOutcome 单个文件的转换结果，创建后不再修改
type FileOutcome struct {
	Path        string        `json:"path"`
	Success     bool          `json:"success"`
	ErrorReason string        `json:"error_reason,omitempty"`
	Changed     bool          `json:"changed"`
	Encoding    util.Encoding `json:"encoding,omitempty"`
}

// FileProcessor 负责读取、转换并原地写回单个文件
type FileProcessor struct {
	converter   Converter
	atomicWrite bool
	writeFile   func(path, text string, enc util.Encoding, atomic bool) error
	logger      zerolog.Logger
}

// NewFileProcessor 创建 FileProcessor。atomicWrite 为 true 时通过临时文件替换原文件。
func NewFileProcessor(c Converter, atomicWrite bool, logger zerolog.Logger) *FileProcessor {
	return &FileProcessor{
		converter:   c,
		atomicWrite: atomicWrite,
		writeFile:   util.WriteTextFile,
		logger:      logger.With().Str("component", "file_processor").Logger(),
	}
}

// ConvertFile 读取 → 转换 → 写回。所有失败都体现在返回的 FileOutcome 中，不会向上抛出。
func (p *FileProcessor) ConvertFile(ctx context.Context, path string, d converter.Direction) FileOutcome {
	outcome := FileOutcome{Path: path}
	enc, changed, err := p.convertFile(ctx, path, d)
	outcome.Encoding = enc
	if err != nil {
		outcome.ErrorReason = err.Error()
		p.logger.Warn().Str("path", path).Err(err).Msg("Failed to convert file")
		return outcome
	}
	outcome.Success = true
	outcome.Changed = changed
	p.logger.Debug().Str("path", path).Bool("changed", changed).Str("encoding", string(enc)).Msg("File converted")
	return outcome
}

func (p *FileProcessor) convertFile(ctx context.Context, path string, d converter.Direction) (enc util.Encoding, changed bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.Errorf("converting %s: %s", path, fmt.Sprint(r))
		}
	}()
	if err := ctx.Err(); err != nil {
		return "", false, err
	}
	content, enc, err := util.ReadTextFile(path)
	if err != nil {
		return "", false, err
	}
	converted, err := p.converter.Convert(d, content)
	if err != nil {
		return enc, false, err
	}
	// 内容未变化也照常写回，写入失败同样算失败
	if err := p.writeFile(path, converted, enc, p.atomicWrite); err != nil {
		return enc, false, err
	}
	return enc, converted != content, nil
}
