package processor

import (
	"fmt"

	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"

	"github.com/yleoer/zhconv/pkg/converter"
)

// ErrInvalidInput 表示待转换文本为空
var ErrInvalidInput = errors.Base("invalid input")

// TextConversionResult 单次文本转换的结果
type TextConversionResult struct {
	Success       bool   `json:"success"`
	ConvertedText string `json:"converted_text,omitempty"`
	ErrorReason   string `json:"error_reason,omitempty"`
}

// TextProcessor 转换一段文本
type TextProcessor struct {
	converter Converter
	logger    zerolog.Logger
}

func NewTextProcessor(c Converter, logger zerolog.Logger) *TextProcessor {
	return &TextProcessor{
		converter: c,
		logger:    logger.With().Str("component", "text_processor").Logger(),
	}
}

// ConvertText 空文本直接返回 invalid input，不调用转换器
func (p *TextProcessor) ConvertText(text string, d converter.Direction) TextConversionResult {
	if text == "" {
		return TextConversionResult{ErrorReason: ErrInvalidInput.Error()}
	}
	out, err := p.convert(text, d)
	if err != nil {
		p.logger.Warn().Err(err).Str("direction", d.String()).Msg("Text conversion failed")
		return TextConversionResult{ErrorReason: err.Error()}
	}
	return TextConversionResult{Success: true, ConvertedText: out}
}

func (p *TextProcessor) convert(text string, d converter.Direction) (out string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.New(fmt.Sprint(r))
		}
	}()
	return p.converter.Convert(d, text)
}
