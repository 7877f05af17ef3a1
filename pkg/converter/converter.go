package converter

import (
	"gitlab.com/tozd/go/errors"
)

// Direction 转换方向
type Direction string

const (
	S2T Direction = "s2t" // 简体转繁体
	T2S Direction = "t2s" // 繁体转简体
)

// ParseDirection 将方向标记解析为 Direction。只认精确的 "t2s"，其余一律回退为 S2T。
func ParseDirection(token string) Direction {
	switch Direction(token) {
	case T2S:
		return T2S
	default:
		return S2T
	}
}

func (d Direction) String() string {
	return string(d)
}

// TextConverter 定义单方向的文本转换器接口
type TextConverter interface {
	Convert(text string) (string, error)
}

// ConverterFunc 让普通函数满足 TextConverter
type ConverterFunc func(text string) (string, error)

func (f ConverterFunc) Convert(text string) (string, error) {
	return f(text)
}

// Adapter 持有两个方向各一个转换器实例，构造一次后重复使用
type Adapter struct {
	s2t TextConverter
	t2s TextConverter
}

// NewAdapter 用已经构造好的一对转换器创建 Adapter
func NewAdapter(s2t, t2s TextConverter) (*Adapter, error) {
	if s2t == nil || t2s == nil {
		return nil, errors.New("both s2t and t2s converters are required")
	}
	return &Adapter{s2t: s2t, t2s: t2s}, nil
}

// GetConverter 返回方向对应的转换器，未知方向使用 s2t
func (a *Adapter) GetConverter(d Direction) TextConverter {
	if d == T2S {
		return a.t2s
	}
	return a.s2t
}

// Convert 按方向转换文本。空字符串原样返回，不调用底层转换器。
func (a *Adapter) Convert(d Direction, text string) (string, error) {
	if text == "" {
		return text, nil
	}
	out, err := a.GetConverter(d).Convert(text)
	if err != nil {
		return "", errors.Errorf("converting text (%s): %w", ParseDirection(string(d)), err)
	}
	return out, nil
}
