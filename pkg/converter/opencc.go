package converter

import (
	"github.com/liuzl/gocc"
	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"
)

const (
	DefaultS2TProfile = "s2tw"
	DefaultT2SProfile = "tw2s"
)

// Profiles 是 gocc 支持的 OpenCC 配置名
var Profiles = []string{
	"s2t", "t2s", "s2tw", "tw2s", "s2hk", "hk2s", "s2twp", "tw2sp", "t2tw", "t2hk",
}

// openCCConverter 是 TextConverter 的 OpenCC 实现
type openCCConverter struct {
	profile   string
	converter *gocc.OpenCC
}

// NewOpenCCConverter 加载指定配置的词典并返回转换器
func NewOpenCCConverter(profile string) (TextConverter, error) {
	cc, err := gocc.New(profile)
	if err != nil {
		return nil, errors.Errorf("initializing OpenCC converter %q: %w", profile, err)
	}
	return &openCCConverter{profile: profile, converter: cc}, nil
}

func (c *openCCConverter) Convert(text string) (string, error) {
	out, err := c.converter.Convert(text)
	if err != nil {
		return "", errors.Errorf("opencc %s: %w", c.profile, err)
	}
	return out, nil
}

// NewOpenCCAdapter 为两个方向各加载一次词典。空的 profile 使用默认值。
func NewOpenCCAdapter(s2tProfile, t2sProfile string, logger zerolog.Logger) (*Adapter, error) {
	if s2tProfile == "" {
		s2tProfile = DefaultS2TProfile
	}
	if t2sProfile == "" {
		t2sProfile = DefaultT2SProfile
	}
	s2t, err := NewOpenCCConverter(s2tProfile)
	if err != nil {
		return nil, err
	}
	t2s, err := NewOpenCCConverter(t2sProfile)
	if err != nil {
		return nil, err
	}
	logger.Info().Str("s2t", s2tProfile).Str("t2s", t2sProfile).Msg("OpenCC converters initialized")
	return NewAdapter(s2t, t2s)
}
