package config

import (
	"bytes"
	"io"
	"os"
	"strconv"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/joho/godotenv"
	"gitlab.com/tozd/go/errors"
	"gopkg.in/yaml.v3"

	"github.com/yleoer/zhconv/pkg/converter"
)

type Config struct {
	Direction       string   `yaml:"direction"`        // 默认转换方向，s2t 或 t2s
	ExtraExtensions []string `yaml:"extra_extensions"` // 追加的可转换扩展名
	ExtraExcludes   []string `yaml:"extra_excludes"`   // 追加的排除目录名
	IgnorePatterns  []string `yaml:"ignore_patterns"`  // doublestar 忽略模式
	Workers         int      `yaml:"workers"`          // 同时转换的文件数
	AtomicWrite     bool     `yaml:"atomic_write"`     // 先写临时文件再替换
	HistoryDB       string   `yaml:"history_db"`       // 历史记录数据库，为空则不记录
	S2TProfile      string   `yaml:"s2t_profile"`      // OpenCC 简转繁配置
	T2SProfile      string   `yaml:"t2s_profile"`      // OpenCC 繁转简配置
	LogLevel        string   `yaml:"log_level"`
}

const (
	direction  = "s2t"
	workers    = 1
	maxWorkers = 64
	logLevel   = "info"
)

// LoadConfig 依次应用默认值、YAML 配置文件 (path 非空时)、.env 和环境变量
func LoadConfig(path string) (*Config, error) {
	// 尝试加载 .env 文件
	_ = godotenv.Load()

	cfg := &Config{
		Direction:  direction,
		Workers:    workers,
		S2TProfile: converter.DefaultS2TProfile,
		T2SProfile: converter.DefaultT2SProfile,
		LogLevel:   logLevel,
	}
	if path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return errors.Errorf("reading config file %s: %w", path, err)
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return errors.Errorf("parsing config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("ZHCONV_DIRECTION"); v != "" {
		c.Direction = v
	}
	if v := os.Getenv("ZHCONV_EXTRA_EXTENSIONS"); v != "" {
		c.ExtraExtensions = splitList(v)
	}
	if v := os.Getenv("ZHCONV_EXTRA_EXCLUDES"); v != "" {
		c.ExtraExcludes = splitList(v)
	}
	if v := os.Getenv("ZHCONV_IGNORE_PATTERNS"); v != "" {
		c.IgnorePatterns = splitList(v)
	}
	if v := os.Getenv("ZHCONV_WORKERS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return errors.Errorf("parsing ZHCONV_WORKERS %q: %w", v, err)
		}
		c.Workers = n
	}
	if v := os.Getenv("ZHCONV_ATOMIC_WRITE"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return errors.Errorf("parsing ZHCONV_ATOMIC_WRITE %q: %w", v, err)
		}
		c.AtomicWrite = b
	}
	if v, ok := os.LookupEnv("ZHCONV_HISTORY_DB"); ok {
		c.HistoryDB = v
	}
	if v := os.Getenv("ZHCONV_S2T_PROFILE"); v != "" {
		c.S2TProfile = v
	}
	if v := os.Getenv("ZHCONV_T2S_PROFILE"); v != "" {
		c.T2SProfile = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	return nil
}

// Validate 校验配置。方向不校验，未知方向在转换时回退为 s2t。
func (c *Config) Validate() error {
	profiles := make([]interface{}, len(converter.Profiles))
	for i, p := range converter.Profiles {
		profiles[i] = p
	}
	return validation.ValidateStruct(c,
		validation.Field(&c.Workers, validation.Required, validation.Min(1), validation.Max(maxWorkers)),
		validation.Field(&c.S2TProfile, validation.Required, validation.In(profiles...)),
		validation.Field(&c.T2SProfile, validation.Required, validation.In(profiles...)),
		validation.Field(&c.LogLevel, validation.In("trace", "debug", "info", "warn", "error")),
	)
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
