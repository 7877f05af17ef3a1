package main

import (
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"gitlab.com/tozd/go/errors"

	"github.com/yleoer/zhconv/pkg/config"
	"github.com/yleoer/zhconv/pkg/converter"
)

// rootOpts 在命令之间共享的依赖
type rootOpts struct {
	configFile string
	debug      bool

	cfg    *config.Config
	logger zerolog.Logger

	// newAdapter 加载转换词典，测试中替换为假实现
	newAdapter func(cfg *config.Config, logger zerolog.Logger) (*converter.Adapter, error)
}

func defaultAdapter(cfg *config.Config, logger zerolog.Logger) (*converter.Adapter, error) {
	return converter.NewOpenCCAdapter(cfg.S2TProfile, cfg.T2SProfile, logger)
}

func newRootCommand() *cobra.Command {
	return newRootCommandWith(&rootOpts{newAdapter: defaultAdapter})
}

func newRootCommandWith(opts *rootOpts) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "zhconv",
		Short:         "Convert text and project files between Simplified and Traditional Chinese",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig(opts.configFile)
			if err != nil {
				return errors.Errorf("loading config: %w", err)
			}
			opts.cfg = cfg
			opts.logger = setupLogging(cfg.LogLevel, opts.debug)
			return nil
		},
	}
	cmd.PersistentFlags().StringVarP(&opts.configFile, "config", "c", "", "config file path (yaml)")
	cmd.PersistentFlags().BoolVarP(&opts.debug, "debug", "d", false, "enable debug logging")

	cmd.AddCommand(newDirCommand(opts), newTextCommand(opts), newHistoryCommand(opts))

	return cmd
}

// setupLogging 构建注入到各服务的日志器
func setupLogging(level string, debug bool) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	if debug {
		lvl = zerolog.DebugLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).Level(lvl).With().Timestamp().Logger()
}

// direction 命令行参数优先，其次是配置；未知值回退为 s2t
func (o *rootOpts) direction(flag string) converter.Direction {
	if flag == "" {
		flag = o.cfg.Direction
	}
	return converter.ParseDirection(flag)
}
