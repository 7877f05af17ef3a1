package main

import (
	"github.com/spf13/cobra"
	"gitlab.com/tozd/go/errors"

	"github.com/yleoer/zhconv/pkg/database"
	"github.com/yleoer/zhconv/pkg/processor"
	"github.com/yleoer/zhconv/pkg/scanner"
	"github.com/yleoer/zhconv/pkg/scheduler"
)

func newDirCommand(opts *rootOpts) *cobra.Command {
	var (
		direction string
		progress  string
	)
	cmd := &cobra.Command{
		Use:   "dir <root>",
		Short: "Convert every text file under a project directory in place",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			onProgress, err := newProgressFunc(progress, cmd.OutOrStdout())
			if err != nil {
				return err
			}
			bs, closeFn, err := opts.buildScheduler()
			if err != nil {
				return err
			}
			defer closeFn()

			result, err := bs.RunBatch(cmd.Context(), args[0], opts.direction(direction), onProgress)
			if err != nil {
				return err
			}
			printSummary(cmd.OutOrStdout(), result)
			return nil
		},
	}
	cmd.Flags().StringVarP(&direction, "direction", "D", "", "conversion direction: s2t or t2s (default from config)")
	cmd.Flags().StringVarP(&progress, "progress", "p", progressBar, "progress display: bar, lines or none")
	return cmd
}

// buildScheduler 按依赖顺序初始化批量转换所需的服务
func (o *rootOpts) buildScheduler() (*scheduler.BatchScheduler, func(), error) {
	// 1. 繁简转换器，两个方向各加载一次词典
	adapter, err := o.newAdapter(o.cfg, o.logger)
	if err != nil {
		return nil, nil, errors.Errorf("initializing converter: %w", err)
	}
	// 2. 文件扫描器
	treeScanner, err := scanner.NewTreeScanner(
		scanner.NewClassifier(o.cfg.ExtraExtensions...),
		scanner.Options{ExtraExcludedDirs: o.cfg.ExtraExcludes, IgnorePatterns: o.cfg.IgnorePatterns},
		o.logger,
	)
	if err != nil {
		return nil, nil, errors.Errorf("initializing scanner: %w", err)
	}
	// 3. 单文件处理器
	fileProcessor := processor.NewFileProcessor(adapter, o.cfg.AtomicWrite, o.logger)
	// 4. 历史记录 (可选)
	var recorder scheduler.RunRecorder
	closeFn := func() {}
	if o.cfg.HistoryDB != "" {
		store, err := database.NewSQLiteStore(o.cfg.HistoryDB, o.logger)
		if err != nil {
			return nil, nil, errors.Errorf("opening history: %w", err)
		}
		recorder = store
		closeFn = func() { _ = store.Close() }
	}
	return scheduler.NewBatchScheduler(treeScanner, fileProcessor, recorder, o.cfg.Workers, o.logger), closeFn, nil
}
