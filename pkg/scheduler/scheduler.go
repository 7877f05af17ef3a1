package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"
	"golang.org/x/sync/errgroup"

	"github.com/yleoer/zhconv/pkg/converter"
	"github.com/yleoer/zhconv/pkg/processor"
	"github.com/yleoer/zhconv/pkg/scanner"
)

// FileScanner 枚举候选文件
type FileScanner interface {
	Enumerate(ctx context.Context, rootPath string) (*scanner.ScanResult, error)
}

// FileConverter 转换单个文件，失败体现在 FileOutcome 中
type FileConverter interface {
	ConvertFile(ctx context.Context, path string, d converter.Direction) processor.FileOutcome
}

// RunRecorder 保存批量转换结果
type RunRecorder interface {
	SaveRun(ctx context.Context, result *BatchResult) error
}

// BatchScheduler 驱动一次完整的目录转换：枚举、逐个转换、报告进度、汇总
type BatchScheduler struct {
	scanner   FileScanner
	converter FileConverter
	recorder  RunRecorder
	workers   int
	logger    zerolog.Logger
	runMutex  sync.Mutex // 同一实例上的批量任务串行执行
}

// NewBatchScheduler 创建 BatchScheduler。recorder 可以为 nil；workers 小于 1 时按 1 处理。
func NewBatchScheduler(s FileScanner, c FileConverter, recorder RunRecorder, workers int, logger zerolog.Logger) *BatchScheduler {
	if workers < 1 {
		workers = 1
	}
	return &BatchScheduler{
		scanner:   s,
		converter: c,
		recorder:  recorder,
		workers:   workers,
		logger:    logger.With().Str("component", "scheduler").Logger(),
	}
}

// RunBatch 转换 rootPath 下的全部候选文件。
// 只有枚举失败（如根目录不存在）会返回错误；单个文件失败只计入结果。
// ctx 取消后，剩余文件记为失败，事件序列仍然完整。
func (bs *BatchScheduler) RunBatch(ctx context.Context, rootPath string, d converter.Direction, onProgress ProgressFunc) (*BatchResult, error) {
	bs.runMutex.Lock()
	defer bs.runMutex.Unlock()

	if onProgress == nil {
		onProgress = func(ProgressEvent) {}
	}
	d = converter.ParseDirection(string(d))
	result := &BatchResult{
		RunID:     uuid.New().String(),
		RootPath:  rootPath,
		Direction: d,
		StartedAt: time.Now(),
	}
	logger := bs.logger.With().Str("run_id", result.RunID).Logger()

	scan, err := bs.scanner.Enumerate(ctx, rootPath)
	if err != nil {
		logger.Error().Err(err).Str("root", rootPath).Msg("Failed to enumerate files")
		return nil, errors.Errorf("enumerating files: %w", err)
	}
	for _, de := range scan.DirErrors {
		result.TraversalErrors = append(result.TraversalErrors, de.Path+": "+de.Err.Error())
	}

	files := scan.Files
	total := len(files)
	result.TotalCount = total
	result.Outcomes = make([]processor.FileOutcome, 0, total)
	logger.Info().Str("root", rootPath).Str("direction", d.String()).Int("total", total).Msg("Starting batch conversion")

	onProgress(ProgressEvent{Type: EventStart, Total: total})

	step := func(i int, outcome processor.FileOutcome) {
		result.Outcomes = append(result.Outcomes, outcome)
		if outcome.Success {
			result.SuccessCount++
		} else {
			result.FailedCount++
		}
		onProgress(ProgressEvent{
			Type:        EventStep,
			Current:     i + 1,
			Total:       total,
			Path:        files[i],
			Success:     outcome.Success,
			ErrorReason: outcome.ErrorReason,
		})
	}
	if bs.workers == 1 || total < 2 {
		for i, path := range files {
			step(i, bs.convertOne(ctx, path, d))
		}
	} else {
		bs.runParallel(ctx, files, d, step)
	}

	result.FinishedAt = time.Now()
	onProgress(ProgressEvent{
		Type:         EventComplete,
		Total:        total,
		SuccessCount: result.SuccessCount,
		FailedCount:  result.FailedCount,
	})
	logger.Info().
		Int("total", total).
		Int("success", result.SuccessCount).
		Int("failed", result.FailedCount).
		Dur("elapsed", result.FinishedAt.Sub(result.StartedAt)).
		Msg("Batch conversion completed")

	if bs.recorder != nil {
		if err := bs.recorder.SaveRun(context.WithoutCancel(ctx), result); err != nil {
			logger.Warn().Err(err).Msg("Failed to record batch run")
		}
	}
	return result, nil
}

func (bs *BatchScheduler) convertOne(ctx context.Context, path string, d converter.Direction) processor.FileOutcome {
	if err := ctx.Err(); err != nil {
		return processor.FileOutcome{Path: path, ErrorReason: err.Error()}
	}
	return bs.converter.ConvertFile(ctx, path, d)
}

// runParallel 最多 workers 个文件同时转换，但 step 仍按原始顺序在当前 goroutine 中调用
func (bs *BatchScheduler) runParallel(ctx context.Context, files []string, d converter.Direction, step func(int, processor.FileOutcome)) {
	outcomes := make([]processor.FileOutcome, len(files))
	done := make([]chan struct{}, len(files))
	for i := range done {
		done[i] = make(chan struct{})
	}

	var g errgroup.Group
	g.SetLimit(bs.workers)
	go func() {
		for i, path := range files {
			i, path := i, path
			g.Go(func() error {
				defer close(done[i])
				outcomes[i] = bs.convertOne(ctx, path, d)
				return nil
			})
		}
	}()

	for i := range files {
		<-done[i]
		step(i, outcomes[i])
	}
	_ = g.Wait()
}
