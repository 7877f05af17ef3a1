package database

import (
	"context"
	"time"

	"github.com/yleoer/zhconv/pkg/processor"
	"github.com/yleoer/zhconv/pkg/scheduler"
)

// RunSummary 一次批量转换的汇总记录
type RunSummary struct {
	RunID        string
	RootPath     string
	Direction    string
	TotalCount   int
	SuccessCount int
	FailedCount  int
	StartedAt    time.Time
	FinishedAt   time.Time
}

// RunStore 定义批量转换历史的存储接口
type RunStore interface {
	SaveRun(ctx context.Context, result *scheduler.BatchResult) error               // 保存一次批量转换及其逐文件结果
	ListRuns(ctx context.Context, limit int) ([]RunSummary, error)                  // 按开始时间倒序列出最近的批量转换
	GetOutcomes(ctx context.Context, runID string) ([]processor.FileOutcome, error) // 按遍历顺序返回某次转换的逐文件结果
	Close() error                                                                   // 关闭数据库连接
}
