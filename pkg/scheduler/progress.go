package scheduler

import (
	"time"

	"github.com/yleoer/zhconv/pkg/converter"
	"github.com/yleoer/zhconv/pkg/processor"
)

// EventType 区分进度事件
type EventType string

const (
	EventStart    EventType = "start"
	EventStep     EventType = "progress"
	EventComplete EventType = "complete"
)

// ProgressEvent 一次批量转换的进度事件。
// 顺序固定：一个 start，每个候选文件一个 progress，最后一个 complete。
type ProgressEvent struct {
	Type         EventType `json:"type"`
	Current      int       `json:"current,omitempty"` // 从 1 开始，仅 progress
	Total        int       `json:"total"`
	Path         string    `json:"file,omitempty"`
	Success      bool      `json:"success,omitempty"`
	ErrorReason  string    `json:"error,omitempty"`
	SuccessCount int       `json:"success_count,omitempty"` // 仅 complete
	FailedCount  int       `json:"failed_count,omitempty"`  // 仅 complete
}

// ProgressFunc 接收进度事件，在 RunBatch 的调用 goroutine 中同步调用
type ProgressFunc func(ProgressEvent)

// BatchResult 一次批量转换的最终结果，返回后归调用方所有
type BatchResult struct {
	RunID           string                  `json:"run_id"`
	RootPath        string                  `json:"root_path"`
	Direction       converter.Direction     `json:"direction"`
	TotalCount      int                     `json:"total"`
	SuccessCount    int                     `json:"success_count"`
	FailedCount     int                     `json:"failed_count"`
	Outcomes        []processor.FileOutcome `json:"outcomes"`
	TraversalErrors []string                `json:"traversal_errors,omitempty"`
	StartedAt       time.Time               `json:"started_at"`
	FinishedAt      time.Time               `json:"finished_at"`
}

// ChangedCount 返回实际被改写的文件数
func (r *BatchResult) ChangedCount() int {
	n := 0
	for _, o := range r.Outcomes {
		if o.Changed {
			n++
		}
	}
	return n
}

// Failures 返回失败的结果，顺序与遍历顺序一致
func (r *BatchResult) Failures() []processor.FileOutcome {
	var failed []processor.FileOutcome
	for _, o := range r.Outcomes {
		if !o.Success {
			failed = append(failed, o)
		}
	}
	return failed
}
