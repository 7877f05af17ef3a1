package main

import (
	"fmt"
	"io"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/pterm/pterm"
	"gitlab.com/tozd/go/errors"

	"github.com/yleoer/zhconv/pkg/scheduler"
)

const (
	progressBar   = "bar"
	progressLines = "lines"
	progressNone  = "none"
)

var (
	okMark   = color.New(color.FgGreen).Sprint("✓")
	failMark = color.New(color.FgRed).Sprint("✗")
	faint    = color.New(color.Faint)
)

// newProgressFunc 根据模式返回进度事件的渲染函数
func newProgressFunc(mode string, out io.Writer) (scheduler.ProgressFunc, error) {
	switch mode {
	case progressBar:
		r := &barReporter{out: out}
		return r.handle, nil
	case progressLines:
		r := &lineReporter{out: out}
		return r.handle, nil
	case progressNone:
		return nil, nil
	default:
		return nil, errors.Errorf("unknown progress mode %q (want %s, %s or %s)", mode, progressBar, progressLines, progressNone)
	}
}

// barReporter 用 pterm 进度条展示进度
type barReporter struct {
	out io.Writer
	bar *pterm.ProgressbarPrinter
}

func (r *barReporter) handle(e scheduler.ProgressEvent) {
	switch e.Type {
	case scheduler.EventStart:
		if e.Total == 0 {
			return
		}
		bar, err := pterm.DefaultProgressbar.WithTotal(e.Total).WithTitle("Converting").WithWriter(r.out).Start()
		if err == nil {
			r.bar = bar
		}
	case scheduler.EventStep:
		if r.bar != nil {
			r.bar.UpdateTitle(filepath.Base(e.Path))
			r.bar.Increment()
		}
	case scheduler.EventComplete:
		if r.bar != nil {
			_, _ = r.bar.Stop()
			r.bar = nil
		}
	}
}

// lineReporter 每个文件输出一行
type lineReporter struct {
	out io.Writer
}

func (r *lineReporter) handle(e scheduler.ProgressEvent) {
	switch e.Type {
	case scheduler.EventStart:
		faint.Fprintf(r.out, "found %d convertible files\n", e.Total)
	case scheduler.EventStep:
		width := len(fmt.Sprint(e.Total))
		if e.Success {
			fmt.Fprintf(r.out, "%s [%*d/%d] %s\n", okMark, width, e.Current, e.Total, e.Path)
		} else {
			fmt.Fprintf(r.out, "%s [%*d/%d] %s: %s\n", failMark, width, e.Current, e.Total, e.Path, e.ErrorReason)
		}
	}
}

// printSummary 输出批量转换汇总和失败明细
func printSummary(out io.Writer, r *scheduler.BatchResult) {
	fmt.Fprintf(out, "\n%s %s\n", color.New(color.Bold, color.FgCyan).Sprint("zhconv"), faint.Sprint("• "+r.RootPath+" ("+r.Direction.String()+")"))
	fmt.Fprintf(out, "  total     %d\n", r.TotalCount)
	fmt.Fprintf(out, "  success   %s (%d changed)\n", color.GreenString("%d", r.SuccessCount), r.ChangedCount())
	if r.FailedCount > 0 {
		fmt.Fprintf(out, "  failed    %s\n", color.RedString("%d", r.FailedCount))
		for _, o := range r.Failures() {
			fmt.Fprintf(out, "    %s %s: %s\n", failMark, o.Path, o.ErrorReason)
		}
	} else {
		fmt.Fprintf(out, "  failed    %d\n", r.FailedCount)
	}
	if len(r.TraversalErrors) > 0 {
		fmt.Fprintf(out, "  %s\n", color.YellowString("unreadable directories (skipped):"))
		for _, e := range r.TraversalErrors {
			fmt.Fprintf(out, "    - %s\n", e)
		}
	}
	faint.Fprintf(out, "  run %s\n", r.RunID)
}
