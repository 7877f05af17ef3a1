package scheduler

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/simplifiedchinese"

	"github.com/yleoer/zhconv/pkg/converter"
	"github.com/yleoer/zhconv/pkg/processor"
	"github.com/yleoer/zhconv/pkg/scanner"
)

type staticScanner struct {
	files []string
	err   error
}

func (s staticScanner) Enumerate(context.Context, string) (*scanner.ScanResult, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &scanner.ScanResult{Files: s.files}, nil
}

// fakeConverter 失败 failing 中的路径，并记录调用顺序
type fakeConverter struct {
	mu      sync.Mutex
	failing map[string]bool
	delay   func(path string) time.Duration
	calls   []string
}

func (f *fakeConverter) ConvertFile(_ context.Context, path string, _ converter.Direction) processor.FileOutcome {
	if f.delay != nil {
		time.Sleep(f.delay(path))
	}
	f.mu.Lock()
	f.calls = append(f.calls, path)
	f.mu.Unlock()
	if f.failing[path] {
		return processor.FileOutcome{Path: path, ErrorReason: "permission denied"}
	}
	return processor.FileOutcome{Path: path, Success: true, Changed: true}
}

type eventRecorder struct {
	events []ProgressEvent
}

func (r *eventRecorder) record(e ProgressEvent) {
	r.events = append(r.events, e)
}

type memoryRecorder struct {
	runs []*BatchResult
	err  error
}

func (m *memoryRecorder) SaveRun(_ context.Context, r *BatchResult) error {
	m.runs = append(m.runs, r)
	return m.err
}

func paths(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("f%02d.txt", i)
	}
	return out
}

// assertProtocol 检查 start → N×progress → complete 的事件顺序
func assertProtocol(t *testing.T, events []ProgressEvent, files []string, result *BatchResult) {
	t.Helper()
	n := len(files)
	require.Len(t, events, n+2)

	assert.Equal(t, ProgressEvent{Type: EventStart, Total: n}, events[0])
	for i := 0; i < n; i++ {
		e := events[i+1]
		assert.Equal(t, EventStep, e.Type)
		assert.Equal(t, i+1, e.Current)
		assert.Equal(t, n, e.Total)
		assert.Equal(t, files[i], e.Path)
		assert.Equal(t, result.Outcomes[i].Success, e.Success)
	}
	last := events[n+1]
	assert.Equal(t, EventComplete, last.Type)
	assert.Equal(t, n, last.Total)
	assert.Equal(t, result.SuccessCount, last.SuccessCount)
	assert.Equal(t, result.FailedCount, last.FailedCount)
	assert.Equal(t, last.Total, last.SuccessCount+last.FailedCount)

	assert.Equal(t, n, result.TotalCount)
	assert.Equal(t, result.TotalCount, result.SuccessCount+result.FailedCount)
	require.Len(t, result.Outcomes, n)
	for i, o := range result.Outcomes {
		assert.Equal(t, files[i], o.Path)
	}
}

func TestRunBatch_EmptyDirectory(t *testing.T) {
	rec := &eventRecorder{}
	bs := NewBatchScheduler(staticScanner{files: []string{}}, &fakeConverter{}, nil, 1, zerolog.Nop())

	result, err := bs.RunBatch(context.Background(), "root", converter.S2T, rec.record)
	require.NoError(t, err)

	assert.Equal(t, 0, result.TotalCount)
	assert.Equal(t, 0, result.SuccessCount)
	assert.Equal(t, 0, result.FailedCount)
	assert.Empty(t, result.Outcomes)
	assert.Equal(t, []ProgressEvent{
		{Type: EventStart, Total: 0},
		{Type: EventComplete, Total: 0},
	}, rec.events)
}

func TestRunBatch_AllSucceed(t *testing.T) {
	files := paths(3)
	rec := &eventRecorder{}
	conv := &fakeConverter{}
	bs := NewBatchScheduler(staticScanner{files: files}, conv, nil, 1, zerolog.Nop())

	result, err := bs.RunBatch(context.Background(), "root", converter.S2T, rec.record)
	require.NoError(t, err)

	assertProtocol(t, rec.events, files, result)
	assert.Equal(t, 3, result.SuccessCount)
	assert.Equal(t, 0, result.FailedCount)
	assert.Equal(t, 3, result.ChangedCount())
	assert.Equal(t, files, conv.calls)
	assert.NotEmpty(t, result.RunID)
	assert.False(t, result.FinishedAt.Before(result.StartedAt))
}

func TestRunBatch_FailuresAreNotFatal(t *testing.T) {
	files := paths(4)
	rec := &eventRecorder{}
	conv := &fakeConverter{failing: map[string]bool{files[1]: true, files[3]: true}}
	bs := NewBatchScheduler(staticScanner{files: files}, conv, nil, 1, zerolog.Nop())

	result, err := bs.RunBatch(context.Background(), "root", converter.T2S, rec.record)
	require.NoError(t, err)

	assertProtocol(t, rec.events, files, result)
	assert.Equal(t, 2, result.SuccessCount)
	assert.Equal(t, 2, result.FailedCount)
	failures := result.Failures()
	require.Len(t, failures, 2)
	assert.Equal(t, files[1], failures[0].Path)
	assert.NotEmpty(t, failures[0].ErrorReason)
	assert.Equal(t, "permission denied", rec.events[2].ErrorReason)
}

func TestRunBatch_EveryFileFails(t *testing.T) {
	files := paths(2)
	conv := &fakeConverter{failing: map[string]bool{files[0]: true, files[1]: true}}
	bs := NewBatchScheduler(staticScanner{files: files}, conv, nil, 1, zerolog.Nop())

	result, err := bs.RunBatch(context.Background(), "root", converter.S2T, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, result.FailedCount)
	assert.Equal(t, 0, result.SuccessCount)
}

func TestRunBatch_EnumerationErrorIsReturned(t *testing.T) {
	rec := &eventRecorder{}
	bs := NewBatchScheduler(staticScanner{err: os.ErrNotExist}, &fakeConverter{}, nil, 1, zerolog.Nop())

	result, err := bs.RunBatch(context.Background(), "missing", converter.S2T, rec.record)
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
	assert.Nil(t, result)
	assert.Empty(t, rec.events)
}

func TestRunBatch_ParallelKeepsOrder(t *testing.T) {
	files := paths(20)
	rec := &eventRecorder{}
	conv := &fakeConverter{
		failing: map[string]bool{files[5]: true},
		// 前面的文件更慢，完成顺序与遍历顺序相反
		delay: func(path string) time.Duration {
			for i, f := range files {
				if f == path {
					return time.Duration(len(files)-i) * time.Millisecond
				}
			}
			return 0
		},
	}
	bs := NewBatchScheduler(staticScanner{files: files}, conv, nil, 4, zerolog.Nop())

	result, err := bs.RunBatch(context.Background(), "root", converter.S2T, rec.record)
	require.NoError(t, err)

	assertProtocol(t, rec.events, files, result)
	assert.Equal(t, 19, result.SuccessCount)
	assert.Equal(t, 1, result.FailedCount)
	assert.Len(t, conv.calls, 20)
}

func TestRunBatch_CancelBetweenFiles(t *testing.T) {
	files := paths(5)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	rec := &eventRecorder{}
	conv := &fakeConverter{}
	bs := NewBatchScheduler(staticScanner{files: files}, conv, nil, 1, zerolog.Nop())

	result, err := bs.RunBatch(ctx, "root", converter.S2T, func(e ProgressEvent) {
		rec.record(e)
		if e.Type == EventStep && e.Current == 2 {
			cancel()
		}
	})
	require.NoError(t, err)

	assertProtocol(t, rec.events, files, result)
	assert.Equal(t, 2, result.SuccessCount)
	assert.Equal(t, 3, result.FailedCount)
	assert.Equal(t, files[:2], conv.calls)
	assert.Equal(t, context.Canceled.Error(), result.Outcomes[4].ErrorReason)
}

func TestRunBatch_RecordsRun(t *testing.T) {
	rec := &memoryRecorder{err: assert.AnError}
	bs := NewBatchScheduler(staticScanner{files: paths(2)}, &fakeConverter{}, rec, 1, zerolog.Nop())

	result, err := bs.RunBatch(context.Background(), "root", converter.S2T, nil)
	require.NoError(t, err, "recorder failures are logged, not returned")
	require.Len(t, rec.runs, 1)
	assert.Same(t, result, rec.runs[0])
}

func writeFiles(t *testing.T, root string, files map[string][]byte) {
	t.Helper()
	for name, data := range files {
		path := filepath.Join(root, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, data, 0o644))
	}
}

func newPipeline(t *testing.T) *BatchScheduler {
	t.Helper()
	s2t := strings.NewReplacer("简", "簡", "体", "體", "坏", "😀")
	adapter, err := converter.NewAdapter(
		converter.ConverterFunc(func(s string) (string, error) { return s2t.Replace(s), nil }),
		converter.ConverterFunc(func(s string) (string, error) { return s, nil }),
	)
	require.NoError(t, err)
	ts, err := scanner.NewTreeScanner(scanner.NewClassifier(), scanner.Options{}, zerolog.Nop())
	require.NoError(t, err)
	return NewBatchScheduler(ts, processor.NewFileProcessor(adapter, false, zerolog.Nop()), nil, 1, zerolog.Nop())
}

func TestRunBatch_Filesystem(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, map[string][]byte{
		"a.md":           []byte("简体"),
		"src/b.go":       []byte("// 简体"),
		"src/c.json":     []byte(`{"k":"体"}`),
		"logo.png":       []byte("简体"),
		".git/HEAD.txt":  []byte("简体"),
		"node_modules/x": []byte("简体"),
	})

	rec := &eventRecorder{}
	result, err := newPipeline(t).RunBatch(context.Background(), root, converter.ParseDirection("xx"), rec.record)
	require.NoError(t, err)

	assert.Equal(t, 3, result.TotalCount)
	assert.Equal(t, 3, result.SuccessCount)
	assert.Equal(t, ProgressEvent{Type: EventComplete, Total: 3, SuccessCount: 3}, rec.events[len(rec.events)-1])

	data, err := os.ReadFile(filepath.Join(root, "src", "b.go"))
	require.NoError(t, err)
	assert.Equal(t, "// 簡體", string(data))
	untouched, err := os.ReadFile(filepath.Join(root, ".git", "HEAD.txt"))
	require.NoError(t, err)
	assert.Equal(t, "简体", string(untouched))
}

func TestRunBatch_FilesystemOneFailure(t *testing.T) {
	root := t.TempDir()
	// GBK 文件转换后包含 GBK 无法表示的字符，写回失败
	bad, err := simplifiedchinese.GBK.NewEncoder().Bytes([]byte("坏简体"))
	require.NoError(t, err)
	writeFiles(t, root, map[string][]byte{
		"good.txt": []byte("简体"),
		"bad.txt":  bad,
	})

	rec := &eventRecorder{}
	result, err := newPipeline(t).RunBatch(context.Background(), root, converter.S2T, rec.record)
	require.NoError(t, err)

	assert.Equal(t, ProgressEvent{Type: EventComplete, Total: 2, SuccessCount: 1, FailedCount: 1}, rec.events[len(rec.events)-1])
	failures := result.Failures()
	require.Len(t, failures, 1)
	assert.Equal(t, filepath.Join(root, "bad.txt"), failures[0].Path)
	assert.NotEmpty(t, failures[0].ErrorReason)
}

func TestRunBatch_FilesystemReadOnlyFile(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("permission bits are not enforced for root")
	}
	root := t.TempDir()
	writeFiles(t, root, map[string][]byte{
		"a.txt": []byte("简体"),
		"b.txt": []byte("hello"),
	})
	// 内容无需转换，但写回失败仍算失败
	locked := filepath.Join(root, "b.txt")
	require.NoError(t, os.Chmod(locked, 0o444))

	result, err := newPipeline(t).RunBatch(context.Background(), root, converter.S2T, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, result.TotalCount)
	assert.Equal(t, 1, result.SuccessCount)
	assert.Equal(t, 1, result.FailedCount)
	assert.NotEmpty(t, result.Failures()[0].ErrorReason)
}

// vanishingScanner 在枚举结束后删除一个文件，模拟扫描与转换之间文件被移走
type vanishingScanner struct {
	*scanner.TreeScanner
	remove string
}

func (v vanishingScanner) Enumerate(ctx context.Context, root string) (*scanner.ScanResult, error) {
	res, err := v.TreeScanner.Enumerate(ctx, root)
	if err != nil {
		return nil, err
	}
	return res, os.Remove(v.remove)
}

func TestRunBatch_FilesystemFileRemovedAfterScan(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, map[string][]byte{
		"a.txt": []byte("简体"),
		"b.txt": []byte("简体"),
	})
	pipeline := newPipeline(t)
	ts := pipeline.scanner.(*scanner.TreeScanner)
	pipeline.scanner = vanishingScanner{TreeScanner: ts, remove: filepath.Join(root, "b.txt")}

	rec := &eventRecorder{}
	result, err := pipeline.RunBatch(context.Background(), root, converter.S2T, rec.record)
	require.NoError(t, err)
	assert.Equal(t, 2, result.TotalCount)
	assert.Equal(t, 1, result.SuccessCount)
	assert.Equal(t, 1, result.FailedCount)
	require.Len(t, result.Failures(), 1)
	assert.Equal(t, filepath.Join(root, "b.txt"), result.Failures()[0].Path)
	assert.NotEmpty(t, result.Failures()[0].ErrorReason)

	got, err := os.ReadFile(filepath.Join(root, "a.txt"))
	require.NoError(t, err)
	assert.Equal(t, "簡體", string(got))
}

func TestRunBatch_MissingRoot(t *testing.T) {
	_, err := newPipeline(t).RunBatch(context.Background(), filepath.Join(t.TempDir(), "missing"), converter.S2T, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}
