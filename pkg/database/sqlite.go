package database

import (
	"context"
	"database/sql"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"

	"github.com/yleoer/zhconv/pkg/processor"
	"github.com/yleoer/zhconv/pkg/scheduler"
	"github.com/yleoer/zhconv/pkg/util"
)

// sqliteStore 是 RunStore 接口的 SQLite 实现
type sqliteStore struct {
	db     *sql.DB
	logger zerolog.Logger
}

const createTablesSQL = `
	CREATE TABLE IF NOT EXISTS batch_runs (
		id TEXT PRIMARY KEY,
		root_path TEXT NOT NULL,
		direction TEXT NOT NULL,
		total INTEGER NOT NULL,
		success INTEGER NOT NULL,
		failed INTEGER NOT NULL,
		started_at DATETIME NOT NULL,
		finished_at DATETIME NOT NULL
	);
	CREATE TABLE IF NOT EXISTS run_outcomes (
		run_id TEXT NOT NULL REFERENCES batch_runs(id) ON DELETE CASCADE,
		seq INTEGER NOT NULL,
		path TEXT NOT NULL,
		success INTEGER NOT NULL,
		changed INTEGER NOT NULL,
		encoding TEXT NOT NULL DEFAULT '',
		error_reason TEXT NOT NULL DEFAULT '',
		PRIMARY KEY (run_id, seq)
	);
	`

// NewSQLiteStore 初始化 SQLite 数据库并返回 RunStore 接口实例
func NewSQLiteStore(dataSourceName string, logger zerolog.Logger) (RunStore, error) {
	db, err := sql.Open("sqlite3", dataSourceName)
	if err != nil {
		return nil, errors.Errorf("opening SQLite database: %w", err)
	}
	// 尝试创建表，如果不存在
	if _, err := db.Exec(createTablesSQL); err != nil {
		db.Close() // 创建表失败也要关闭连接
		return nil, errors.Errorf("creating history tables: %w", err)
	}
	logger = logger.With().Str("component", "history").Logger()
	logger.Debug().Str("path", dataSourceName).Msg("SQLite history database initialized")
	return &sqliteStore{db: db, logger: logger}, nil
}

// Close 关闭数据库连接
func (s *sqliteStore) Close() error {
	if s.db != nil {
		err := s.db.Close()
		s.logger.Debug().Msg("SQLite database connection closed")
		return err
	}
	return nil
}

// SaveRun 在一个事务中写入汇总和逐文件结果
func (s *sqliteStore) SaveRun(ctx context.Context, r *scheduler.BatchResult) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Errorf("beginning transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO batch_runs (id, root_path, direction, total, success, failed, started_at, finished_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		r.RunID, r.RootPath, r.Direction.String(), r.TotalCount, r.SuccessCount, r.FailedCount, r.StartedAt, r.FinishedAt)
	if err != nil {
		return errors.Errorf("inserting run %s: %w", r.RunID, err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO run_outcomes (run_id, seq, path, success, changed, encoding, error_reason) VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return errors.Errorf("preparing outcome insert: %w", err)
	}
	defer stmt.Close()
	for i, o := range r.Outcomes {
		if _, err = stmt.ExecContext(ctx, r.RunID, i, o.Path, o.Success, o.Changed, string(o.Encoding), o.ErrorReason); err != nil {
			return errors.Errorf("inserting outcome for %s: %w", o.Path, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return errors.Errorf("committing run %s: %w", r.RunID, err)
	}
	s.logger.Debug().Str("run_id", r.RunID).Int("outcomes", len(r.Outcomes)).Msg("Batch run recorded")
	return nil
}

// ListRuns 按开始时间倒序返回最多 limit 条记录，limit <= 0 时返回全部
func (s *sqliteStore) ListRuns(ctx context.Context, limit int) ([]RunSummary, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, root_path, direction, total, success, failed, started_at, finished_at
		 FROM batch_runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, errors.Errorf("listing runs: %w", err)
	}
	defer rows.Close()

	var runs []RunSummary
	for rows.Next() {
		var r RunSummary
		if err := rows.Scan(&r.RunID, &r.RootPath, &r.Direction, &r.TotalCount, &r.SuccessCount, &r.FailedCount, &r.StartedAt, &r.FinishedAt); err != nil {
			return nil, errors.Errorf("scanning run: %w", err)
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Errorf("iterating runs: %w", err)
	}
	return runs, nil
}

// GetOutcomes 返回某次转换的逐文件结果
func (s *sqliteStore) GetOutcomes(ctx context.Context, runID string) ([]processor.FileOutcome, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT path, success, changed, encoding, error_reason FROM run_outcomes WHERE run_id = ? ORDER BY seq`, runID)
	if err != nil {
		return nil, errors.Errorf("querying outcomes for %s: %w", runID, err)
	}
	defer rows.Close()

	var outcomes []processor.FileOutcome
	for rows.Next() {
		var (
			o   processor.FileOutcome
			enc string
		)
		if err := rows.Scan(&o.Path, &o.Success, &o.Changed, &enc, &o.ErrorReason); err != nil {
			return nil, errors.Errorf("scanning outcome: %w", err)
		}
		o.Encoding = util.Encoding(enc)
		outcomes = append(outcomes, o)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Errorf("iterating outcomes: %w", err)
	}
	return outcomes, nil
}
