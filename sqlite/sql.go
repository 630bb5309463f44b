package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/hoshinonyaruko/stack-in-im/structs"
	_ "github.com/mattn/go-sqlite3"
)

const createResultsTableSQL = `
CREATE TABLE IF NOT EXISTS Results (
    ID TEXT PRIMARY KEY,
    OpenID TEXT NOT NULL,
    Score INTEGER NOT NULL,
    Prize TEXT,
    PlayedAt INTEGER NOT NULL
);
`

const createResultsIndexSQL = `
CREATE INDEX IF NOT EXISTS idx_results_openid ON Results (OpenID, PlayedAt);
`

// Store 用 sqlite 保存成绩
type Store struct {
	db *sql.DB
}

// Open 打开（或创建）数据库文件并建表
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}
	if err := InitializeDatabase(db); err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

func executeSQL(db *sql.DB, sqlStatement string) error {
	if _, err := db.Exec(sqlStatement); err != nil {
		return fmt.Errorf("executing SQL statement %q: %w", sqlStatement, err)
	}
	return nil
}

func InitializeDatabase(db *sql.DB) error {
	for _, stmt := range []string{createResultsTableSQL, createResultsIndexSQL} {
		if err := executeSQL(db, stmt); err != nil {
			return err
		}
	}
	return nil
}

// SaveResult 写入一条成绩
func (s *Store) SaveResult(ctx context.Context, result structs.GameResult) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx, "INSERT OR REPLACE INTO Results (ID, OpenID, Score, Prize, PlayedAt) VALUES (?, ?, ?, ?, ?)",
		result.ID, result.PlayerID, result.Score, result.Prize, result.PlayedAt.UnixNano())
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("insert result %s: %w", result.ID, err)
	}

	return tx.Commit()
}

// ResultsByPlayer 查询玩家的全部成绩，新的在前
func (s *Store) ResultsByPlayer(ctx context.Context, playerID string) ([]structs.GameResult, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT ID, OpenID, Score, Prize, PlayedAt FROM Results WHERE OpenID = ? ORDER BY PlayedAt DESC", playerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []structs.GameResult
	for rows.Next() {
		var (
			r      structs.GameResult
			prize  sql.NullString
			played int64
		)
		if err := rows.Scan(&r.ID, &r.PlayerID, &r.Score, &prize, &played); err != nil {
			return nil, err
		}
		r.Prize = prize.String
		r.PlayedAt = time.Unix(0, played)
		results = append(results, r)
	}
	return results, rows.Err()
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}
