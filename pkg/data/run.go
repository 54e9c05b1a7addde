package data

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mchmarny/cryptorec/pkg/rank"
	"github.com/mchmarny/cryptorec/pkg/score"
)

const (
	// DefaultListLimit is the number of runs ListRuns returns when limit is not set.
	DefaultListLimit = 20
	maxListLimit     = 1000

	insertRun = `INSERT INTO run (id, created_at, kb_source, requirements, threshold, item_limit, top_key, top_score, no_match)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO NOTHING`

	insertRunItem = `INSERT INTO run_item (run_id, item_order, algorithm, score, display, reason)
		VALUES (?, ?, ?, ?, ?, ?)`

	selectRun = `SELECT id, created_at, kb_source, requirements, threshold, item_limit, top_key, top_score, no_match
		FROM run WHERE id = ?`

	selectRunItems = `SELECT item_order, algorithm, score, display, reason
		FROM run_item WHERE run_id = ? ORDER BY item_order`

	selectRuns = `SELECT id, created_at, kb_source, requirements, threshold, item_limit, top_key, top_score, no_match
		FROM run ORDER BY created_at DESC, id LIMIT ?`

	deleteRunItems = `DELETE FROM run_item`
	deleteRuns     = `DELETE FROM run`
)

var (
	// ErrRunNotFound is returned when a run ID does not exist.
	ErrRunNotFound = errors.New("run not found")
	// ErrRunExists is returned when saving a run whose ID is already stored.
	ErrRunExists = errors.New("run already exists")
)

// Run is a persisted recommendation.
type Run struct {
	ID           string              `json:"id" yaml:"id"`
	CreatedAt    time.Time           `json:"createdAt" yaml:"createdAt"`
	Source       string              `json:"source" yaml:"source"`
	Requirements *score.Requirements `json:"requirements" yaml:"requirements"`
	Threshold    int                 `json:"threshold" yaml:"threshold"`
	Limit        int                 `json:"limit" yaml:"limit"`
	TopKey       string              `json:"topKey,omitempty" yaml:"topKey,omitempty"`
	TopScore     int                 `json:"topScore" yaml:"topScore"`
	NoMatch      bool                `json:"noMatch" yaml:"noMatch"`
	Items        []*RunItem          `json:"items,omitempty" yaml:"items,omitempty"`
}

// RunItem is one ranked algorithm of a Run.
type RunItem struct {
	Order     int    `json:"order" yaml:"order"`
	Algorithm string `json:"algorithm" yaml:"algorithm"`
	Score     int    `json:"score" yaml:"score"`
	Display   int    `json:"display" yaml:"display"`
	Reason    string `json:"reason,omitempty" yaml:"reason,omitempty"`
}

// NewRun captures rec as a Run with a new ID.
func NewRun(rec *rank.Recommendation) *Run {
	r := &Run{
		ID:        uuid.NewString(),
		CreatedAt: time.Now().UTC(),
		Items:     make([]*RunItem, 0),
	}
	if rec == nil {
		r.NoMatch = true
		return r
	}

	r.Source = rec.Source
	r.Requirements = rec.Requirements
	r.Threshold = rec.Options.Threshold
	r.Limit = rec.Options.Limit
	r.NoMatch = rec.NoMatch

	for i, it := range rec.Items {
		r.Items = append(r.Items, &RunItem{
			Order:     i + 1,
			Algorithm: it.Key,
			Score:     it.Score,
			Display:   it.Display,
			Reason:    it.Reason,
		})
	}
	if top := rec.Top(); top != nil {
		r.TopKey = top.Key
		r.TopScore = top.Score
	}

	return r
}

// SaveRun stores r and its items in a single transaction.
func SaveRun(ctx context.Context, db *sql.DB, r *Run) error {
	if db == nil {
		return errDBNotInitialized
	}
	if r == nil || r.ID == "" {
		return errors.New("run with ID required")
	}

	req, err := json.Marshal(r.Requirements)
	if err != nil {
		return fmt.Errorf("error marshaling requirements: %w", err)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	res, err := tx.ExecContext(ctx, rebind(db, insertRun),
		r.ID, r.CreatedAt.UnixMilli(), r.Source, string(req), r.Threshold, r.Limit,
		r.TopKey, r.TopScore, boolToInt(r.NoMatch))
	if err != nil {
		rollbackTransaction(tx)
		return fmt.Errorf("failed to insert run %s: %w", r.ID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		rollbackTransaction(tx)
		return fmt.Errorf("%s: %w", r.ID, ErrRunExists)
	}

	itemStmt, err := tx.PrepareContext(ctx, rebind(db, insertRunItem))
	if err != nil {
		rollbackTransaction(tx)
		return fmt.Errorf("failed to prepare run item insert statement: %w", err)
	}
	defer itemStmt.Close()

	for _, it := range r.Items {
		if _, err := itemStmt.ExecContext(ctx, r.ID, it.Order, it.Algorithm, it.Score, it.Display, it.Reason); err != nil {
			rollbackTransaction(tx)
			return fmt.Errorf("failed to insert run item %s/%d: %w", r.ID, it.Order, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit run %s: %w", r.ID, err)
	}

	return nil
}

// GetRun returns the run with id including its items.
func GetRun(ctx context.Context, db *sql.DB, id string) (*Run, error) {
	if db == nil {
		return nil, errDBNotInitialized
	}

	r, err := scanRun(db.QueryRowContext(ctx, rebind(db, selectRun), id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", id, ErrRunNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run %s: %w", id, err)
	}

	rows, err := db.QueryContext(ctx, rebind(db, selectRunItems), id)
	if err != nil {
		return nil, fmt.Errorf("failed to query run items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		it := &RunItem{}
		if err := rows.Scan(&it.Order, &it.Algorithm, &it.Score, &it.Display, &it.Reason); err != nil {
			return nil, fmt.Errorf("failed to scan run item: %w", err)
		}
		r.Items = append(r.Items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read run items: %w", err)
	}

	return r, nil
}

// ListRuns returns the most recent runs, newest first, without items.
func ListRuns(ctx context.Context, db *sql.DB, limit int) ([]*Run, error) {
	if db == nil {
		return nil, errDBNotInitialized
	}
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}

	rows, err := db.QueryContext(ctx, rebind(db, selectRuns), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	list := make([]*Run, 0)
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		list = append(list, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read runs: %w", err)
	}

	return list, nil
}

// DeleteRuns removes every saved run and returns how many there were.
func DeleteRuns(ctx context.Context, db *sql.DB) (int64, error) {
	if db == nil {
		return 0, errDBNotInitialized
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}

	if _, err := tx.ExecContext(ctx, deleteRunItems); err != nil {
		rollbackTransaction(tx)
		return 0, fmt.Errorf("failed to delete run items: %w", err)
	}

	res, err := tx.ExecContext(ctx, deleteRuns)
	if err != nil {
		rollbackTransaction(tx)
		return 0, fmt.Errorf("failed to delete runs: %w", err)
	}

	n, err := affected(res)
	if err != nil {
		rollbackTransaction(tx)
		return 0, err
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit delete: %w", err)
	}

	return n, nil
}

func affected(res sql.Result) (int64, error) {
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get deleted run count: %w", err)
	}
	return n, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(s scanner) (*Run, error) {
	var (
		r       = &Run{Items: make([]*RunItem, 0)}
		created int64
		req     string
		noMatch int
	)
	if err := s.Scan(&r.ID, &created, &r.Source, &req, &r.Threshold, &r.Limit, &r.TopKey, &r.TopScore, &noMatch); err != nil {
		return nil, err
	}

	r.CreatedAt = time.UnixMilli(created).UTC()
	r.NoMatch = noMatch != 0
	r.Requirements = &score.Requirements{}
	if err := json.Unmarshal([]byte(req), r.Requirements); err != nil {
		return nil, fmt.Errorf("error decoding requirements of run %s: %w", r.ID, err)
	}

	return r, nil
}

func boolToInt(v bool) int {
	if v {
		return 1
	}
	return 0
}
