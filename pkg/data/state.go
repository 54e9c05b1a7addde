package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

var stateQueries = map[string]string{
	"runs":       "SELECT COUNT(*) FROM run",
	"items":      "SELECT COUNT(*) FROM run_item",
	"no_match":   "SELECT COUNT(*) FROM run WHERE no_match = 1",
	"algorithms": "SELECT COUNT(DISTINCT top_key) FROM run WHERE top_key <> ''",
}

// TopAlgorithm is how often an algorithm was the best recommendation.
type TopAlgorithm struct {
	Algorithm string  `json:"algorithm" yaml:"algorithm"`
	Runs      int64   `json:"runs" yaml:"runs"`
	AvgScore  float64 `json:"avgScore" yaml:"avgScore"`
}

const selectTopAlgorithms = `SELECT top_key, COUNT(*), AVG(top_score)
	FROM run WHERE top_key <> ''
	GROUP BY top_key
	ORDER BY COUNT(*) DESC, top_key
	LIMIT ?`

// GetDataState returns the row counts of the history store.
func GetDataState(ctx context.Context, db *sql.DB) (map[string]int64, error) {
	if db == nil {
		return nil, errDBNotInitialized
	}

	state := make(map[string]int64)
	for k, v := range stateQueries {
		count, err := getCount(ctx, db, v)
		if err != nil {
			return nil, fmt.Errorf("error getting %s count: %w", k, err)
		}
		state[k] = count
	}

	return state, nil
}

// GetTopAlgorithms returns the algorithms most often ranked first.
func GetTopAlgorithms(ctx context.Context, db *sql.DB, limit int) ([]*TopAlgorithm, error) {
	if db == nil {
		return nil, errDBNotInitialized
	}
	if limit <= 0 {
		limit = DefaultListLimit
	}

	rows, err := db.QueryContext(ctx, rebind(db, selectTopAlgorithms), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query top algorithms: %w", err)
	}
	defer rows.Close()

	list := make([]*TopAlgorithm, 0)
	for rows.Next() {
		t := &TopAlgorithm{}
		if err := rows.Scan(&t.Algorithm, &t.Runs, &t.AvgScore); err != nil {
			return nil, fmt.Errorf("failed to scan top algorithm: %w", err)
		}
		list = append(list, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read top algorithms: %w", err)
	}

	return list, nil
}

func getCount(ctx context.Context, db *sql.DB, q string) (int64, error) {
	var count int64
	if err := db.QueryRowContext(ctx, q).Scan(&count); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to scan row: %w", err)
	}
	return count, nil
}
