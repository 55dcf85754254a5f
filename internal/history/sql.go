package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/cardiopredict-server/internal/domain"
)

// Distribution dimensions of the analysis_distribution table.
const (
	dimensionAlgorithm = "algorithm"
	dimensionRisk      = "risk"
)

// sqlCatalog holds the queries shared by the SQLite and PostgreSQL stores.
// Queries are written with ? placeholders and rebound for numbered dialects.
type sqlCatalog struct {
	db       *sql.DB
	numbered bool
}

// scanner is an interface for sql.Row and sql.Rows
type scanner interface {
	Scan(dest ...interface{}) error
}

func (c *sqlCatalog) rebind(query string) string {
	if !c.numbered {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// scanEntry scans a row into a HistoryEntry.
func scanEntry(s scanner) (*domain.HistoryEntry, error) {
	e := &domain.HistoryEntry{}
	var algorithmID, riskLevel string
	var date time.Time

	err := s.Scan(&e.ID, &date, &e.FileName, &algorithmID, &e.Algorithm, &e.Accuracy, &e.Result, &riskLevel)
	if err != nil {
		return nil, err
	}

	e.Date = date.UTC()
	if e.AlgorithmID, err = domain.ParseAlgorithm(algorithmID); err != nil {
		return nil, fmt.Errorf("entry %d: %w", e.ID, err)
	}
	if e.RiskLevel, err = domain.ParseHistoryRiskLevel(riskLevel); err != nil {
		return nil, fmt.Errorf("entry %d: %w", e.ID, err)
	}
	return e, nil
}

const selectEntries = `
	SELECT id, analyzed_on, file_name, algorithm_id, algorithm_name, accuracy, result, risk_level
	FROM analysis_history`

func (c *sqlCatalog) list(ctx context.Context, filter domain.HistoryFilter) ([]domain.HistoryEntry, error) {
	filter = normalizeFilter(filter)

	var where []string
	var args []interface{}
	if filter.RiskLevel != "" {
		where = append(where, "risk_level = ?")
		args = append(args, string(filter.RiskLevel))
	}
	if filter.Algorithm.IsValid() {
		where = append(where, "algorithm_id = ?")
		args = append(args, filter.Algorithm.ID())
	}

	query := selectEntries
	if len(where) > 0 {
		query += "\n\tWHERE " + strings.Join(where, " AND ")
	}
	query += "\n\tORDER BY analyzed_on DESC, id DESC\n\tLIMIT ? OFFSET ?"
	args = append(args, filter.Limit, filter.Offset)

	rows, err := c.db.QueryContext(ctx, c.rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer rows.Close()

	result := []domain.HistoryEntry{}
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		result = append(result, *e)
	}
	return result, rows.Err()
}

func (c *sqlCatalog) get(ctx context.Context, id int64) (*domain.HistoryEntry, error) {
	row := c.db.QueryRowContext(ctx, c.rebind(selectEntries+"\n\tWHERE id = ?"), id)

	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("history entry %d: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan: %w", err)
	}
	return e, nil
}

func (c *sqlCatalog) statistics(ctx context.Context) (*domain.Statistics, error) {
	summary := Summary{
		AlgorithmCounts: make(map[domain.Algorithm]int),
		RiskCounts:      make(map[domain.RiskLevel]int),
	}

	err := c.db.QueryRowContext(ctx, `
		SELECT total_analyses, average_accuracy, most_accurate_algorithm
		FROM analysis_summary
		WHERE id = 1
	`).Scan(&summary.TotalAnalyses, &summary.AverageAccuracy, &summary.MostAccurateAlgorithm)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("analysis summary: %w", domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query summary: %w", err)
	}

	rows, err := c.db.QueryContext(ctx, `
		SELECT dimension, bucket, analyses
		FROM analysis_distribution
		ORDER BY dimension, bucket
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query distribution: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var dimension, bucket string
		var count int
		if err := rows.Scan(&dimension, &bucket, &count); err != nil {
			return nil, fmt.Errorf("failed to scan distribution: %w", err)
		}

		switch dimension {
		case dimensionAlgorithm:
			alg, err := domain.ParseAlgorithm(bucket)
			if err != nil {
				return nil, fmt.Errorf("distribution: %w", err)
			}
			summary.AlgorithmCounts[alg] = count
		case dimensionRisk:
			level, err := domain.ParseHistoryRiskLevel(bucket)
			if err != nil {
				return nil, fmt.Errorf("distribution: %w", err)
			}
			summary.RiskCounts[level] = count
		default:
			return nil, fmt.Errorf("distribution: unknown dimension %q", dimension)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return summary.Statistics(), nil
}

// seed writes the fixed catalog into empty tables.
func (c *sqlCatalog) seed(ctx context.Context) error {
	var count int
	if err := c.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM analysis_history").Scan(&count); err != nil {
		return fmt.Errorf("failed to count history: %w", err)
	}
	if count > 0 {
		return nil
	}

	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin seed: %w", err)
	}
	defer tx.Rollback()

	for _, e := range Entries() {
		_, err := tx.ExecContext(ctx, c.rebind(`
			INSERT INTO analysis_history (
				id, analyzed_on, file_name, algorithm_id, algorithm_name, accuracy, result, risk_level
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`), e.ID, e.Date, e.FileName, e.AlgorithmID.ID(), e.Algorithm, e.Accuracy, e.Result, string(e.RiskLevel))
		if err != nil {
			return fmt.Errorf("failed to insert entry %d: %w", e.ID, err)
		}
	}

	summary := FixedSummary()
	_, err = tx.ExecContext(ctx, c.rebind(`
		INSERT INTO analysis_summary (id, total_analyses, average_accuracy, most_accurate_algorithm)
		VALUES (1, ?, ?, ?)
	`), summary.TotalAnalyses, summary.AverageAccuracy, summary.MostAccurateAlgorithm)
	if err != nil {
		return fmt.Errorf("failed to insert summary: %w", err)
	}

	insertDistribution := c.rebind("INSERT INTO analysis_distribution (dimension, bucket, analyses) VALUES (?, ?, ?)")
	for _, alg := range domain.Algorithms() {
		if _, err := tx.ExecContext(ctx, insertDistribution, dimensionAlgorithm, alg.ID(), summary.AlgorithmCounts[alg]); err != nil {
			return fmt.Errorf("failed to insert distribution: %w", err)
		}
	}
	for _, level := range []domain.RiskLevel{domain.RiskHigh, domain.RiskMedium, domain.RiskLow} {
		if _, err := tx.ExecContext(ctx, insertDistribution, dimensionRisk, string(level), summary.RiskCounts[level]); err != nil {
			return fmt.Errorf("failed to insert distribution: %w", err)
		}
	}

	return tx.Commit()
}
