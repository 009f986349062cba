package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Alias1177/ChartPredictor/internal/analysis/prediction"
	"github.com/Alias1177/ChartPredictor/models"
	"github.com/rs/zerolog/log"
)

// DB represents a database connection
type DB struct {
	*sql.DB
}

// ConnectionParams holds PostgreSQL connection parameters
type ConnectionParams struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// DSN returns the lib/pq connection string
func (p ConnectionParams) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.DBName, p.SSLMode,
	)
}

// New creates a new database connection. The caller must register the postgres
// driver.
func New(ctx context.Context, params ConnectionParams) (*DB, error) {
	db, err := sql.Open("postgres", params.DSN())
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	if err := createTables(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating tables: %w", err)
	}

	return &DB{db}, nil
}

// createTables creates the necessary tables if they don't exist
func createTables(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS chart_analyses (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			image_ref TEXT NOT NULL,
			symbol TEXT,
			timeframe TEXT,
			result JSONB NOT NULL,
			degraded BOOLEAN NOT NULL DEFAULT FALSE,
			created_at TIMESTAMPTZ NOT NULL
		)
	`)
	if err != nil {
		return err
	}

	_, err = db.ExecContext(ctx, `
		CREATE INDEX IF NOT EXISTS chart_analyses_user_created
		ON chart_analyses (user_id, created_at DESC)
	`)
	return err
}

// SaveAnalysis inserts an analysis. Saving the same id twice overwrites the row.
func (db *DB) SaveAnalysis(ctx context.Context, a *models.Analysis) error {
	result, err := json.Marshal(a.Result)
	if err != nil {
		return fmt.Errorf("encoding result: %w", err)
	}

	_, err = db.ExecContext(ctx, `
		INSERT INTO chart_analyses (
			id, user_id, image_ref, symbol, timeframe, result, degraded, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id)
		DO UPDATE SET
			result = EXCLUDED.result,
			degraded = EXCLUDED.degraded
	`,
		a.ID, a.UserID, a.ImageRef, nullString(a.Symbol), nullString(a.Timeframe), result, a.Degraded, a.CreatedAt)
	if err != nil {
		return fmt.Errorf("saving analysis %s: %w", a.ID, err)
	}
	return nil
}

// GetAnalysis retrieves one of a user's analyses. It returns nil, nil when the
// row does not exist or belongs to someone else.
func (db *DB) GetAnalysis(ctx context.Context, userID, id string) (*models.Analysis, error) {
	row := db.QueryRowContext(ctx, `
		SELECT id, user_id, image_ref, symbol, timeframe, result, degraded, created_at
		FROM chart_analyses
		WHERE id = $1 AND user_id = $2
	`, id, userID)

	a, err := scanAnalysis(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("loading analysis %s: %w", id, err)
	}
	return a, nil
}

// ListAnalyses returns a user's most recent analyses, newest first
func (db *DB) ListAnalyses(ctx context.Context, userID string, limit int) ([]models.Analysis, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id, user_id, image_ref, symbol, timeframe, result, degraded, created_at
		FROM chart_analyses
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("listing analyses: %w", err)
	}
	defer rows.Close()

	analyses := []models.Analysis{}
	for rows.Next() {
		a, err := scanAnalysis(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning analysis: %w", err)
		}
		analyses = append(analyses, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing analyses: %w", err)
	}
	return analyses, nil
}

// DeleteAnalysis removes one of a user's analyses and reports whether it existed
func (db *DB) DeleteAnalysis(ctx context.Context, userID, id string) (bool, error) {
	res, err := db.ExecContext(ctx, `
		DELETE FROM chart_analyses
		WHERE id = $1 AND user_id = $2
	`, id, userID)
	if err != nil {
		return false, fmt.Errorf("deleting analysis %s: %w", id, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("deleting analysis %s: %w", id, err)
	}
	return n > 0, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanAnalysis(s scanner) (*models.Analysis, error) {
	var a models.Analysis
	var symbol, timeframe sql.NullString
	var result []byte

	if err := s.Scan(&a.ID, &a.UserID, &a.ImageRef, &symbol, &timeframe, &result, &a.Degraded, &a.CreatedAt); err != nil {
		return nil, err
	}

	a.Symbol = symbol.String
	a.Timeframe = timeframe.String
	a.Result = decodeResult(a.ID, result)
	return &a, nil
}

// decodeResult treats the stored JSON as an untrusted candidate so rows written by
// older versions, or edited by hand, still come back valid.
func decodeResult(id string, data []byte) models.PredictionResult {
	candidate, err := prediction.DecodeCandidate(data)
	if err != nil {
		log.Warn().Err(err).Str("analysis_id", id).Msg("Stored result is not valid JSON, using defaults")
	}
	return prediction.Reconcile(candidate, prediction.DefaultResult())
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
