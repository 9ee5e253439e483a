// Package store persists analysis history and knowledge-base contracts.
// The pipeline only appends on success and reads aggregated knowledge text;
// edits and removals serve the review flow.
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/backend-developer-hojiakbar/mebel/internal/db"
	"github.com/backend-developer-hojiakbar/mebel/internal/knowledge"
	"github.com/backend-developer-hojiakbar/mebel/internal/models"
)

// Store handles all database operations for analysis history and contracts.
type Store struct {
	db *db.DB
}

// New creates a Store.
func New(database *db.DB) *Store {
	return &Store{db: database}
}

// EnsureSchema creates the tables when they do not exist yet.
func (s *Store) EnsureSchema(ctx context.Context) error {
	_, err := s.db.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS analyses (
			id TEXT PRIMARY KEY,
			summary TEXT NOT NULL,
			source TEXT NOT NULL,
			deadline TEXT,
			products JSONB NOT NULL,
			score JSONB,
			raw_content TEXT,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE TABLE IF NOT EXISTS contracts (
			id TEXT PRIMARY KEY,
			file_name TEXT NOT NULL,
			raw_text TEXT NOT NULL,
			status TEXT NOT NULL,
			details JSONB,
			error TEXT,
			uploaded_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
	`)
	if err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// AppendAnalysis persists a completed analysis result.
func (s *Store) AppendAnalysis(ctx context.Context, res *models.AnalysisResult) error {
	products, err := json.Marshal(res.Products)
	if err != nil {
		return fmt.Errorf("failed to marshal products: %w", err)
	}
	score, err := json.Marshal(res.Score)
	if err != nil {
		return fmt.Errorf("failed to marshal score: %w", err)
	}

	_, err = s.db.Exec(ctx, `
		INSERT INTO analyses (id, summary, source, deadline, products, score, raw_content, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, res.ID, res.Summary, res.Source, res.Deadline, products, score, res.RawContent, res.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert analysis failed: %w", err)
	}
	return nil
}

// UpdateAnalysis replaces the mutable parts of a stored result: products
// (user price edits, re-research) and the recomputed score.
func (s *Store) UpdateAnalysis(ctx context.Context, res *models.AnalysisResult) error {
	products, err := json.Marshal(res.Products)
	if err != nil {
		return fmt.Errorf("failed to marshal products: %w", err)
	}
	score, err := json.Marshal(res.Score)
	if err != nil {
		return fmt.Errorf("failed to marshal score: %w", err)
	}

	tag, err := s.db.Exec(ctx, `
		UPDATE analyses SET summary = $2, products = $3, score = $4 WHERE id = $1
	`, res.ID, res.Summary, products, score)
	if err != nil {
		return fmt.Errorf("update analysis failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("analysis %s not found", res.ID)
	}
	return nil
}

// RemoveAnalysis deletes a stored result and its products with it.
func (s *Store) RemoveAnalysis(ctx context.Context, id string) error {
	_, err := s.db.Exec(ctx, `DELETE FROM analyses WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete analysis failed: %w", err)
	}
	return nil
}

// GetAnalysis loads one stored result by id.
func (s *Store) GetAnalysis(ctx context.Context, id string) (*models.AnalysisResult, error) {
	var res models.AnalysisResult
	var products, score []byte
	err := s.db.QueryRow(ctx, `
		SELECT id, summary, source, COALESCE(deadline, ''), products, score, COALESCE(raw_content, ''), created_at
		FROM analyses WHERE id = $1
	`, id).Scan(&res.ID, &res.Summary, &res.Source, &res.Deadline, &products, &score, &res.RawContent, &res.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("analysis not found: %w", err)
	}

	if err := json.Unmarshal(products, &res.Products); err != nil {
		return nil, fmt.Errorf("failed to decode products: %w", err)
	}
	if len(score) > 0 && string(score) != "null" {
		res.Score = &models.PotentialScore{}
		if err := json.Unmarshal(score, res.Score); err != nil {
			return nil, fmt.Errorf("failed to decode score: %w", err)
		}
	}
	return &res, nil
}

// ListAnalyses returns stored results newest first, without raw content.
func (s *Store) ListAnalyses(ctx context.Context, limit int) ([]models.AnalysisResult, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.Query(ctx, `
		SELECT id, summary, source, COALESCE(deadline, ''), products, score, created_at
		FROM analyses ORDER BY created_at DESC LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("list analyses failed: %w", err)
	}
	defer rows.Close()

	var out []models.AnalysisResult
	for rows.Next() {
		var res models.AnalysisResult
		var products, score []byte
		if err := rows.Scan(&res.ID, &res.Summary, &res.Source, &res.Deadline, &products, &score, &res.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan analysis failed: %w", err)
		}
		if err := json.Unmarshal(products, &res.Products); err != nil {
			return nil, fmt.Errorf("failed to decode products: %w", err)
		}
		if len(score) > 0 && string(score) != "null" {
			res.Score = &models.PotentialScore{}
			if err := json.Unmarshal(score, res.Score); err != nil {
				return nil, fmt.Errorf("failed to decode score: %w", err)
			}
		}
		out = append(out, res)
	}
	return out, rows.Err()
}

// SaveContract inserts or replaces an uploaded contract record.
func (s *Store) SaveContract(ctx context.Context, c *models.Contract) error {
	details, err := json.Marshal(c.Details)
	if err != nil {
		return fmt.Errorf("failed to marshal contract details: %w", err)
	}
	if c.UploadedAt.IsZero() {
		c.UploadedAt = time.Now()
	}

	_, err = s.db.Exec(ctx, `
		INSERT INTO contracts (id, file_name, raw_text, status, details, error, uploaded_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE
		SET status = EXCLUDED.status, details = EXCLUDED.details, error = EXCLUDED.error
	`, c.ID, c.FileName, c.RawText, c.Status, details, c.Error, c.UploadedAt)
	if err != nil {
		return fmt.Errorf("save contract failed: %w", err)
	}
	return nil
}

// RemoveContract deletes a contract from the knowledge base.
func (s *Store) RemoveContract(ctx context.Context, id string) error {
	_, err := s.db.Exec(ctx, `DELETE FROM contracts WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete contract failed: %w", err)
	}
	return nil
}

// ListContracts returns all uploaded contracts, newest first.
func (s *Store) ListContracts(ctx context.Context) ([]models.Contract, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, file_name, raw_text, status, details, COALESCE(error, ''), uploaded_at
		FROM contracts ORDER BY uploaded_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("list contracts failed: %w", err)
	}
	defer rows.Close()

	var out []models.Contract
	for rows.Next() {
		var c models.Contract
		var details []byte
		if err := rows.Scan(&c.ID, &c.FileName, &c.RawText, &c.Status, &details, &c.Error, &c.UploadedAt); err != nil {
			return nil, fmt.Errorf("scan contract failed: %w", err)
		}
		if len(details) > 0 && string(details) != "null" {
			c.Details = &models.ContractDetails{}
			if err := json.Unmarshal(details, c.Details); err != nil {
				return nil, fmt.Errorf("failed to decode contract details: %w", err)
			}
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// KnowledgeText aggregates analyzed contracts into the prompt context block.
func (s *Store) KnowledgeText(ctx context.Context) (string, error) {
	contracts, err := s.ListContracts(ctx)
	if err != nil {
		return "", err
	}
	return knowledge.BuildContext(contracts), nil
}
