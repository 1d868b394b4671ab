package conversions

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// PGRepo implements Repo using Postgres.
type PGRepo struct {
	DB *sql.DB
}

const conversionColumns = `id, source_file_name, status, failure_kind, error_message, experience_count,
    pdf_pages, output_size_bytes, unresolved_tokens, duration_ms, request_id, created_at`

// Create inserts a conversion record.
func (r *PGRepo) Create(ctx context.Context, conv Conversion) error {
	const query = `
INSERT INTO conversions (` + conversionColumns + `)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`
	_, err := r.DB.ExecContext(ctx, query,
		conv.ID,
		conv.SourceFileName,
		conv.Status,
		nullString(conv.FailureKind),
		nullString(conv.ErrorMessage),
		conv.ExperienceCount,
		conv.PDFPages,
		conv.OutputSizeBytes,
		conv.UnresolvedTokens,
		conv.Duration.Milliseconds(),
		nullString(conv.RequestID),
		conv.CreatedAt,
	)
	return err
}

// GetByID returns a conversion record by ID.
func (r *PGRepo) GetByID(ctx context.Context, id string) (Conversion, error) {
	const query = `
SELECT ` + conversionColumns + `
FROM conversions
WHERE id = $1
LIMIT 1`
	conv, err := scanConversion(r.DB.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Conversion{}, ErrNotFound
		}
		return Conversion{}, err
	}
	return conv, nil
}

// List lists conversion records ordered newest-first.
func (r *PGRepo) List(ctx context.Context, limit, offset int) ([]Conversion, error) {
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	const query = `
SELECT ` + conversionColumns + `
FROM conversions
ORDER BY created_at DESC
LIMIT $1 OFFSET $2`

	rows, err := r.DB.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Conversion{}
	for rows.Next() {
		conv, err := scanConversion(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, conv)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanConversion(row rowScanner) (Conversion, error) {
	var (
		conv        Conversion
		failureKind sql.NullString
		errMessage  sql.NullString
		requestID   sql.NullString
		durationMs  int64
	)
	err := row.Scan(
		&conv.ID,
		&conv.SourceFileName,
		&conv.Status,
		&failureKind,
		&errMessage,
		&conv.ExperienceCount,
		&conv.PDFPages,
		&conv.OutputSizeBytes,
		&conv.UnresolvedTokens,
		&durationMs,
		&requestID,
		&conv.CreatedAt,
	)
	if err != nil {
		return Conversion{}, err
	}
	conv.FailureKind = failureKind.String
	conv.ErrorMessage = errMessage.String
	conv.RequestID = requestID.String
	conv.Duration = time.Duration(durationMs) * time.Millisecond
	return conv, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

var _ Repo = (*PGRepo)(nil)
