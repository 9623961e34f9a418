package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Document publish lifecycle states.
const (
	StatusPending   = "pending"
	StatusPublished = "published"
	StatusFailed    = "failed"
)

// ErrNotFound is returned when a lookup matches no row.
var ErrNotFound = errors.New("not found")

// DocumentRecord mirrors a row of the documents table.
type DocumentRecord struct {
	DocumentID  uuid.UUID
	DocKey      string
	Title       string
	Content     []byte
	Status      string
	BinID       string
	PublicURL   string
	Failure     string
	CreatedAt   time.Time
	UpdatedAt   time.Time
	PublishedAt *time.Time
}

// DocumentRepository provides access to stored quiz documents.
type DocumentRepository struct {
	pool *pgxpool.Pool
}

func NewDocumentRepository(pool *pgxpool.Pool) *DocumentRepository {
	return &DocumentRepository{pool: pool}
}

// Insert stores a freshly validated document in pending state.
func (r *DocumentRepository) Insert(ctx context.Context, docKey, title string, content []byte) (DocumentRecord, error) {
	id := uuid.New()
	row := r.pool.QueryRow(ctx, `
		INSERT INTO documents (document_id, doc_key, title, content)
		VALUES ($1, $2, $3, $4)
		RETURNING document_id, doc_key, title, content, status, bin_id, public_url, failure,
		          created_at, updated_at, published_at`,
		id, docKey, title, content)
	return scanDocument(row)
}

// GetByID fetches one document.
func (r *DocumentRepository) GetByID(ctx context.Context, id uuid.UUID) (DocumentRecord, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT document_id, doc_key, title, content, status, bin_id, public_url, failure,
		       created_at, updated_at, published_at
		FROM documents WHERE document_id = $1`, id)
	rec, err := scanDocument(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return DocumentRecord{}, ErrNotFound
	}
	return rec, err
}

// MarkPublished records a successful bin publish.
func (r *DocumentRepository) MarkPublished(ctx context.Context, id uuid.UUID, binID, publicURL string) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE documents
		SET status = $2, bin_id = $3, public_url = $4, failure = '',
		    published_at = now(), updated_at = now()
		WHERE document_id = $1`,
		id, StatusPublished, binID, publicURL)
	if err != nil {
		return fmt.Errorf("mark published: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// MarkFailed records a publish failure with the cause for later inspection.
func (r *DocumentRepository) MarkFailed(ctx context.Context, id uuid.UUID, cause string) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE documents
		SET status = $2, failure = $3, updated_at = now()
		WHERE document_id = $1`,
		id, StatusFailed, cause)
	if err != nil {
		return fmt.Errorf("mark failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanDocument(row pgx.Row) (DocumentRecord, error) {
	var rec DocumentRecord
	err := row.Scan(
		&rec.DocumentID, &rec.DocKey, &rec.Title, &rec.Content, &rec.Status,
		&rec.BinID, &rec.PublicURL, &rec.Failure,
		&rec.CreatedAt, &rec.UpdatedAt, &rec.PublishedAt,
	)
	if err != nil {
		return DocumentRecord{}, err
	}
	return rec, nil
}
