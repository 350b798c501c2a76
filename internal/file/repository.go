package file

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const repoTimeout = 5 * time.Second

const fileColumns = `id, file_name, content_type, upload_time, download_limit, download_count, file_size, download_url, owner, pending_deletion`

// Repository is the Postgres-backed metadata store.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository builds a new file repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Create inserts a new file record.
func (r *Repository) Create(ctx context.Context, f File) (File, error) {
	ctx, cancel := context.WithTimeout(ctx, repoTimeout)
	defer cancel()

	query := `
INSERT INTO files (id, file_name, content_type, upload_time, download_limit, download_count, file_size, download_url, owner)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
RETURNING ` + fileColumns + `;`

	stored, err := scanFile(r.pool.QueryRow(ctx, query,
		f.ID,
		f.FileName,
		f.ContentType,
		f.UploadTime,
		f.DownloadLimit,
		f.DownloadCount,
		f.FileSize,
		f.DownloadURL,
		f.Owner,
	))
	if err != nil {
		return File{}, fmt.Errorf("create file metadata: %w", err)
	}
	return stored, nil
}

// Get fetches a single record.
func (r *Repository) Get(ctx context.Context, id string) (File, error) {
	ctx, cancel := context.WithTimeout(ctx, repoTimeout)
	defer cancel()

	query := `SELECT ` + fileColumns + ` FROM files WHERE id = $1;`

	f, err := scanFile(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return File{}, ErrFileNotFound
		}
		return File{}, fmt.Errorf("get file metadata: %w", err)
	}
	return f, nil
}

// IncrementDownloadCount adds one consumption and returns the updated record. The record is
// marked pending deletion by the same statement once the count reaches the limit. An exhausted
// or missing record yields ErrFileNotFound.
func (r *Repository) IncrementDownloadCount(ctx context.Context, id string) (File, error) {
	ctx, cancel := context.WithTimeout(ctx, repoTimeout)
	defer cancel()

	query := `
UPDATE files
SET download_count = download_count + 1,
    pending_deletion = (download_count + 1 >= download_limit)
WHERE id = $1 AND download_count < download_limit AND NOT pending_deletion
RETURNING ` + fileColumns + `;`

	f, err := scanFile(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return File{}, ErrFileNotFound
		}
		return File{}, fmt.Errorf("increment download count: %w", err)
	}
	return f, nil
}

// Delete removes a record.
func (r *Repository) Delete(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, repoTimeout)
	defer cancel()

	tag, err := r.pool.Exec(ctx, `DELETE FROM files WHERE id = $1;`, id)
	if err != nil {
		return fmt.Errorf("delete file metadata: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrFileNotFound
	}
	return nil
}

// List returns every record not pending deletion, newest first.
func (r *Repository) List(ctx context.Context) ([]File, error) {
	return r.query(ctx, `SELECT `+fileColumns+` FROM files WHERE NOT pending_deletion ORDER BY upload_time DESC, id;`)
}

// ListByOwner returns the records uploaded by owner that are not pending deletion, newest first.
func (r *Repository) ListByOwner(ctx context.Context, owner string) ([]File, error) {
	return r.query(ctx, `SELECT `+fileColumns+` FROM files WHERE owner = $1 AND NOT pending_deletion ORDER BY upload_time DESC, id;`, owner)
}

// ListPendingDeletion returns records whose expiry deletion did not complete.
func (r *Repository) ListPendingDeletion(ctx context.Context) ([]File, error) {
	return r.query(ctx, `SELECT `+fileColumns+` FROM files WHERE pending_deletion;`)
}

func (r *Repository) query(ctx context.Context, query string, args ...any) ([]File, error) {
	ctx, cancel := context.WithTimeout(ctx, repoTimeout)
	defer cancel()

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list files: %w", err)
	}
	defer rows.Close()

	files := []File{}
	for rows.Next() {
		f, err := scanFile(rows)
		if err != nil {
			return nil, fmt.Errorf("scan file metadata: %w", err)
		}
		files = append(files, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate files: %w", err)
	}
	return files, nil
}

func scanFile(row pgx.Row) (File, error) {
	var f File
	err := row.Scan(
		&f.ID,
		&f.FileName,
		&f.ContentType,
		&f.UploadTime,
		&f.DownloadLimit,
		&f.DownloadCount,
		&f.FileSize,
		&f.DownloadURL,
		&f.Owner,
		&f.PendingDeletion,
	)
	return f, err
}
