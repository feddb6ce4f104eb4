package repo

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"mdserver/internal/domain"
)

// PotentialFileRepositoryPG implements domain.PotentialFileRepository.
type PotentialFileRepositoryPG struct {
	pool *pgxpool.Pool
}

// NewPotentialFileRepository creates a potential-file repository backed by PostgreSQL.
func NewPotentialFileRepository(pool *pgxpool.Pool) *PotentialFileRepositoryPG {
	return &PotentialFileRepositoryPG{pool: pool}
}

// Create inserts a new potential-file record. Records are immutable once written.
func (r *PotentialFileRepositoryPG) Create(ctx context.Context, file *domain.PotentialFile) error {
	query := `
INSERT INTO potential_files (id, filename, content, storage_path)
VALUES ($1, $2, $3, $4);
`
	_, err := r.pool.Exec(ctx, query, file.ID, file.Filename, file.Content, file.StoragePath)
	return err
}

// GetByID fetches a potential file by its identifier.
func (r *PotentialFileRepositoryPG) GetByID(ctx context.Context, id string) (*domain.PotentialFile, error) {
	query := `
SELECT id, filename, content, storage_path, created_at
FROM potential_files
WHERE id = $1;
`
	row := r.pool.QueryRow(ctx, query, id)
	var f domain.PotentialFile
	if err := row.Scan(&f.ID, &f.Filename, &f.Content, &f.StoragePath, &f.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &f, nil
}
