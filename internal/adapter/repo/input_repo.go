package repo

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"mdserver/internal/domain"
)

// SimulationInputRepositoryPG implements domain.SimulationInputRepository.
type SimulationInputRepositoryPG struct {
	pool *pgxpool.Pool
}

// NewSimulationInputRepository creates an input repository backed by PostgreSQL.
func NewSimulationInputRepository(pool *pgxpool.Pool) *SimulationInputRepositoryPG {
	return &SimulationInputRepositoryPG{pool: pool}
}

// Create inserts a new input snapshot.
func (r *SimulationInputRepositoryPG) Create(ctx context.Context, input *domain.SimulationInput) error {
	query := `
INSERT INTO simulation_inputs (id, name, content, potential_file_id)
VALUES ($1, $2, $3, $4);
`
	_, err := r.pool.Exec(ctx, query, input.ID, input.Name, input.Content, input.PotentialFileID)
	return err
}

// GetByID fetches an input snapshot by its identifier.
func (r *SimulationInputRepositoryPG) GetByID(ctx context.Context, id string) (*domain.SimulationInput, error) {
	query := `
SELECT id, name, content, potential_file_id, created_at
FROM simulation_inputs
WHERE id = $1;
`
	row := r.pool.QueryRow(ctx, query, id)
	var in domain.SimulationInput
	if err := row.Scan(&in.ID, &in.Name, &in.Content, &in.PotentialFileID, &in.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &in, nil
}
