package repo

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"inkwell/internal/domain"
)

// CreationRepositoryPG implements domain.CreationRepository backed by PostgreSQL.
type CreationRepositoryPG struct {
	pool *pgxpool.Pool
}

// NewCreationRepository creates a new CreationRepositoryPG.
func NewCreationRepository(pool *pgxpool.Pool) *CreationRepositoryPG {
	return &CreationRepositoryPG{pool: pool}
}

// Insert persists one creation record. The ID and CreatedAt fields are
// assigned here when unset.
func (r *CreationRepositoryPG) Insert(ctx context.Context, creation *domain.Creation) error {
	if creation.ID == uuid.Nil {
		creation.ID = uuid.New()
	}
	row := r.pool.QueryRow(ctx, `
INSERT INTO creations (id, user_id, prompt, content, type, publish)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING created_at;
`,
		creation.ID,
		creation.UserID,
		creation.Prompt,
		creation.Content,
		string(creation.Type),
		creation.Publish,
	)
	if err := row.Scan(&creation.CreatedAt); err != nil {
		return fmt.Errorf("insert creation: %w", err)
	}
	return nil
}

// ListByUser returns every creation owned by the user, newest first.
func (r *CreationRepositoryPG) ListByUser(ctx context.Context, userID string) ([]domain.Creation, error) {
	rows, err := r.pool.Query(ctx, `
SELECT id, user_id, prompt, content, type, publish, created_at
FROM creations
WHERE user_id = $1
ORDER BY created_at DESC;
`, userID)
	if err != nil {
		return nil, fmt.Errorf("list creations: %w", err)
	}
	defer rows.Close()
	return scanCreations(rows)
}

// ListPublished returns every published creation across all users, newest first.
func (r *CreationRepositoryPG) ListPublished(ctx context.Context) ([]domain.Creation, error) {
	rows, err := r.pool.Query(ctx, `
SELECT id, user_id, prompt, content, type, publish, created_at
FROM creations
WHERE publish
ORDER BY created_at DESC;
`)
	if err != nil {
		return nil, fmt.Errorf("list published creations: %w", err)
	}
	defer rows.Close()
	return scanCreations(rows)
}

func scanCreations(rows pgx.Rows) ([]domain.Creation, error) {
	var creations []domain.Creation
	for rows.Next() {
		var c domain.Creation
		var ctype string
		if err := rows.Scan(&c.ID, &c.UserID, &c.Prompt, &c.Content, &ctype, &c.Publish, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan creation: %w", err)
		}
		c.Type = domain.CreationType(ctype)
		creations = append(creations, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate creations: %w", err)
	}
	return creations, nil
}

var _ domain.CreationRepository = (*CreationRepositoryPG)(nil)
