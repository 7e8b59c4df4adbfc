package db

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
)

// DBTX is satisfied by *pgxpool.Pool, *pgx.Conn and pgx.Tx.
type DBTX interface {
	Exec(ctx context.Context, sql string, arguments ...interface{}) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
}

type Queries struct {
	db DBTX
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

type Generation struct {
	ID            pgtype.UUID        `json:"id"`
	Ingredients   string             `json:"ingredients"`
	Outcome       string             `json:"outcome"`
	StatusCode    int32              `json:"status_code"`
	RecipeLength  int32              `json:"recipe_length"`
	ProviderError pgtype.Text        `json:"provider_error"`
	DurationMs    int64              `json:"duration_ms"`
	CreatedAt     pgtype.Timestamptz `json:"created_at"`
}

const createGeneration = `
INSERT INTO generations (id, ingredients, outcome, status_code, recipe_length, provider_error, duration_ms, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
ON CONFLICT (id) DO NOTHING
RETURNING id, ingredients, outcome, status_code, recipe_length, provider_error, duration_ms, created_at
`

type CreateGenerationParams struct {
	ID            pgtype.UUID
	Ingredients   string
	Outcome       string
	StatusCode    int32
	RecipeLength  int32
	ProviderError pgtype.Text
	DurationMs    int64
	CreatedAt     pgtype.Timestamptz
}

// CreateGeneration inserts a record. Re-inserting an existing id is a no-op and returns pgx.ErrNoRows.
func (q *Queries) CreateGeneration(ctx context.Context, arg CreateGenerationParams) (Generation, error) {
	row := q.db.QueryRow(ctx, createGeneration,
		arg.ID,
		arg.Ingredients,
		arg.Outcome,
		arg.StatusCode,
		arg.RecipeLength,
		arg.ProviderError,
		arg.DurationMs,
		arg.CreatedAt,
	)
	var i Generation
	err := row.Scan(
		&i.ID,
		&i.Ingredients,
		&i.Outcome,
		&i.StatusCode,
		&i.RecipeLength,
		&i.ProviderError,
		&i.DurationMs,
		&i.CreatedAt,
	)
	return i, err
}

const listGenerations = `
SELECT id, ingredients, outcome, status_code, recipe_length, provider_error, duration_ms, created_at
FROM generations
ORDER BY created_at DESC
LIMIT $1
`

func (q *Queries) ListGenerations(ctx context.Context, limit int32) ([]Generation, error) {
	rows, err := q.db.Query(ctx, listGenerations, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []Generation{}
	for rows.Next() {
		var i Generation
		if err := rows.Scan(
			&i.ID,
			&i.Ingredients,
			&i.Outcome,
			&i.StatusCode,
			&i.RecipeLength,
			&i.ProviderError,
			&i.DurationMs,
			&i.CreatedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
