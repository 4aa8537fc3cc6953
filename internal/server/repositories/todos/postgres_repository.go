package todos

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/gotodo/internal/common"
	"github.com/dmitrijs2005/gotodo/internal/dbx"
	"github.com/dmitrijs2005/gotodo/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) List(ctx context.Context, ownerID int64) ([]*models.Todo, error) {
	query :=
		`SELECT id, title, description, priority, complete, owner_id FROM todos
		 WHERE owner_id = $1
		 ORDER BY id`

	rows, err := r.db.QueryContext(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("error performing sql request: %w", err)
	}
	defer rows.Close()

	var result []*models.Todo
	for rows.Next() {
		t := &models.Todo{}
		if err := rows.Scan(&t.ID, &t.Title, &t.Description, &t.Priority, &t.Complete, &t.OwnerID); err != nil {
			return nil, fmt.Errorf("error scanning row: %w", err)
		}
		result = append(result, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return result, nil
}

func (r *PostgresRepository) Get(ctx context.Context, ownerID, id int64) (*models.Todo, error) {
	query :=
		`SELECT id, title, description, priority, complete, owner_id FROM todos
		 WHERE id = $1 AND owner_id = $2`

	t := &models.Todo{}
	err := r.db.QueryRowContext(ctx, query, id, ownerID).
		Scan(&t.ID, &t.Title, &t.Description, &t.Priority, &t.Complete, &t.OwnerID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("error performing sql request: %w", err)
	}

	return t, nil
}

func (r *PostgresRepository) Create(ctx context.Context, todo *models.Todo) (*models.Todo, error) {

	query :=
		`INSERT INTO todos (title, description, priority, complete, owner_id)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id
		 `

	err := r.db.QueryRowContext(ctx, query,
		todo.Title, todo.Description, todo.Priority, todo.Complete, todo.OwnerID).Scan(&todo.ID)

	if err != nil {
		return nil, fmt.Errorf("error performing sql request: %w", err)
	}

	return todo, nil
}

func (r *PostgresRepository) Update(ctx context.Context, todo *models.Todo) error {
	query :=
		`UPDATE todos SET title = $1, description = $2, priority = $3, complete = $4
		 WHERE id = $5 AND owner_id = $6`

	res, err := r.db.ExecContext(ctx, query,
		todo.Title, todo.Description, todo.Priority, todo.Complete, todo.ID, todo.OwnerID)
	if err != nil {
		return fmt.Errorf("error performing sql request: %w", err)
	}

	return expectOneRow(res)
}

func (r *PostgresRepository) Delete(ctx context.Context, ownerID, id int64) error {
	query := `DELETE FROM todos WHERE id = $1 AND owner_id = $2`

	res, err := r.db.ExecContext(ctx, query, id, ownerID)
	if err != nil {
		return fmt.Errorf("error performing sql request: %w", err)
	}

	return expectOneRow(res)
}

func (r *PostgresRepository) ToggleComplete(ctx context.Context, ownerID, id int64) (*models.Todo, error) {
	query :=
		`UPDATE todos SET complete = NOT complete
		 WHERE id = $1 AND owner_id = $2
		 RETURNING id, title, description, priority, complete, owner_id`

	t := &models.Todo{}
	err := r.db.QueryRowContext(ctx, query, id, ownerID).
		Scan(&t.ID, &t.Title, &t.Description, &t.Priority, &t.Complete, &t.OwnerID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("error performing sql request: %w", err)
	}

	return t, nil
}

func expectOneRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("error reading affected rows: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}
