package postgres

import (
	"context"
	"errors"

	"github.com/geocoder89/focustodo/internal/domain/todo"
	"github.com/geocoder89/focustodo/internal/observability"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const todoColumns = `id, user_id, text, description, completed, priority, due_date, created_at, updated_at`

// TodosRepo scopes every statement by user_id; another user's todo looks
// exactly like a missing one.
type TodosRepo struct {
	db DB
	observer
}

func NewTodosRepo(db DB, prom *observability.Prom) *TodosRepo {
	return &TodosRepo{db: db, observer: observer{prom: prom}}
}

func scanTodo(row pgx.Row, t *todo.Todo) error {
	var priority string

	err := row.Scan(&t.ID, &t.UserID, &t.Text, &t.Description, &t.Completed, &priority, &t.DueDate, &t.CreatedAt, &t.UpdatedAt)
	t.Priority = todo.Priority(priority)

	return err
}

func (r *TodosRepo) Create(ctx context.Context, t todo.Todo) (todo.Todo, error) {
	err := r.observe(ctx, "todos.create", func(ctx context.Context) error {
		_, err := r.db.Exec(ctx,
			`INSERT INTO todos (id, user_id, text, description, completed, priority, due_date, created_at, updated_at)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
			t.ID, t.UserID, t.Text, t.Description, t.Completed, string(t.Priority), t.DueDate, t.CreatedAt, t.UpdatedAt)
		return err
	})

	if err != nil {
		return todo.Todo{}, err
	}

	return t, nil
}

// ListByUser returns the user's todos, newest first.
func (r *TodosRepo) ListByUser(ctx context.Context, userID string) ([]todo.Todo, error) {
	var rows pgx.Rows

	err := r.observe(ctx, "todos.list_by_user", func(ctx context.Context) error {
		var qerr error
		rows, qerr = r.db.Query(ctx,
			`SELECT `+todoColumns+` FROM todos WHERE user_id = $1 ORDER BY created_at DESC, id DESC`, userID)
		return qerr
	})
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]todo.Todo, 0)

	for rows.Next() {
		var t todo.Todo
		if err := scanTodo(rows, &t); err != nil {
			return nil, err
		}
		out = append(out, t)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return out, nil
}

func (r *TodosRepo) GetByID(ctx context.Context, userID, id string) (todo.Todo, error) {
	var t todo.Todo
	found := true

	err := r.observe(ctx, "todos.get_by_id", func(ctx context.Context) error {
		err := scanTodo(r.db.QueryRow(ctx,
			`SELECT `+todoColumns+` FROM todos WHERE id = $1 AND user_id = $2`, id, userID), &t)
		if errors.Is(err, pgx.ErrNoRows) {
			found = false
			return nil
		}
		return err
	})

	if err != nil {
		return todo.Todo{}, err
	}
	if !found {
		return todo.Todo{}, todo.ErrNotFound
	}

	return t, nil
}

func (r *TodosRepo) Update(ctx context.Context, t todo.Todo) (todo.Todo, error) {
	var out todo.Todo
	found := true

	err := r.observe(ctx, "todos.update", func(ctx context.Context) error {
		err := scanTodo(r.db.QueryRow(ctx,
			`UPDATE todos
			SET text = $3,
				description = $4,
				completed = $5,
				priority = $6,
				due_date = $7,
				updated_at = NOW()
			WHERE id = $1 AND user_id = $2
			RETURNING `+todoColumns,
			t.ID, t.UserID, t.Text, t.Description, t.Completed, string(t.Priority), t.DueDate), &out)
		if errors.Is(err, pgx.ErrNoRows) {
			found = false
			return nil
		}
		return err
	})

	if err != nil {
		return todo.Todo{}, err
	}
	if !found {
		return todo.Todo{}, todo.ErrNotFound
	}

	return out, nil
}

func (r *TodosRepo) Delete(ctx context.Context, userID, id string) error {
	var tag pgconn.CommandTag

	err := r.observe(ctx, "todos.delete", func(ctx context.Context) error {
		var err error
		tag, err = r.db.Exec(ctx, `DELETE FROM todos WHERE id = $1 AND user_id = $2`, id, userID)
		return err
	})

	if err != nil {
		return err
	}

	// if no rows were deleted as a result return a not found error
	if tag.RowsAffected() == 0 {
		return todo.ErrNotFound
	}

	return nil
}
