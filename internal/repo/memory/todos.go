package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/geocoder89/focustodo/internal/domain/todo"
)

type TodosRepo struct {
	mu    sync.RWMutex
	items map[string]todo.Todo
}

func NewTodosRepo() *TodosRepo {
	return &TodosRepo{
		items: make(map[string]todo.Todo),
	}
}

func (r *TodosRepo) Create(_ context.Context, t todo.Todo) (todo.Todo, error) {
	r.mu.Lock()
	r.items[t.ID] = t
	r.mu.Unlock()

	return t, nil
}

func (r *TodosRepo) ListByUser(_ context.Context, userID string) ([]todo.Todo, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]todo.Todo, 0)
	for _, t := range r.items {
		if t.UserID == userID {
			out = append(out, t)
		}
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})

	return out, nil
}

func (r *TodosRepo) GetByID(_ context.Context, userID, id string) (todo.Todo, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, ok := r.items[id]
	if !ok || t.UserID != userID {
		return todo.Todo{}, todo.ErrNotFound
	}
	return t, nil
}

func (r *TodosRepo) Update(_ context.Context, t todo.Todo) (todo.Todo, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.items[t.ID]
	if !ok || existing.UserID != t.UserID {
		return todo.Todo{}, todo.ErrNotFound
	}

	t.CreatedAt = existing.CreatedAt
	t.UpdatedAt = time.Now().UTC()
	r.items[t.ID] = t

	return t, nil
}

func (r *TodosRepo) Delete(_ context.Context, userID, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.items[id]
	if !ok || t.UserID != userID {
		return todo.ErrNotFound
	}
	delete(r.items, id)

	return nil
}
