package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/geocoder89/focustodo/internal/actorctx"
	"github.com/geocoder89/focustodo/internal/config"
	"github.com/geocoder89/focustodo/internal/domain/todo"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// TodoStore is implemented by both the postgres and memory repositories.
// Every call is scoped to the owning user.
type TodoStore interface {
	Create(ctx context.Context, t todo.Todo) (todo.Todo, error)
	ListByUser(ctx context.Context, userID string) ([]todo.Todo, error)
	GetByID(ctx context.Context, userID, id string) (todo.Todo, error)
	Update(ctx context.Context, t todo.Todo) (todo.Todo, error)
	Delete(ctx context.Context, userID, id string) error
}

type TodosHandler struct {
	repo TodoStore
}

func NewTodosHandler(repo TodoStore) *TodosHandler {
	return &TodosHandler{repo: repo}
}

func (h *TodosHandler) List(ctx *gin.Context) {
	userID, ok := actorctx.UserIDFrom(ctx.Request.Context())
	if !ok {
		RespondUnauthorized(ctx, "unauthorized", "Not authorized")
		return
	}

	cctx, cancel := config.WithTimeout(ctx.Request.Context(), 3*time.Second)
	defer cancel()

	todos, err := h.repo.ListByUser(cctx, userID)
	if err != nil {
		RespondInternal(ctx, "Could not list todos")
		return
	}

	RespondJSONWithETag(ctx, http.StatusOK, todos)
}

func (h *TodosHandler) Create(ctx *gin.Context) {
	userID, ok := actorctx.UserIDFrom(ctx.Request.Context())
	if !ok {
		RespondUnauthorized(ctx, "unauthorized", "Not authorized")
		return
	}

	var req todo.CreateTodoRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := config.WithTimeout(ctx.Request.Context(), 3*time.Second)
	defer cancel()

	t, err := h.repo.Create(cctx, todo.NewFromCreateRequest(userID, req))
	if err != nil {
		RespondInternal(ctx, "Could not create todo")
		return
	}

	ctx.JSON(http.StatusCreated, t)
}

func (h *TodosHandler) Update(ctx *gin.Context) {
	userID, ok := actorctx.UserIDFrom(ctx.Request.Context())
	if !ok {
		RespondUnauthorized(ctx, "unauthorized", "Not authorized")
		return
	}

	id, ok := todoID(ctx)
	if !ok {
		return
	}

	var req todo.UpdateTodoRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := config.WithTimeout(ctx.Request.Context(), 3*time.Second)
	defer cancel()

	t, err := h.repo.GetByID(cctx, userID, id)
	if err != nil {
		if errors.Is(err, todo.ErrNotFound) {
			RespondNotFound(ctx, "Todo not found")
			return
		}
		RespondInternal(ctx, "Could not update todo")
		return
	}

	t.Apply(req)

	t, err = h.repo.Update(cctx, t)
	if err != nil {
		if errors.Is(err, todo.ErrNotFound) {
			RespondNotFound(ctx, "Todo not found")
			return
		}
		RespondInternal(ctx, "Could not update todo")
		return
	}

	ctx.JSON(http.StatusOK, t)
}

func (h *TodosHandler) Delete(ctx *gin.Context) {
	userID, ok := actorctx.UserIDFrom(ctx.Request.Context())
	if !ok {
		RespondUnauthorized(ctx, "unauthorized", "Not authorized")
		return
	}

	id, ok := todoID(ctx)
	if !ok {
		return
	}

	cctx, cancel := config.WithTimeout(ctx.Request.Context(), 3*time.Second)
	defer cancel()

	if err := h.repo.Delete(cctx, userID, id); err != nil {
		if errors.Is(err, todo.ErrNotFound) {
			RespondNotFound(ctx, "Todo not found")
			return
		}
		RespondInternal(ctx, "Could not delete todo")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"message": "Todo removed"})
}

// todoID reads the :id param. A malformed id can never match a row, so it is
// answered like any other missing todo.
func todoID(ctx *gin.Context) (string, bool) {
	id := ctx.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		RespondNotFound(ctx, "Todo not found")
		return "", false
	}
	return id, true
}
