package todo

import (
	"bytes"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
)

var ErrNotFound = errors.New("todo not found")

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

type Todo struct {
	ID          string     `json:"id"`
	UserID      string     `json:"userId"`
	Text        string     `json:"text"`
	Description string     `json:"description,omitempty"`
	Completed   bool       `json:"completed"`
	Priority    Priority   `json:"priority"`
	DueDate     *time.Time `json:"dueDate,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

type CreateTodoRequest struct {
	Text        string     `json:"text" binding:"required,max=500"`
	Description string     `json:"description" binding:"omitempty,max=5000"`
	Priority    Priority   `json:"priority" binding:"omitempty,oneof=low medium high"`
	DueDate     *time.Time `json:"dueDate"`
}

// NullableTime records whether a JSON field was present at all, so that an
// explicit null can be told apart from an omitted field.
type NullableTime struct {
	Set   bool
	Value *time.Time
}

func (n *NullableTime) UnmarshalJSON(data []byte) error {
	n.Set = true
	if bytes.Equal(data, []byte("null")) {
		n.Value = nil
		return nil
	}

	var t time.Time
	if err := json.Unmarshal(data, &t); err != nil {
		return err
	}
	n.Value = &t
	return nil
}

// with pointers, a nil field is left untouched; dueDate may be null to clear it
type UpdateTodoRequest struct {
	Text        *string      `json:"text" binding:"omitempty,min=1,max=500"`
	Description *string      `json:"description" binding:"omitempty,max=5000"`
	Priority    *Priority    `json:"priority" binding:"omitempty,oneof=low medium high"`
	DueDate     NullableTime `json:"dueDate"`
	Completed   *bool        `json:"completed"`
}

func NewFromCreateRequest(userID string, req CreateTodoRequest) Todo {
	now := time.Now().UTC()

	priority := req.Priority
	if priority == "" {
		priority = PriorityMedium
	}

	return Todo{
		ID:          uuid.NewString(),
		UserID:      userID,
		Text:        req.Text,
		Description: req.Description,
		Priority:    priority,
		DueDate:     req.DueDate,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// Apply copies the fields present in req onto t.
func (t *Todo) Apply(req UpdateTodoRequest) {
	if req.Text != nil {
		t.Text = *req.Text
	}
	if req.Description != nil {
		t.Description = *req.Description
	}
	if req.Priority != nil {
		t.Priority = *req.Priority
	}
	if req.DueDate.Set {
		t.DueDate = req.DueDate.Value
	}
	if req.Completed != nil {
		t.Completed = *req.Completed
	}
}
