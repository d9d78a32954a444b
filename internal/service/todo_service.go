package service

import (
	"context"
	"strings"
	"time"

	"nudgebot/internal/model"
	"nudgebot/internal/repository"
)

const (
	// Bounds for the first nag delay when enabling a todo reminder.
	minInitialNagDelay     = 5 * time.Minute
	maxInitialNagDelay     = 7 * 24 * time.Hour
	defaultInitialNagDelay = 4 * time.Hour
)

// TodoService wraps to-do business logic.
type TodoService struct {
	todos *repository.TodoRepository
	clock Clock
}

func NewTodoService(todos *repository.TodoRepository, clock Clock) *TodoService {
	return &TodoService{todos: todos, clock: clock}
}

func (s *TodoService) Create(ctx context.Context, scopeID, userID int64, content string) (*model.Todo, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, invalidf("content", "must not be empty")
	}
	todo := model.Todo{ScopeID: scopeID, UserID: userID, Content: content}
	if err := s.todos.Create(ctx, &todo); err != nil {
		return nil, err
	}
	return &todo, nil
}

func (s *TodoService) List(ctx context.Context, scopeID, userID int64, includeDone bool) ([]model.Todo, error) {
	return s.todos.ListByOwner(ctx, scopeID, userID, includeDone, 50)
}

func (s *TodoService) SetDone(ctx context.Context, userID int64, todoID uint, done bool) error {
	return s.todos.SetDone(ctx, userID, todoID, done, s.clock.NowUTC())
}

// SetReminder enables the escalating nag with an initial delay (clamped to
// sane bounds), or disables it.
func (s *TodoService) SetReminder(ctx context.Context, userID int64, todoID uint, enabled bool, initial time.Duration) error {
	if !enabled {
		return s.todos.SetReminder(ctx, userID, todoID, false, nil)
	}
	if initial <= 0 {
		initial = defaultInitialNagDelay
	}
	if initial < minInitialNagDelay {
		initial = minInitialNagDelay
	}
	if initial > maxInitialNagDelay {
		initial = maxInitialNagDelay
	}
	next := s.clock.NowUTC().Add(initial)
	return s.todos.SetReminder(ctx, userID, todoID, true, &next)
}

func (s *TodoService) Delete(ctx context.Context, userID int64, todoID uint) error {
	return s.todos.Delete(ctx, userID, todoID)
}
