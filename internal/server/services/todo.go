package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/dmitrijs2005/gotodo/internal/common"
	"github.com/dmitrijs2005/gotodo/internal/logging"
	"github.com/dmitrijs2005/gotodo/internal/server/models"
	"github.com/dmitrijs2005/gotodo/internal/server/repositories/repomanager"
)

// ErrInvalidTodo is returned for a missing or oversized title or an
// out-of-range priority.
var ErrInvalidTodo = errors.New("invalid todo")

// TodoInput is the editable part of a todo.
type TodoInput struct {
	Title       string
	Description string
	Priority    int
	Complete    bool
}

func (in TodoInput) validate() error {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return fmt.Errorf("%w: title is required", ErrInvalidTodo)
	}
	if utf8.RuneCountInString(title) > common.MaxTodoTitleLength {
		return fmt.Errorf("%w: title is longer than %d characters", ErrInvalidTodo, common.MaxTodoTitleLength)
	}
	if in.Priority < common.MinTodoPriority || in.Priority > common.MaxTodoPriority {
		return fmt.Errorf("%w: priority must be between %d and %d", ErrInvalidTodo, common.MinTodoPriority, common.MaxTodoPriority)
	}
	return nil
}

// TodoService is CRUD over todos, always scoped to ownerID. A todo owned by
// someone else is indistinguishable from a missing one: both are
// common.ErrorNotFound.
type TodoService struct {
	repomanager repomanager.RepositoryManager
	logger      logging.Logger
}

func NewTodoService(m repomanager.RepositoryManager, logger logging.Logger) *TodoService {
	if logger == nil {
		logger = logging.Nop{}
	}
	return &TodoService{repomanager: m, logger: logger}
}

func (s *TodoService) List(ctx context.Context, ownerID int64) ([]*models.Todo, error) {
	list, err := s.repomanager.Todos().List(ctx, ownerID)
	if err != nil {
		return nil, s.internal(ctx, "list todos", err)
	}
	return list, nil
}

func (s *TodoService) Get(ctx context.Context, ownerID, id int64) (*models.Todo, error) {
	t, err := s.repomanager.Todos().Get(ctx, ownerID, id)
	if err != nil {
		return nil, s.storeErr(ctx, "get todo", err)
	}
	return t, nil
}

func (s *TodoService) Create(ctx context.Context, ownerID int64, in TodoInput) (*models.Todo, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	t := &models.Todo{
		Title:       strings.TrimSpace(in.Title),
		Description: in.Description,
		Priority:    in.Priority,
		Complete:    in.Complete,
		OwnerID:     ownerID,
	}
	t, err := s.repomanager.Todos().Create(ctx, t)
	if err != nil {
		return nil, s.internal(ctx, "create todo", err)
	}
	return t, nil
}

func (s *TodoService) Update(ctx context.Context, ownerID, id int64, in TodoInput) error {
	if err := in.validate(); err != nil {
		return err
	}
	t := &models.Todo{
		ID:          id,
		Title:       strings.TrimSpace(in.Title),
		Description: in.Description,
		Priority:    in.Priority,
		Complete:    in.Complete,
		OwnerID:     ownerID,
	}
	if err := s.repomanager.Todos().Update(ctx, t); err != nil {
		return s.storeErr(ctx, "update todo", err)
	}
	return nil
}

func (s *TodoService) Delete(ctx context.Context, ownerID, id int64) error {
	if err := s.repomanager.Todos().Delete(ctx, ownerID, id); err != nil {
		return s.storeErr(ctx, "delete todo", err)
	}
	return nil
}

func (s *TodoService) ToggleComplete(ctx context.Context, ownerID, id int64) (*models.Todo, error) {
	t, err := s.repomanager.Todos().ToggleComplete(ctx, ownerID, id)
	if err != nil {
		return nil, s.storeErr(ctx, "toggle todo", err)
	}
	return t, nil
}

func (s *TodoService) storeErr(ctx context.Context, op string, err error) error {
	if errors.Is(err, common.ErrorNotFound) {
		return common.ErrorNotFound
	}
	return s.internal(ctx, op, err)
}

func (s *TodoService) internal(ctx context.Context, op string, err error) error {
	s.logger.Error(ctx, op+" failed", "error", err)
	return common.ErrorInternal
}
