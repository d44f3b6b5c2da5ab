package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"todo-tracker/internal/models"

	"gorm.io/gorm"
)

var ErrInvalidTitle = errors.New("title is required")

type CreateTodoRequest struct {
	Title       string  `json:"title" binding:"required,notblank"`
	Description *string `json:"description"`
	Priority    *string `json:"priority" binding:"omitempty,max=32"`
	DueDate     *string `json:"due_date" binding:"omitempty,duedate"`
}

// UpdateTodoRequest is a partial update. Absent fields keep their stored
// value. An explicit null clears description and due_date and is ignored
// for the other fields.
type UpdateTodoRequest struct {
	Title       models.Optional[string]  `json:"title"`
	Description models.Optional[*string] `json:"description"`
	Completed   models.Optional[bool]    `json:"completed"`
	Priority    models.Optional[string]  `json:"priority"`
	DueDate     models.Optional[*string] `json:"due_date"`
}

type TodoStats struct {
	Total     int              `json:"total"`
	Completed int              `json:"completed"`
	Pending   int              `json:"pending"`
	FirstTodo *models.TodoView `json:"first_todo"`
	LastTodo  *models.TodoView `json:"last_todo"`
}

type PriorityGroup struct {
	Count int               `json:"count"`
	Items []models.TodoView `json:"items"`
}

// TodoService reads and writes todos. Lookups of unknown ids are not
// errors: GetByID and Update return a nil view and Delete returns false.
type TodoService interface {
	ListAll(ctx context.Context) ([]models.TodoView, error)
	ListByStatus(ctx context.Context, completed bool) ([]models.TodoView, error)
	GetByID(ctx context.Context, id int64) (*models.TodoView, error)
	Create(ctx context.Context, req CreateTodoRequest) (models.TodoView, error)
	Update(ctx context.Context, id int64, req UpdateTodoRequest) (*models.TodoView, error)
	Delete(ctx context.Context, id int64) (bool, error)
	GetStats(ctx context.Context) (TodoStats, error)
	GetGroupedByPriority(ctx context.Context) (map[string]PriorityGroup, error)
}

type TodoServiceImpl struct {
	db  *gorm.DB
	now func() time.Time
}

type TodoServiceOption func(*TodoServiceImpl)

// WithClock overrides the time source used for timestamps and overdue checks.
func WithClock(now func() time.Time) TodoServiceOption {
	return func(s *TodoServiceImpl) {
		s.now = now
	}
}

// NewTodoService expects db to already carry the schema (see
// database.EnsureSchema).
func NewTodoService(db *gorm.DB, opts ...TodoServiceOption) *TodoServiceImpl {
	s := &TodoServiceImpl{db: db, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *TodoServiceImpl) ListAll(ctx context.Context) ([]models.TodoView, error) {
	var records []models.TodoRecord
	err := s.db.WithContext(ctx).
		Order("created_at DESC, id DESC").
		Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("list todos: %w", err)
	}
	return s.toViews(records), nil
}

func (s *TodoServiceImpl) ListByStatus(ctx context.Context, completed bool) ([]models.TodoView, error) {
	var records []models.TodoRecord
	err := s.db.WithContext(ctx).
		Where("completed = ?", models.BoolToInt(completed)).
		Order("created_at DESC, id DESC").
		Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("list todos by status: %w", err)
	}
	return s.toViews(records), nil
}

func (s *TodoServiceImpl) GetByID(ctx context.Context, id int64) (*models.TodoView, error) {
	todo, err := s.find(ctx, id)
	if err != nil || todo == nil {
		return nil, err
	}
	view := todo.ToView(s.now())
	return &view, nil
}

func (s *TodoServiceImpl) Create(ctx context.Context, req CreateTodoRequest) (models.TodoView, error) {
	if !models.ValidateTitle(req.Title) {
		return models.TodoView{}, ErrInvalidTitle
	}
	if err := validateDueDate(req.DueDate); err != nil {
		return models.TodoView{}, err
	}

	completed := false
	todo := models.FromPartial(models.TodoFields{
		Title:       req.Title,
		Description: req.Description,
		Completed:   &completed,
		Priority:    nonBlank(req.Priority),
		DueDate:     req.DueDate,
	}, s.now())

	record := models.RecordFromTodo(todo)
	if err := s.db.WithContext(ctx).Create(&record).Error; err != nil {
		return models.TodoView{}, fmt.Errorf("create todo: %w", err)
	}

	// Read back so the response reflects what the store actually holds.
	view, err := s.GetByID(ctx, record.ID)
	if err != nil {
		return models.TodoView{}, err
	}
	if view == nil {
		return models.TodoView{}, fmt.Errorf("create todo: row %d missing after insert", record.ID)
	}
	return *view, nil
}

func (s *TodoServiceImpl) Update(ctx context.Context, id int64, req UpdateTodoRequest) (*models.TodoView, error) {
	current, err := s.find(ctx, id)
	if err != nil || current == nil {
		return nil, err
	}

	now := s.now()
	next := *current

	if req.Title.Present() {
		if !models.ValidateTitle(req.Title.Value) {
			return nil, ErrInvalidTitle
		}
		next = next.UpdateTitle(req.Title.Value, now)
	}
	if req.Completed.Present() {
		if req.Completed.Value {
			next = next.MarkAsCompleted(now)
		} else {
			next = next.MarkAsIncomplete(now)
		}
	}
	if req.Priority.Present() && strings.TrimSpace(req.Priority.Value) != "" {
		next = next.UpdatePriority(req.Priority.Value, now)
	}
	if req.Description.Set {
		next.Description = req.Description.Value
	}
	if req.DueDate.Set {
		if err := validateDueDate(req.DueDate.Value); err != nil {
			return nil, err
		}
		next.DueDate = req.DueDate.Value
	}
	next.UpdatedAt = models.FormatTimestamp(now)

	err = s.db.WithContext(ctx).
		Model(&models.TodoRecord{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"title":       next.Title,
			"description": nullable(next.Description),
			"completed":   models.BoolToInt(next.Completed),
			"priority":    next.Priority,
			"due_date":    nullable(next.DueDate),
			"updated_at":  next.UpdatedAt,
		}).Error
	if err != nil {
		return nil, fmt.Errorf("update todo %d: %w", id, err)
	}

	return s.GetByID(ctx, id)
}

func (s *TodoServiceImpl) Delete(ctx context.Context, id int64) (bool, error) {
	result := s.db.WithContext(ctx).Where("id = ?", id).Delete(&models.TodoRecord{})
	if result.Error != nil {
		return false, fmt.Errorf("delete todo %d: %w", id, result.Error)
	}
	return result.RowsAffected > 0, nil
}

func (s *TodoServiceImpl) GetStats(ctx context.Context) (TodoStats, error) {
	todos, err := s.ListAll(ctx)
	if err != nil {
		return TodoStats{}, err
	}

	stats := TodoStats{Total: len(todos)}
	for _, todo := range todos {
		if todo.Completed {
			stats.Completed++
		} else {
			stats.Pending++
		}
	}
	if len(todos) > 0 {
		first := todos[0]
		last := todos[len(todos)-1]
		stats.FirstTodo = &first
		stats.LastTodo = &last
	}
	return stats, nil
}

func (s *TodoServiceImpl) GetGroupedByPriority(ctx context.Context) (map[string]PriorityGroup, error) {
	todos, err := s.ListAll(ctx)
	if err != nil {
		return nil, err
	}

	groups := make(map[string]PriorityGroup)
	for _, todo := range todos {
		group := groups[todo.Priority]
		group.Items = append(group.Items, todo)
		group.Count = len(group.Items)
		groups[todo.Priority] = group
	}
	return groups, nil
}

func (s *TodoServiceImpl) find(ctx context.Context, id int64) (*models.Todo, error) {
	var records []models.TodoRecord
	err := s.db.WithContext(ctx).Where("id = ?", id).Limit(1).Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("get todo %d: %w", id, err)
	}
	if len(records) == 0 {
		return nil, nil
	}
	todo := records[0].ToTodo()
	return &todo, nil
}

func (s *TodoServiceImpl) toViews(records []models.TodoRecord) []models.TodoView {
	now := s.now()
	views := make([]models.TodoView, 0, len(records))
	for _, record := range records {
		views = append(views, record.ToTodo().ToView(now))
	}
	return views
}

func validateDueDate(dueDate *string) error {
	if dueDate == nil {
		return nil
	}
	if _, err := models.ParseDueDate(*dueDate, time.Local); err != nil {
		return fmt.Errorf("%w: %q", models.ErrInvalidDueDate, *dueDate)
	}
	return nil
}

func nonBlank(s *string) *string {
	if s == nil || strings.TrimSpace(*s) == "" {
		return nil
	}
	return s
}

func nullable(s *string) interface{} {
	if s == nil {
		return nil
	}
	return *s
}
