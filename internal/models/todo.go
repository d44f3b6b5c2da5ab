package models

import (
	"errors"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"
)

// TimestampLayout is the storage format of created_at and updated_at.
const TimestampLayout = "2006-01-02 15:04:05"

const (
	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"

	DefaultPriority = PriorityMedium
)

var ErrInvalidDueDate = errors.New("invalid due date")

// dueDateLayouts are tried in order for values without a zone offset.
var dueDateLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"2006-01-02T15:04",
	"2006-01-02",
}

// Todo is one revision of a todo item. ID is nil until the row is persisted.
type Todo struct {
	ID          *int64
	Title       string
	Description *string
	Completed   bool
	Priority    string
	DueDate     *string
	CreatedAt   string
	UpdatedAt   string
}

// TodoView is the read-only representation returned to callers.
type TodoView struct {
	ID          *int64  `json:"id"`
	Title       string  `json:"title"`
	Description *string `json:"description"`
	Completed   bool    `json:"completed"`
	Priority    string  `json:"priority"`
	DueDate     *string `json:"due_date"`
	IsOverdue   bool    `json:"is_overdue"`
	CreatedAt   string  `json:"created_at"`
	UpdatedAt   string  `json:"updated_at"`
}

// TodoFields is the partial input accepted by FromPartial. Nil pointers
// take the documented defaults.
type TodoFields struct {
	ID          *int64
	Title       string
	Description *string
	Completed   *bool
	Priority    *string
	DueDate     *string
	CreatedAt   *string
	UpdatedAt   *string
}

// FromPartial builds a fully populated Todo. Missing timestamps both take
// the same value derived from now, so a fresh todo has CreatedAt == UpdatedAt.
func FromPartial(f TodoFields, now time.Time) Todo {
	stamp := FormatTimestamp(now)

	todo := Todo{
		ID:          cloneInt64(f.ID),
		Title:       f.Title,
		Description: cloneString(f.Description),
		Priority:    DefaultPriority,
		DueDate:     cloneString(f.DueDate),
		CreatedAt:   stamp,
		UpdatedAt:   stamp,
	}
	if f.Completed != nil {
		todo.Completed = *f.Completed
	}
	if f.Priority != nil {
		todo.Priority = *f.Priority
	}
	if f.CreatedAt != nil {
		todo.CreatedAt = *f.CreatedAt
	}
	if f.UpdatedAt != nil {
		todo.UpdatedAt = *f.UpdatedAt
	}
	return todo
}

// Persisted reports whether the todo has a store-assigned id.
func (t Todo) Persisted() bool {
	return t.ID != nil
}

// IsOverdue reports whether the todo has a due date strictly before now and
// is still open. Date-only due dates are taken at the start of that day in
// now's location. An unparseable due date is never overdue.
func (t Todo) IsOverdue(now time.Time) bool {
	if t.DueDate == nil || t.Completed {
		return false
	}
	due, err := ParseDueDate(*t.DueDate, now.Location())
	if err != nil {
		return false
	}
	return due.Before(now)
}

// ToView snapshots the todo together with its derived fields.
func (t Todo) ToView(now time.Time) TodoView {
	return TodoView{
		ID:          cloneInt64(t.ID),
		Title:       t.Title,
		Description: cloneString(t.Description),
		Completed:   t.Completed,
		Priority:    t.Priority,
		DueDate:     cloneString(t.DueDate),
		IsOverdue:   t.IsOverdue(now),
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
}

// MarkAsCompleted returns a copy flagged as completed. The receiver is not
// modified and nothing is written to storage.
func (t Todo) MarkAsCompleted(now time.Time) Todo {
	next := t.clone()
	next.Completed = true
	next.UpdatedAt = FormatTimestamp(now)
	return next
}

// MarkAsIncomplete returns a copy flagged as open.
func (t Todo) MarkAsIncomplete(now time.Time) Todo {
	next := t.clone()
	next.Completed = false
	next.UpdatedAt = FormatTimestamp(now)
	return next
}

// UpdateTitle returns a copy with a new title.
func (t Todo) UpdateTitle(title string, now time.Time) Todo {
	next := t.clone()
	next.Title = title
	next.UpdatedAt = FormatTimestamp(now)
	return next
}

// UpdatePriority returns a copy with a new priority.
func (t Todo) UpdatePriority(priority string, now time.Time) Todo {
	next := t.clone()
	next.Priority = priority
	next.UpdatedAt = FormatTimestamp(now)
	return next
}

func (t Todo) clone() Todo {
	next := t
	next.ID = cloneInt64(t.ID)
	next.Description = cloneString(t.Description)
	next.DueDate = cloneString(t.DueDate)
	return next
}

// ValidateTitle reports whether title has content after trimming.
func ValidateTitle(title string) bool {
	return len(strings.TrimSpace(title)) > 0
}

// FormatPriority capitalises a priority label for display: "high" -> "High".
func FormatPriority(priority string) string {
	r, size := utf8.DecodeRuneInString(priority)
	if r == utf8.RuneError {
		return priority
	}
	return string(unicode.ToUpper(r)) + priority[size:]
}

// FormatTimestamp renders t in the storage timestamp layout.
func FormatTimestamp(t time.Time) string {
	return t.Format(TimestampLayout)
}

// ParseDueDate parses a due date. Values carrying a zone offset (RFC 3339)
// keep it; all others are interpreted in loc.
func ParseDueDate(value string, loc *time.Location) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, ErrInvalidDueDate
	}
	if loc == nil {
		loc = time.Local
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	for _, layout := range dueDateLayouts {
		if t, err := time.ParseInLocation(layout, value, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, ErrInvalidDueDate
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

func cloneInt64(i *int64) *int64 {
	if i == nil {
		return nil
	}
	v := *i
	return &v
}
