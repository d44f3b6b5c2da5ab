package models

// TodoRecord maps a row of the todos table. Completed is kept as 0/1 so the
// column stays an integer on every dialect.
type TodoRecord struct {
	ID          int64   `gorm:"primaryKey;autoIncrement"`
	Title       string  `gorm:"type:text;not null"`
	Description *string `gorm:"type:text"`
	Completed   int     `gorm:"type:integer;default:0"`
	Priority    string  `gorm:"type:text;default:'medium'"`
	DueDate     *string `gorm:"type:text"`
	CreatedAt   string  `gorm:"type:text;not null"`
	UpdatedAt   string  `gorm:"type:text;not null"`
}

func (TodoRecord) TableName() string {
	return "todos"
}

// RecordFromTodo converts an entity to its row form. A transient todo maps
// to ID 0 so the store assigns one on insert.
func RecordFromTodo(t Todo) TodoRecord {
	rec := TodoRecord{
		Title:       t.Title,
		Description: cloneString(t.Description),
		Completed:   BoolToInt(t.Completed),
		Priority:    t.Priority,
		DueDate:     cloneString(t.DueDate),
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
	if t.ID != nil {
		rec.ID = *t.ID
	}
	return rec
}

// ToTodo converts a persisted row back to the entity.
func (r TodoRecord) ToTodo() Todo {
	id := r.ID
	return Todo{
		ID:          &id,
		Title:       r.Title,
		Description: cloneString(r.Description),
		Completed:   r.Completed != 0,
		Priority:    r.Priority,
		DueDate:     cloneString(r.DueDate),
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
}

func BoolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
