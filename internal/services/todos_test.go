package services_test

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"todo-tracker/internal/database"
	"todo-tracker/internal/models"
	"todo-tracker/internal/services"
)

type TodoServiceTestSuite struct {
	suite.Suite
	db      *gorm.DB
	service *services.TodoServiceImpl
	now     time.Time
	ctx     context.Context
}

func (suite *TodoServiceTestSuite) SetupTest() {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	suite.Require().NoError(err)

	sqlDB, err := db.DB()
	suite.Require().NoError(err)
	sqlDB.SetMaxOpenConns(1)

	suite.Require().NoError(database.EnsureSchema(db))

	suite.db = db
	suite.ctx = context.Background()
	suite.now = time.Date(2025, 6, 15, 12, 0, 0, 0, time.Local)
	suite.service = services.NewTodoService(db, services.WithClock(func() time.Time {
		return suite.now
	}))
}

func (suite *TodoServiceTestSuite) TearDownTest() {
	sqlDB, err := suite.db.DB()
	if err == nil {
		sqlDB.Close()
	}
}

func (suite *TodoServiceTestSuite) advance(d time.Duration) {
	suite.now = suite.now.Add(d)
}

func (suite *TodoServiceTestSuite) create(title string) models.TodoView {
	view, err := suite.service.Create(suite.ctx, services.CreateTodoRequest{Title: title})
	suite.Require().NoError(err)
	return view
}

func strPtr(s string) *string { return &s }

func (suite *TodoServiceTestSuite) TestCreate_Defaults() {
	view := suite.create("Buy milk")

	suite.Require().NotNil(view.ID)
	suite.Equal("Buy milk", view.Title)
	suite.Nil(view.Description)
	suite.False(view.Completed)
	suite.Equal(models.DefaultPriority, view.Priority)
	suite.Nil(view.DueDate)
	suite.False(view.IsOverdue)
	suite.Equal("2025-06-15 12:00:00", view.CreatedAt)
	suite.Equal(view.CreatedAt, view.UpdatedAt)
}

func (suite *TodoServiceTestSuite) TestCreateThenGet_ReturnsSameTodo() {
	created, err := suite.service.Create(suite.ctx, services.CreateTodoRequest{
		Title:       "Write report",
		Description: strPtr("quarterly"),
		Priority:    strPtr(models.PriorityHigh),
		DueDate:     strPtr("2099-01-01"),
	})
	suite.Require().NoError(err)

	fetched, err := suite.service.GetByID(suite.ctx, *created.ID)
	suite.Require().NoError(err)
	suite.Require().NotNil(fetched)
	suite.Equal(created, *fetched)
	suite.Equal("quarterly", *fetched.Description)
	suite.Equal("high", fetched.Priority)
}

func (suite *TodoServiceTestSuite) TestCreate_AssignsIncreasingIDs() {
	first := suite.create("one")
	second := suite.create("two")
	suite.Greater(*second.ID, *first.ID)
}

func (suite *TodoServiceTestSuite) TestCreate_RejectsBlankTitle() {
	for _, title := range []string{"", "   ", "\t\n"} {
		_, err := suite.service.Create(suite.ctx, services.CreateTodoRequest{Title: title})
		suite.ErrorIs(err, services.ErrInvalidTitle)
	}

	all, err := suite.service.ListAll(suite.ctx)
	suite.Require().NoError(err)
	suite.Empty(all)
}

func (suite *TodoServiceTestSuite) TestCreate_RejectsInvalidDueDate() {
	_, err := suite.service.Create(suite.ctx, services.CreateTodoRequest{
		Title:   "x",
		DueDate: strPtr("tomorrow-ish"),
	})
	suite.ErrorIs(err, models.ErrInvalidDueDate)
}

func (suite *TodoServiceTestSuite) TestCreate_BlankPriorityUsesDefault() {
	view, err := suite.service.Create(suite.ctx, services.CreateTodoRequest{Title: "x", Priority: strPtr("  ")})
	suite.Require().NoError(err)
	suite.Equal(models.DefaultPriority, view.Priority)
}

func (suite *TodoServiceTestSuite) TestGetByID_Missing() {
	view, err := suite.service.GetByID(suite.ctx, 999)
	suite.NoError(err)
	suite.Nil(view)
}

func (suite *TodoServiceTestSuite) TestUpdate_EmptyChangesOnlyUpdatedAt() {
	created := suite.create("Stable")
	suite.advance(time.Minute)

	updated, err := suite.service.Update(suite.ctx, *created.ID, services.UpdateTodoRequest{})
	suite.Require().NoError(err)
	suite.Require().NotNil(updated)

	suite.Equal(created.Title, updated.Title)
	suite.Equal(created.Description, updated.Description)
	suite.Equal(created.Completed, updated.Completed)
	suite.Equal(created.Priority, updated.Priority)
	suite.Equal(created.DueDate, updated.DueDate)
	suite.Equal(created.CreatedAt, updated.CreatedAt)
	suite.Equal("2025-06-15 12:01:00", updated.UpdatedAt)
}

func (suite *TodoServiceTestSuite) TestUpdate_AppliesFields() {
	created := suite.create("Draft")
	suite.advance(time.Hour)

	updated, err := suite.service.Update(suite.ctx, *created.ID, services.UpdateTodoRequest{
		Title:       models.Some("Final"),
		Description: models.Some(strPtr("details")),
		Completed:   models.Some(true),
		Priority:    models.Some(models.PriorityLow),
		DueDate:     models.Some(strPtr("2020-01-01")),
	})
	suite.Require().NoError(err)
	suite.Require().NotNil(updated)

	suite.Equal("Final", updated.Title)
	suite.Equal("details", *updated.Description)
	suite.True(updated.Completed)
	suite.Equal("low", updated.Priority)
	suite.Equal("2020-01-01", *updated.DueDate)
	suite.False(updated.IsOverdue, "completed todos are never overdue")
	suite.Equal(created.CreatedAt, updated.CreatedAt)

	reopened, err := suite.service.Update(suite.ctx, *created.ID, services.UpdateTodoRequest{
		Completed: models.Some(false),
	})
	suite.Require().NoError(err)
	suite.False(reopened.Completed)
	suite.True(reopened.IsOverdue)
}

func (suite *TodoServiceTestSuite) TestUpdate_NullClearsNullableFields() {
	created, err := suite.service.Create(suite.ctx, services.CreateTodoRequest{
		Title:       "With extras",
		Description: strPtr("remove me"),
		DueDate:     strPtr("2099-01-01"),
	})
	suite.Require().NoError(err)

	var req services.UpdateTodoRequest
	suite.Require().NoError(json.Unmarshal([]byte(`{"description":null,"due_date":null,"title":null,"completed":null}`), &req))

	updated, err := suite.service.Update(suite.ctx, *created.ID, req)
	suite.Require().NoError(err)
	suite.Require().NotNil(updated)

	suite.Nil(updated.Description)
	suite.Nil(updated.DueDate)
	suite.Equal("With extras", updated.Title)
	suite.False(updated.Completed)
}

func (suite *TodoServiceTestSuite) TestUpdate_RejectsBlankTitle() {
	created := suite.create("Keep")

	_, err := suite.service.Update(suite.ctx, *created.ID, services.UpdateTodoRequest{Title: models.Some("  ")})
	suite.ErrorIs(err, services.ErrInvalidTitle)

	fetched, err := suite.service.GetByID(suite.ctx, *created.ID)
	suite.Require().NoError(err)
	suite.Equal("Keep", fetched.Title)
}

func (suite *TodoServiceTestSuite) TestUpdate_Missing() {
	suite.create("only")

	updated, err := suite.service.Update(suite.ctx, 999, services.UpdateTodoRequest{Title: models.Some("ghost")})
	suite.NoError(err)
	suite.Nil(updated)

	all, err := suite.service.ListAll(suite.ctx)
	suite.Require().NoError(err)
	suite.Len(all, 1)
}

func (suite *TodoServiceTestSuite) TestDelete() {
	created := suite.create("Disposable")

	deleted, err := suite.service.Delete(suite.ctx, *created.ID)
	suite.Require().NoError(err)
	suite.True(deleted)

	deleted, err = suite.service.Delete(suite.ctx, *created.ID)
	suite.Require().NoError(err)
	suite.False(deleted)

	view, err := suite.service.GetByID(suite.ctx, *created.ID)
	suite.NoError(err)
	suite.Nil(view)
}

func (suite *TodoServiceTestSuite) TestListAll_NewestFirst() {
	first := suite.create("first")
	suite.advance(time.Second)
	second := suite.create("second")
	third := suite.create("third")

	all, err := suite.service.ListAll(suite.ctx)
	suite.Require().NoError(err)
	suite.Require().Len(all, 3)

	// second and third share a timestamp; the higher id wins the tie.
	suite.Equal(*third.ID, *all[0].ID)
	suite.Equal(*second.ID, *all[1].ID)
	suite.Equal(*first.ID, *all[2].ID)
}

func (suite *TodoServiceTestSuite) TestListAll_EmptyIsNotNil() {
	all, err := suite.service.ListAll(suite.ctx)
	suite.Require().NoError(err)
	suite.NotNil(all)
	suite.Empty(all)
}

func (suite *TodoServiceTestSuite) TestListByStatus() {
	a := suite.create("A")
	suite.create("B")
	_, err := suite.service.Update(suite.ctx, *a.ID, services.UpdateTodoRequest{Completed: models.Some(true)})
	suite.Require().NoError(err)

	done, err := suite.service.ListByStatus(suite.ctx, true)
	suite.Require().NoError(err)
	suite.Require().Len(done, 1)
	suite.Equal("A", done[0].Title)

	open, err := suite.service.ListByStatus(suite.ctx, false)
	suite.Require().NoError(err)
	suite.Require().Len(open, 1)
	suite.Equal("B", open[0].Title)
}

func (suite *TodoServiceTestSuite) TestOverdueScenario() {
	_, err := suite.service.Create(suite.ctx, services.CreateTodoRequest{
		Title:    "A",
		Priority: strPtr(models.PriorityHigh),
		DueDate:  strPtr("2020-01-01"),
	})
	suite.Require().NoError(err)
	b := suite.create("B")

	all, err := suite.service.ListAll(suite.ctx)
	suite.Require().NoError(err)
	suite.Require().Len(all, 2)

	byTitle := map[string]models.TodoView{}
	for _, v := range all {
		byTitle[v.Title] = v
	}
	suite.True(byTitle["A"].IsOverdue)
	suite.Equal("high", byTitle["A"].Priority)
	suite.False(byTitle["B"].IsOverdue)
	suite.Equal("medium", b.Priority)
	suite.Nil(b.DueDate)
}

func (suite *TodoServiceTestSuite) TestGetStats() {
	stats, err := suite.service.GetStats(suite.ctx)
	suite.Require().NoError(err)
	suite.Equal(0, stats.Total)
	suite.Nil(stats.FirstTodo)
	suite.Nil(stats.LastTodo)

	oldest := suite.create("oldest")
	suite.advance(time.Second)
	suite.create("middle")
	suite.advance(time.Second)
	newest := suite.create("newest")
	_, err = suite.service.Update(suite.ctx, *oldest.ID, services.UpdateTodoRequest{Completed: models.Some(true)})
	suite.Require().NoError(err)

	stats, err = suite.service.GetStats(suite.ctx)
	suite.Require().NoError(err)
	suite.Equal(3, stats.Total)
	suite.Equal(1, stats.Completed)
	suite.Equal(2, stats.Pending)
	suite.Equal(stats.Total, stats.Completed+stats.Pending)
	suite.Require().NotNil(stats.FirstTodo)
	suite.Require().NotNil(stats.LastTodo)
	suite.Equal(*newest.ID, *stats.FirstTodo.ID)
	suite.Equal(*oldest.ID, *stats.LastTodo.ID)

	raw, err := json.Marshal(stats)
	suite.Require().NoError(err)
	suite.Contains(string(raw), `"first_todo"`)
	suite.Contains(string(raw), `"last_todo"`)
}

func (suite *TodoServiceTestSuite) TestGetGroupedByPriority() {
	for _, p := range []string{"high", "low", "high", "medium"} {
		_, err := suite.service.Create(suite.ctx, services.CreateTodoRequest{Title: p, Priority: strPtr(p)})
		suite.Require().NoError(err)
	}

	groups, err := suite.service.GetGroupedByPriority(suite.ctx)
	suite.Require().NoError(err)
	suite.Len(groups, 3)
	suite.Equal(2, groups["high"].Count)
	suite.Len(groups["high"].Items, 2)
	suite.Equal(1, groups["low"].Count)
	suite.Equal(1, groups["medium"].Count)

	total := 0
	for priority, group := range groups {
		suite.Equal(len(group.Items), group.Count)
		for _, item := range group.Items {
			suite.Equal(priority, item.Priority)
		}
		total += group.Count
	}
	suite.Equal(4, total)
}

func (suite *TodoServiceTestSuite) TestGetGroupedByPriority_KeepsListOrder() {
	for i, p := range []string{"high", "low", "high", "medium", "high", "low"} {
		_, err := suite.service.Create(suite.ctx, services.CreateTodoRequest{
			Title:    fmt.Sprintf("%s-%d", p, i),
			Priority: strPtr(p),
		})
		suite.Require().NoError(err)
		suite.advance(time.Minute)
	}

	all, err := suite.service.ListAll(suite.ctx)
	suite.Require().NoError(err)
	groups, err := suite.service.GetGroupedByPriority(suite.ctx)
	suite.Require().NoError(err)

	for priority, group := range groups {
		var want []int64
		for _, v := range all {
			if v.Priority == priority {
				want = append(want, *v.ID)
			}
		}
		var got []int64
		for _, item := range group.Items {
			got = append(got, *item.ID)
		}
		suite.Equal(want, got, priority)
	}

	high := groups["high"].Items
	suite.Require().Len(high, 3)
	suite.Equal("high-4", high[0].Title)
	suite.Equal("high-2", high[1].Title)
	suite.Equal("high-0", high[2].Title)
}

func (suite *TodoServiceTestSuite) TestGetGroupedByPriority_Empty() {
	groups, err := suite.service.GetGroupedByPriority(suite.ctx)
	suite.Require().NoError(err)
	suite.Empty(groups)
}

func (suite *TodoServiceTestSuite) TestCanceledContext() {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := suite.service.ListAll(ctx)
	suite.Error(err)
}

func TestTodoServiceTestSuite(t *testing.T) {
	suite.Run(t, new(TodoServiceTestSuite))
}
