package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"regexp"
	"strconv"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"todo-tracker/internal/models"
	"todo-tracker/internal/monitoring"
	"todo-tracker/internal/services"
)

const (
	FilterCompleted = "completed"
	FilterPending   = "pending"
)

var idPattern = regexp.MustCompile(`^\d+$`)

type TodoHandler struct {
	todoService services.TodoService
	logger      *log.Logger
}

// NewTodoHandler panics if the binding tags its request types rely on cannot
// be registered.
func NewTodoHandler(todoService services.TodoService, logger *log.Logger) *TodoHandler {
	if err := RegisterValidators(); err != nil {
		panic(err)
	}
	if logger == nil {
		logger = log.Default()
	}
	return &TodoHandler{todoService: todoService, logger: logger}
}

// RegisterRoutes mounts the todo endpoints on r.
func (h *TodoHandler) RegisterRoutes(r gin.IRoutes) {
	r.GET("/todos", h.ListTodos)
	r.GET("/todos/stats", h.GetStats)
	r.GET("/todos/priority", h.GetGroupedByPriority)
	r.GET("/todos/:id", h.GetTodoByID)
	r.POST("/todos", h.CreateTodo)
	r.PUT("/todos/:id", h.UpdateTodo)
	r.DELETE("/todos/:id", h.DeleteTodo)
}

func (h *TodoHandler) ListTodos(c *gin.Context) {
	var (
		todos []models.TodoView
		err   error
	)
	switch c.Query("filter") {
	case FilterCompleted:
		todos, err = h.todoService.ListByStatus(c.Request.Context(), true)
	case FilterPending:
		todos, err = h.todoService.ListByStatus(c.Request.Context(), false)
	default:
		todos, err = h.todoService.ListAll(c.Request.Context())
	}
	if err != nil {
		h.handleError(c, "list", err)
		return
	}
	monitoring.TrackTodoOperation("list", "ok")
	c.JSON(http.StatusOK, todos)
}

func (h *TodoHandler) GetStats(c *gin.Context) {
	stats, err := h.todoService.GetStats(c.Request.Context())
	if err != nil {
		h.handleError(c, "stats", err)
		return
	}
	monitoring.TrackTodoOperation("stats", "ok")
	c.JSON(http.StatusOK, stats)
}

func (h *TodoHandler) GetGroupedByPriority(c *gin.Context) {
	groups, err := h.todoService.GetGroupedByPriority(c.Request.Context())
	if err != nil {
		h.handleError(c, "group", err)
		return
	}
	monitoring.TrackTodoOperation("group", "ok")
	c.JSON(http.StatusOK, groups)
}

func (h *TodoHandler) GetTodoByID(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	todo, err := h.todoService.GetByID(c.Request.Context(), id)
	if err != nil {
		h.handleError(c, "get", err)
		return
	}
	if todo == nil {
		todoNotFound(c, "get")
		return
	}
	monitoring.TrackTodoOperation("get", "ok")
	c.JSON(http.StatusOK, todo)
}

func (h *TodoHandler) CreateTodo(c *gin.Context) {
	var req services.CreateTodoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		if errors.Is(err, io.EOF) {
			// An empty body carries no title.
			badRequest(c, "create", "Title is required")
			return
		}
		h.handleBindError(c, "create", err)
		return
	}

	todo, err := h.todoService.Create(c.Request.Context(), req)
	if err != nil {
		h.handleError(c, "create", err)
		return
	}
	monitoring.TrackTodoOperation("create", "ok")
	c.JSON(http.StatusCreated, todo)
}

func (h *TodoHandler) UpdateTodo(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	var req services.UpdateTodoRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		h.handleBindError(c, "update", err)
		return
	}

	todo, err := h.todoService.Update(c.Request.Context(), id, req)
	if err != nil {
		h.handleError(c, "update", err)
		return
	}
	if todo == nil {
		todoNotFound(c, "update")
		return
	}
	monitoring.TrackTodoOperation("update", "ok")
	c.JSON(http.StatusOK, todo)
}

func (h *TodoHandler) DeleteTodo(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	deleted, err := h.todoService.Delete(c.Request.Context(), id)
	if err != nil {
		h.handleError(c, "delete", err)
		return
	}
	if !deleted {
		todoNotFound(c, "delete")
		return
	}
	monitoring.TrackTodoOperation("delete", "ok")
	c.Status(http.StatusNoContent)
}

// RouteNotFound answers any request no route matched.
func RouteNotFound(c *gin.Context) {
	c.JSON(http.StatusNotFound, gin.H{"error": "Route not found"})
}

// parseID accepts decimal ids only. Anything else is treated as an unknown
// route, not an unknown todo.
func parseID(c *gin.Context) (int64, bool) {
	raw := c.Param("id")
	if !idPattern.MatchString(raw) {
		RouteNotFound(c)
		return 0, false
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		RouteNotFound(c)
		return 0, false
	}
	return id, true
}

func todoNotFound(c *gin.Context, operation string) {
	monitoring.TrackTodoOperation(operation, "not_found")
	c.JSON(http.StatusNotFound, gin.H{"error": "Todo not found"})
}

func badRequest(c *gin.Context, operation, message string) {
	monitoring.TrackTodoOperation(operation, "invalid")
	c.JSON(http.StatusBadRequest, gin.H{"error": message})
}

func (h *TodoHandler) handleBindError(c *gin.Context, operation string, err error) {
	var validationErrs validator.ValidationErrors
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	switch {
	case errors.As(err, &validationErrs):
		badRequest(c, operation, bindingMessage(validationErrs))
	case errors.As(err, &syntaxErr), errors.Is(err, io.ErrUnexpectedEOF):
		badRequest(c, operation, "Invalid JSON body")
	case errors.As(err, &typeErr) && typeErr.Field != "":
		badRequest(c, operation, "Invalid value for "+typeErr.Field)
	case errors.As(err, &typeErr):
		badRequest(c, operation, "Invalid JSON body")
	default:
		badRequest(c, operation, err.Error())
	}
}

func (h *TodoHandler) handleError(c *gin.Context, operation string, err error) {
	switch {
	case errors.Is(err, services.ErrInvalidTitle):
		badRequest(c, operation, "Title is required")
	case errors.Is(err, models.ErrInvalidDueDate):
		badRequest(c, operation, "Invalid due date")
	default:
		monitoring.TrackTodoOperation(operation, "error")
		h.logger.Error("todo operation failed", "operation", operation, "err", err)
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
