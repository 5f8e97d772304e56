package api

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/daykeep/daykeep-api/internal/api/shared"
	"github.com/daykeep/daykeep-api/internal/domain"
	"github.com/daykeep/daykeep-api/internal/service"
)

// CreateTaskRequest represents the request body for creating a new task.
// Due dates are date-granular: the time of day is normalized to midnight UTC.
type CreateTaskRequest struct {
	Title      string `json:"title"      validate:"required,min=1"`
	Notes      string `json:"notes"`
	DueDate    string `json:"due_date"   validate:"required"`
	Recurrence string `json:"recurrence" validate:"omitempty,oneof=daily weekly monthly yearly"`
}

// UpdateTaskRequest represents a partial task update; absent fields are
// left unchanged. An empty recurrence string clears the recurrence.
type UpdateTaskRequest struct {
	Title      *string   `json:"title"      validate:"omitempty,min=1"`
	Notes      *string   `json:"notes"`
	DueDate    *string   `json:"due_date"`
	Recurrence *string   `json:"recurrence" validate:"omitempty,oneof='' daily weekly monthly yearly"`
	Tags       *[]string `json:"tags"`
}

// TaskResponse represents the response data for a task.
type TaskResponse struct {
	ID             string     `json:"id"`
	Title          string     `json:"title"`
	Notes          string     `json:"notes"`
	DueDate        time.Time  `json:"due_date"`
	Completed      bool       `json:"completed"`
	CompletedAt    *time.Time `json:"completed_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	IsRecurring    bool       `json:"is_recurring"`
	RecurrenceType string     `json:"recurrence_type,omitempty"`
	Tags           []string   `json:"tags"`
}

// CompleteTaskResponse carries the completed task and, when the task was
// recurring, the follow-up occurrence spawned by the completion.
type CompleteTaskResponse struct {
	Task TaskResponse  `json:"task"`
	Next *TaskResponse `json:"next,omitempty"`
}

// TaskHandler handles task-related HTTP requests.
type TaskHandler struct {
	taskService service.TaskService
	logger      *slog.Logger
}

// NewTaskHandler creates a new TaskHandler.
func NewTaskHandler(taskService service.TaskService, logger *slog.Logger) *TaskHandler {
	return &TaskHandler{
		taskService: taskService,
		logger:      logger,
	}
}

// ListTasks handles GET /api/tasks requests.
func (h *TaskHandler) ListTasks(w http.ResponseWriter, r *http.Request) {
	tasks, err := h.taskService.ListTasks(r.Context())
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, StatusForError(err), "Failed to list tasks", err)
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, tasksToResponse(tasks))
}

// TodayTasks handles GET /api/tasks/today requests. Overdue tasks roll into
// today.
func (h *TaskHandler) TodayTasks(w http.ResponseWriter, r *http.Request) {
	tasks, err := h.taskService.TodayTasks(r.Context())
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, StatusForError(err), "Failed to list today's tasks", err)
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, tasksToResponse(tasks))
}

// UpcomingTasks handles GET /api/tasks/upcoming requests.
func (h *TaskHandler) UpcomingTasks(w http.ResponseWriter, r *http.Request) {
	tasks, err := h.taskService.UpcomingTasks(r.Context())
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, StatusForError(err), "Failed to list upcoming tasks", err)
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, tasksToResponse(tasks))
}

// CompletedTasks handles GET /api/tasks/completed requests.
func (h *TaskHandler) CompletedTasks(w http.ResponseWriter, r *http.Request) {
	tasks, err := h.taskService.CompletedTasks(r.Context())
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, StatusForError(err), "Failed to list completed tasks", err)
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, tasksToResponse(tasks))
}

// CreateTask handles POST /api/tasks requests.
func (h *TaskHandler) CreateTask(w http.ResponseWriter, r *http.Request) {
	var req CreateTaskRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}

	if err := shared.ValidateRequest(req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}

	dueDate, err := parseDueDate(req.DueDate)
	if err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid due date: "+err.Error())
		return
	}

	task, err := h.taskService.AddTask(r.Context(), service.AddTaskParams{
		Title:      req.Title,
		Notes:      req.Notes,
		DueDate:    dueDate,
		Recurrence: domain.RecurrenceType(req.Recurrence),
	})
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, StatusForError(err), "Failed to create task", err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusCreated, taskToResponse(*task))
}

// UpdateTask handles PUT /api/tasks/{id} requests.
func (h *TaskHandler) UpdateTask(w http.ResponseWriter, r *http.Request) {
	id, ok := h.taskID(w, r)
	if !ok {
		return
	}

	var req UpdateTaskRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}

	if err := shared.ValidateRequest(req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}

	params := service.UpdateTaskParams{
		Title: req.Title,
		Notes: req.Notes,
		Tags:  req.Tags,
	}
	if req.DueDate != nil {
		dueDate, err := parseDueDate(*req.DueDate)
		if err != nil {
			shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid due date: "+err.Error())
			return
		}
		params.DueDate = &dueDate
	}
	if req.Recurrence != nil {
		recurrence := domain.RecurrenceType(*req.Recurrence)
		params.Recurrence = &recurrence
	}

	task, err := h.taskService.UpdateTask(r.Context(), id, params)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, StatusForError(err), "Failed to update task", err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, taskToResponse(*task))
}

// DeleteTask handles DELETE /api/tasks/{id} requests.
func (h *TaskHandler) DeleteTask(w http.ResponseWriter, r *http.Request) {
	id, ok := h.taskID(w, r)
	if !ok {
		return
	}

	if err := h.taskService.DeleteTask(r.Context(), id); err != nil {
		shared.RespondWithErrorAndLog(w, r, StatusForError(err), "Failed to delete task", err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusNoContent, nil)
}

// CompleteTask handles POST /api/tasks/{id}/complete requests.
func (h *TaskHandler) CompleteTask(w http.ResponseWriter, r *http.Request) {
	id, ok := h.taskID(w, r)
	if !ok {
		return
	}

	completed, next, err := h.taskService.CompleteTask(r.Context(), id)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, StatusForError(err), "Failed to complete task", err)
		return
	}

	resp := CompleteTaskResponse{Task: taskToResponse(*completed)}
	if next != nil {
		nextResp := taskToResponse(*next)
		resp.Next = &nextResp
	}
	shared.RespondWithJSON(w, r, http.StatusOK, resp)
}

// UncompleteTask handles POST /api/tasks/{id}/uncomplete requests.
func (h *TaskHandler) UncompleteTask(w http.ResponseWriter, r *http.Request) {
	id, ok := h.taskID(w, r)
	if !ok {
		return
	}

	task, err := h.taskService.UncompleteTask(r.Context(), id)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, StatusForError(err), "Failed to uncomplete task", err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, taskToResponse(*task))
}

// taskID extracts and parses the {id} URL parameter, responding with 400 on
// a malformed value.
func (h *TaskHandler) taskID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid task ID")
		return uuid.Nil, false
	}
	return id, true
}

// parseDueDate accepts a plain date (2006-01-02) or an RFC 3339 timestamp
// and normalizes either to midnight UTC; due dates are date-granular.
func parseDueDate(s string) (time.Time, error) {
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		t = t.UTC()
		return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
	}
	return time.Time{}, fmt.Errorf("want YYYY-MM-DD or RFC 3339, got %q", s)
}

// taskToResponse converts a domain.Task to a TaskResponse.
func taskToResponse(task domain.Task) TaskResponse {
	tags := task.Tags
	if tags == nil {
		tags = []string{}
	}
	return TaskResponse{
		ID:             task.ID.String(),
		Title:          task.Title,
		Notes:          task.Notes,
		DueDate:        task.DueDate,
		Completed:      task.Completed,
		CompletedAt:    task.CompletedAt,
		CreatedAt:      task.CreatedAt,
		IsRecurring:    task.IsRecurring,
		RecurrenceType: string(task.RecurrenceType),
		Tags:           tags,
	}
}

func tasksToResponse(tasks []domain.Task) []TaskResponse {
	out := make([]TaskResponse, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, taskToResponse(t))
	}
	return out
}
