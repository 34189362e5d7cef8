package handlers

import (
	"net/http"

	"task-sync-backend/pkg/config"
	"task-sync-backend/pkg/database"
	"task-sync-backend/pkg/middleware"
	"task-sync-backend/pkg/models"
	"task-sync-backend/pkg/tasks"
	"task-sync-backend/pkg/utils"

	"github.com/go-chi/chi/v5"
)

// TasksHandler serves the task CRUD and capability endpoints
type TasksHandler struct {
	config *config.Config
	tasks  *tasks.Service
}

// NewTasksHandler creates the tasks handler
func NewTasksHandler(cfg *config.Config, db database.DatabaseInterface) *TasksHandler {
	return &TasksHandler{
		config: cfg,
		tasks:  tasks.NewService(db),
	}
}

// ListTasks returns the tasks of one space.
func (h *TasksHandler) ListTasks(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.RequireUser(r.Context())
	if err != nil {
		utils.WriteUnauthorizedResponse(w, "Not authenticated")
		return
	}

	spaceID := utils.GetQueryParam(r, "space_id", "")
	if spaceID == "" {
		utils.WriteBadRequestResponse(w, "space_id query parameter is required")
		return
	}

	list, err := h.tasks.ListBySpace(user.ID, spaceID)
	if err != nil {
		utils.WriteAppError(w, err)
		return
	}
	utils.WriteSuccessResponse(w, list)
}

// CompletedTasks returns completed tasks, in one space or across all of
// the user's spaces.
func (h *TasksHandler) CompletedTasks(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.RequireUser(r.Context())
	if err != nil {
		utils.WriteUnauthorizedResponse(w, "Not authenticated")
		return
	}

	spaceID := utils.GetQueryParam(r, "space_id", "")
	list, err := h.tasks.ListCompleted(user.ID, spaceID)
	if err != nil {
		utils.WriteAppError(w, err)
		return
	}
	utils.WriteSuccessResponse(w, list)
}

// CreateTask creates a task in a space the user belongs to.
func (h *TasksHandler) CreateTask(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.RequireUser(r.Context())
	if err != nil {
		utils.WriteUnauthorizedResponse(w, "Not authenticated")
		return
	}

	var task models.Task
	if err := utils.ParseJSONBody(r, &task); err != nil {
		utils.WriteBadRequestResponse(w, "Invalid request body")
		return
	}

	created, err := h.tasks.Create(user.ID, &task)
	if err != nil {
		utils.WriteAppError(w, err)
		return
	}
	utils.WriteCreatedResponse(w, created)
}

// UpdateTask rewrites a task's editable fields.
func (h *TasksHandler) UpdateTask(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.RequireUser(r.Context())
	if err != nil {
		utils.WriteUnauthorizedResponse(w, "Not authenticated")
		return
	}

	var task models.Task
	if err := utils.ParseJSONBody(r, &task); err != nil {
		utils.WriteBadRequestResponse(w, "Invalid request body")
		return
	}
	task.ID = chi.URLParam(r, "taskID")

	updated, err := h.tasks.Update(user.ID, &task)
	if err != nil {
		utils.WriteAppError(w, err)
		return
	}
	utils.WriteSuccessResponse(w, updated)
}

// UpdateStatus flips a task's completion flag.
func (h *TasksHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.RequireUser(r.Context())
	if err != nil {
		utils.WriteUnauthorizedResponse(w, "Not authenticated")
		return
	}

	var req struct {
		Status models.TaskStatus `json:"status"`
	}
	if err := utils.ParseJSONBody(r, &req); err != nil {
		utils.WriteBadRequestResponse(w, "Invalid request body")
		return
	}

	updated, err := h.tasks.UpdateStatus(user.ID, chi.URLParam(r, "taskID"), req.Status)
	if err != nil {
		utils.WriteAppError(w, err)
		return
	}
	utils.WriteSuccessResponse(w, updated)
}

// UpdateProgress sets a task's progress percentage.
func (h *TasksHandler) UpdateProgress(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.RequireUser(r.Context())
	if err != nil {
		utils.WriteUnauthorizedResponse(w, "Not authenticated")
		return
	}

	var req struct {
		ProgressPercentage int `json:"progressPercentage"`
	}
	if err := utils.ParseJSONBody(r, &req); err != nil {
		utils.WriteBadRequestResponse(w, "Invalid request body")
		return
	}

	updated, err := h.tasks.UpdateProgress(user.ID, chi.URLParam(r, "taskID"), req.ProgressPercentage)
	if err != nil {
		utils.WriteAppError(w, err)
		return
	}
	utils.WriteSuccessResponse(w, updated)
}

// DeleteTask removes a task.
func (h *TasksHandler) DeleteTask(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.RequireUser(r.Context())
	if err != nil {
		utils.WriteUnauthorizedResponse(w, "Not authenticated")
		return
	}

	if err := h.tasks.Delete(user.ID, chi.URLParam(r, "taskID")); err != nil {
		utils.WriteAppError(w, err)
		return
	}
	utils.WriteSuccessResponse(w, map[string]string{"status": "deleted"})
}

// Capabilities reports what the viewer may do with a task. Advisory only;
// every mutation re-checks server-side.
func (h *TasksHandler) Capabilities(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.RequireUser(r.Context())
	if err != nil {
		utils.WriteUnauthorizedResponse(w, "Not authenticated")
		return
	}

	caps, err := h.tasks.Capabilities(user.ID, chi.URLParam(r, "taskID"))
	if err != nil {
		utils.WriteAppError(w, err)
		return
	}
	utils.WriteSuccessResponse(w, caps)
}
