package tasks

import (
	"time"

	"task-sync-backend/pkg/apperrors"
	"task-sync-backend/pkg/database"
	"task-sync-backend/pkg/models"
	"task-sync-backend/pkg/permissions"
)

// Service implements task operations on top of the durable store. Every
// mutation re-checks capabilities server-side; clients only use the
// capability endpoint to grey out buttons.
type Service struct {
	db database.DatabaseInterface
}

// NewService creates a task service
func NewService(db database.DatabaseInterface) *Service {
	return &Service{db: db}
}

// requireMember loads the space and verifies the viewer belongs to it.
func (s *Service) requireMember(spaceID, viewerID string) (*models.Space, error) {
	space, err := s.db.GetSpaceByID(spaceID)
	if err != nil {
		return nil, err
	}
	if !space.HasMember(viewerID) {
		return nil, apperrors.PermissionDenied("not a member of the space")
	}
	return space, nil
}

// Create validates and persists a new task in the creator's space.
func (s *Service) Create(creatorID string, task *models.Task) (*models.Task, error) {
	if task.Title == "" {
		return nil, apperrors.Invalid("title is required")
	}
	if task.SpaceID == "" {
		return nil, apperrors.Invalid("spaceId is required")
	}
	if _, err := s.requireMember(task.SpaceID, creatorID); err != nil {
		return nil, err
	}

	task.CreatorID = creatorID
	if task.Type == "" {
		task.Type = models.TypeTask
	}
	if task.Priority == "" {
		task.Priority = models.PriorityNormal
	}
	if task.Status == "" {
		task.Status = models.StatusPending
	}
	if task.Scope == "" {
		task.Scope = models.ScopeShared
	}
	if task.Effort <= 0 {
		task.Effort = 1
	}
	if task.ProgressPercentage < 0 || task.ProgressPercentage > 100 {
		return nil, apperrors.Invalid("progressPercentage must be between 0 and 100")
	}

	if err := s.db.CreateTask(task); err != nil {
		return nil, err
	}
	return task, nil
}

// Get returns one task after a membership check.
func (s *Service) Get(viewerID, taskID string) (*models.Task, error) {
	task, err := s.db.GetTaskByID(taskID)
	if err != nil {
		return nil, err
	}
	if _, err := s.requireMember(task.SpaceID, viewerID); err != nil {
		return nil, err
	}
	return task, nil
}

// ListBySpace returns the space's tasks for a member.
func (s *Service) ListBySpace(viewerID, spaceID string) ([]models.Task, error) {
	if _, err := s.requireMember(spaceID, viewerID); err != nil {
		return nil, err
	}
	return s.db.ListTasksBySpace(spaceID)
}

// ListCompleted returns completed tasks in one space, or across all of the
// viewer's spaces when spaceID is empty.
func (s *Service) ListCompleted(viewerID, spaceID string) ([]models.Task, error) {
	if spaceID != "" {
		if _, err := s.requireMember(spaceID, viewerID); err != nil {
			return nil, err
		}
	}
	return s.db.ListCompletedTasks(viewerID, spaceID)
}

// Update rewrites the editable fields of a task. Requires the edit
// capability on the current stored task.
func (s *Service) Update(viewerID string, task *models.Task) (*models.Task, error) {
	current, err := s.Get(viewerID, task.ID)
	if err != nil {
		return nil, err
	}
	if !permissions.ForTask(current, viewerID).CanEdit {
		return nil, apperrors.PermissionDenied("not allowed to edit this task")
	}
	if task.Title == "" {
		return nil, apperrors.Invalid("title is required")
	}
	if task.Effort <= 0 {
		return nil, apperrors.Invalid("effort must be positive")
	}
	if task.ProgressPercentage < 0 || task.ProgressPercentage > 100 {
		return nil, apperrors.Invalid("progressPercentage must be between 0 and 100")
	}

	// Creator, space and creation time are immutable
	task.CreatorID = current.CreatorID
	task.SpaceID = current.SpaceID
	task.CreatedAt = current.CreatedAt

	if err := s.db.UpdateTask(task); err != nil {
		return nil, err
	}
	return task, nil
}

// UpdateStatus flips the completion flag. Requires the complete capability.
func (s *Service) UpdateStatus(viewerID, taskID string, status models.TaskStatus) (*models.Task, error) {
	if status != models.StatusPending && status != models.StatusCompleted {
		return nil, apperrors.Invalid("status must be pending or completed")
	}
	current, err := s.Get(viewerID, taskID)
	if err != nil {
		return nil, err
	}
	if !permissions.ForTask(current, viewerID).CanComplete {
		return nil, apperrors.PermissionDenied("not allowed to complete this task")
	}
	if err := s.db.UpdateTaskStatus(taskID, status); err != nil {
		return nil, err
	}
	current.Status = status
	return current, nil
}

// UpdateProgress sets the progress percentage. Requires the progress
// capability. Status is left alone; clients decide when 100% means done.
func (s *Service) UpdateProgress(viewerID, taskID string, pct int) (*models.Task, error) {
	if pct < 0 || pct > 100 {
		return nil, apperrors.Invalid("progressPercentage must be between 0 and 100")
	}
	current, err := s.Get(viewerID, taskID)
	if err != nil {
		return nil, err
	}
	if !permissions.ForTask(current, viewerID).CanUpdateProgress {
		return nil, apperrors.PermissionDenied("not allowed to update progress on this task")
	}
	if err := s.db.UpdateTaskProgress(taskID, pct); err != nil {
		return nil, err
	}
	current.ProgressPercentage = pct
	return current, nil
}

// Delete removes a task. Requires the delete capability.
func (s *Service) Delete(viewerID, taskID string) error {
	current, err := s.Get(viewerID, taskID)
	if err != nil {
		return err
	}
	if !permissions.ForTask(current, viewerID).CanDelete {
		return apperrors.PermissionDenied("not allowed to delete this task")
	}
	return s.db.DeleteTask(taskID)
}

// Capabilities reports what the viewer may do with a task.
func (s *Service) Capabilities(viewerID, taskID string) (permissions.Capabilities, error) {
	current, err := s.Get(viewerID, taskID)
	if err != nil {
		return permissions.Capabilities{}, err
	}
	return permissions.ForTask(current, viewerID), nil
}

// SpaceProgress computes the effort-weighted completion percentage of a
// space's task list for a member.
func (s *Service) SpaceProgress(viewerID, spaceID string) (int, error) {
	list, err := s.ListBySpace(viewerID, spaceID)
	if err != nil {
		return 0, err
	}
	return ComputeProgress(list), nil
}

// ListDue returns pending tasks due at or before the given time. Used by
// the reminder sweep; no viewer scoping.
func (s *Service) ListDue(before time.Time) ([]models.Task, error) {
	return s.db.ListDueTasks(before)
}

// ComputeProgress returns the effort-weighted share of completed tasks:
// the floor of completedEffort / totalEffort * 100, 0 for an empty list.
// A pending task contributes only to the total; its stored progress
// percentage does not count until it is completed.
func ComputeProgress(tasks []models.Task) int {
	totalEffort := 0
	completedEffort := 0
	for _, t := range tasks {
		effort := t.Effort
		if effort <= 0 {
			effort = 1
		}
		totalEffort += effort
		if t.IsCompleted() {
			completedEffort += effort
		}
	}
	if totalEffort == 0 {
		return 0
	}
	return completedEffort * 100 / totalEffort
}
