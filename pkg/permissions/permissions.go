package permissions

import "task-sync-backend/pkg/models"

// Capabilities lists the actions a viewer may take on one task.
type Capabilities struct {
	CanEdit           bool `json:"canEdit"`
	CanDelete         bool `json:"canDelete"`
	CanComplete       bool `json:"canComplete"`
	CanUpdateProgress bool `json:"canUpdateProgress"`
}

// All grants every capability
func All() Capabilities {
	return Capabilities{CanEdit: true, CanDelete: true, CanComplete: true, CanUpdateProgress: true}
}

// None grants nothing
func None() Capabilities {
	return Capabilities{}
}

// For computes the viewer's capabilities on a task from its ownership scope.
//
//	INDIVIDUAL: the creator holds every capability, everyone else none.
//	SHARED:     both members hold every capability.
//	ASSIGNED:   the creator may edit and delete; the other member (the
//	            assignee) may complete and update progress.
//
// Unknown or empty scopes fall back to SHARED so that a task written by an
// older client stays actionable.
func For(scope models.OwnershipScope, viewerID, creatorID string) Capabilities {
	switch scope {
	case models.ScopeIndividual:
		if viewerID == creatorID {
			return All()
		}
		return None()
	case models.ScopeAssigned:
		if viewerID == creatorID {
			return Capabilities{CanEdit: true, CanDelete: true}
		}
		return Capabilities{CanComplete: true, CanUpdateProgress: true}
	case models.ScopeShared:
		return All()
	default:
		return All()
	}
}

// ForTask is the task-value convenience form of For.
func ForTask(task *models.Task, viewerID string) Capabilities {
	return For(task.Scope, viewerID, task.CreatorID)
}
