package database

import (
	"context"
	"fmt"
	"time"

	"task-sync-backend/pkg/models"
)

// Collection names used in change events and storage.
const (
	CollectionUsers  = "users"
	CollectionSpaces = "spaces"
	CollectionTasks  = "tasks"
)

// ChangeEvent announces that documents in a collection changed. Keys are the
// routing keys a subscriber filters on: the space id for task changes, the
// user id for user changes, and the member ids for space changes. ID is a
// ULID assigned in feed order.
type ChangeEvent struct {
	ID         string
	Collection string
	Keys       []string
}

// Matches reports whether the event touches the given collection and key.
// An empty key matches any event in the collection.
func (e ChangeEvent) Matches(collection, key string) bool {
	if e.Collection != collection {
		return false
	}
	if key == "" {
		return true
	}
	for _, k := range e.Keys {
		if k == key {
			return true
		}
	}
	return false
}

// DatabaseInterface defines the durable store contract. Compound operations
// (pairing, joining, cascading deletes) are transactional: both writes commit
// or neither does.
type DatabaseInterface interface {
	// Users. An empty pairing code means the user has none: it is never
	// resolvable and never collides. Non-empty codes are unique.
	CreateUser(user *models.User) error
	GetUserByEmail(email string) (*models.User, error)
	GetUserByID(id string) (*models.User, error)
	GetUserByPairingCode(code string) (*models.User, error)
	UpdateUser(user *models.User) error
	UpdatePushToken(userID, token string) error

	// Pairing transactions. PairUsers links both sides in one transaction and
	// fails with a Conflict if either side is already paired at commit time.
	// UnpairUsers clears both sides and deletes the pairing's shared tasks.
	PairUsers(userID, partnerID string) error
	UnpairUsers(userID, partnerID string) error

	// Spaces
	CreateSpace(space *models.Space) error
	GetSpaceByID(spaceID string) (*models.Space, error)
	GetSpaceByInviteCode(code string) (*models.Space, error)
	ListUserSpaces(userID string) ([]models.Space, error)
	// AddSpaceMember appends atomically and fails with a Conflict when the
	// member ceiling is already reached at commit time.
	AddSpaceMember(spaceID, userID string) error
	RemoveSpaceMember(spaceID, userID string) error
	// DeleteSpace cascades to every task whose spaceId matches.
	DeleteSpace(spaceID string) error

	// Tasks
	CreateTask(task *models.Task) error
	GetTaskByID(id string) (*models.Task, error)
	UpdateTask(task *models.Task) error
	UpdateTaskStatus(id string, status models.TaskStatus) error
	UpdateTaskProgress(id string, pct int) error
	DeleteTask(id string) error
	ListTasksBySpace(spaceID string) ([]models.Task, error)
	// ListCompletedTasks returns completed tasks in one space, or across all
	// of the user's spaces when spaceID is empty.
	ListCompletedTasks(userID, spaceID string) ([]models.Task, error)
	// ListDueTasks returns pending tasks due at or before the given time.
	ListDueTasks(before time.Time) ([]models.Task, error)

	// Listen opens a change feed. Events arrive in store order until ctx is
	// cancelled; the channel is closed on cancellation or feed failure.
	Listen(ctx context.Context) (<-chan ChangeEvent, error)

	// Health check
	HealthCheck() error

	// Close releases the underlying connections
	Close() error
}

// DatabaseConfig selects and parameterizes the store implementation
type DatabaseConfig struct {
	UseMemoryDB bool
	PostgresDSN string
	Debug       bool
}

// NewDatabase selects the store implementation from the configuration.
func NewDatabase(config DatabaseConfig) DatabaseInterface {
	if !config.UseMemoryDB && config.PostgresDSN != "" {
		fmt.Printf("Using PostgreSQL database\n")
		return NewPostgresDatabase(config.PostgresDSN)
	}

	fmt.Printf("Using in-memory database\n")
	return NewMemoryDatabase()
}
