package subscriptions

import (
	"task-sync-backend/pkg/database"
	"task-sync-backend/pkg/models"
)

// Subscription kinds accepted over the stream endpoint.
const (
	KindUser      = "user"
	KindSpaces    = "spaces"
	KindTasks     = "tasks"
	KindCompleted = "completed"
)

// Manager bundles the per-connection subscriptions. Each websocket client
// gets one Manager; attaching a kind twice re-targets rather than
// duplicating streams.
//
// Keys per kind: user and spaces take a user id, tasks and completed take
// a space id.
type Manager struct {
	User      *Subscription[models.User]
	Spaces    *Subscription[[]models.Space]
	Tasks     *Subscription[[]models.Task]
	Completed *Subscription[[]models.Task]
}

// NewManager creates the subscription set over one store.
func NewManager(db database.DatabaseInterface) *Manager {
	return &Manager{
		User: NewSubscription(db, database.CollectionUsers, func(key string) (models.User, error) {
			u, err := db.GetUserByID(key)
			if err != nil {
				return models.User{}, err
			}
			return *u, nil
		}),
		Spaces: NewSubscription(db, database.CollectionSpaces, func(key string) ([]models.Space, error) {
			return db.ListUserSpaces(key)
		}),
		Tasks: NewSubscription(db, database.CollectionTasks, func(key string) ([]models.Task, error) {
			return db.ListTasksBySpace(key)
		}),
		Completed: NewSubscription(db, database.CollectionTasks, func(key string) ([]models.Task, error) {
			return db.ListCompletedTasks("", key)
		}),
	}
}

// DetachAll stops every subscription. Called when the connection closes.
func (m *Manager) DetachAll() {
	m.User.Detach()
	m.Spaces.Detach()
	m.Tasks.Detach()
	m.Completed.Detach()
}
