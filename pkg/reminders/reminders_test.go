package reminders

import (
	"sync"
	"testing"
	"time"

	"task-sync-backend/pkg/database"
	"task-sync-backend/pkg/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type captureSender struct {
	mu    sync.Mutex
	sends []string // "token:taskID"
}

func (c *captureSender) Send(token string, task models.Task) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sends = append(c.sends, token+":"+task.ID)
	return nil
}

func (c *captureSender) all() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.sends...)
}

func setup(t *testing.T) (*database.MemoryDatabase, *captureSender, *Sweeper, *models.User, *models.Space) {
	t.Helper()

	db := database.NewMemoryDatabase()
	user := &models.User{Email: "alice@example.com", Name: "Alice"}
	require.NoError(t, db.CreateUser(user))
	require.NoError(t, db.UpdatePushToken(user.ID, "token-alice"))

	space := &models.Space{Name: "Home", MemberIDs: []string{user.ID}, Type: models.SpacePersonal}
	require.NoError(t, db.CreateSpace(space))

	sender := &captureSender{}
	sweeper := NewSweeper(db, sender, time.Minute, 15*time.Minute)
	return db, sender, sweeper, user, space
}

func dueTask(t *testing.T, db *database.MemoryDatabase, user *models.User, space *models.Space, due time.Time) *models.Task {
	t.Helper()
	task := &models.Task{
		CreatorID: user.ID, SpaceID: space.ID, Title: "Due soon",
		DueDate: &due, Status: models.StatusPending,
		Scope: models.ScopeShared, Effort: 1,
	}
	require.NoError(t, db.CreateTask(task))
	return task
}

func TestSweepNotifiesDueTasks(t *testing.T) {
	db, sender, sweeper, user, space := setup(t)

	task := dueTask(t, db, user, space, time.Now().Add(5*time.Minute))
	sweeper.Sweep()

	assert.Equal(t, []string{"token-alice:" + task.ID}, sender.all())
}

func TestSweepSkipsTasksOutsideWindow(t *testing.T) {
	db, sender, sweeper, user, space := setup(t)

	dueTask(t, db, user, space, time.Now().Add(2*time.Hour))
	sweeper.Sweep()

	assert.Empty(t, sender.all())
}

func TestSweepSkipsCompletedTasks(t *testing.T) {
	db, sender, sweeper, user, space := setup(t)

	task := dueTask(t, db, user, space, time.Now().Add(5*time.Minute))
	require.NoError(t, db.UpdateTaskStatus(task.ID, models.StatusCompleted))
	sweeper.Sweep()

	assert.Empty(t, sender.all())
}

func TestSweepNotifiesOncePerDueDate(t *testing.T) {
	db, sender, sweeper, user, space := setup(t)

	task := dueTask(t, db, user, space, time.Now().Add(5*time.Minute))
	sweeper.Sweep()
	sweeper.Sweep()
	assert.Len(t, sender.all(), 1)

	// Rescheduling re-arms the reminder.
	stored, err := db.GetTaskByID(task.ID)
	require.NoError(t, err)
	newDue := time.Now().Add(10 * time.Minute)
	stored.DueDate = &newDue
	require.NoError(t, db.UpdateTask(stored))

	sweeper.Sweep()
	assert.Len(t, sender.all(), 2)
}

func TestSweepSkipsMembersWithoutTokens(t *testing.T) {
	db, sender, sweeper, user, space := setup(t)

	partner := &models.User{Email: "bob@example.com", Name: "Bob"}
	require.NoError(t, db.CreateUser(partner))
	require.NoError(t, db.AddSpaceMember(space.ID, partner.ID))

	task := dueTask(t, db, user, space, time.Now().Add(5*time.Minute))
	sweeper.Sweep()

	// Only the member with a registered token is notified.
	assert.Equal(t, []string{"token-alice:" + task.ID}, sender.all())
}
