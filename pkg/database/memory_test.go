package database

import (
	"context"
	"errors"
	"testing"
	"time"

	"task-sync-backend/pkg/apperrors"
	"task-sync-backend/pkg/models"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var ignoreTimes = cmpopts.IgnoreFields(models.Task{}, "CreatedAt", "UpdatedAt")

func newUser(t *testing.T, db *MemoryDatabase, email string) *models.User {
	t.Helper()
	u := &models.User{Email: email, Name: email}
	require.NoError(t, db.CreateUser(u))
	return u
}

func newSpace(t *testing.T, db *MemoryDatabase, members ...string) *models.Space {
	t.Helper()
	s := &models.Space{Name: "Test", MemberIDs: members, Type: models.SpacePersonal}
	require.NoError(t, db.CreateSpace(s))
	return s
}

func TestCreateUserAssignsIDAndRejectsDuplicateEmail(t *testing.T) {
	db := NewMemoryDatabase()

	u := newUser(t, db, "alice@example.com")
	assert.NotEmpty(t, u.ID)

	dup := &models.User{Email: "alice@example.com"}
	err := db.CreateUser(dup)
	assert.Equal(t, apperrors.KindConflict, apperrors.KindOf(err))
}

func TestGetUserByPairingCode(t *testing.T) {
	db := NewMemoryDatabase()
	u := newUser(t, db, "alice@example.com")
	u.PairingCode = "ABC123"
	require.NoError(t, db.UpdateUser(u))

	found, err := db.GetUserByPairingCode("ABC123")
	require.NoError(t, err)
	assert.Equal(t, u.ID, found.ID)

	_, err = db.GetUserByPairingCode("ZZZZZZ")
	assert.Equal(t, apperrors.KindNotFound, apperrors.KindOf(err))
}

func TestPairingCodesUniqueOnlyWhenSet(t *testing.T) {
	db := NewMemoryDatabase()

	// Users are created before any code is assigned; an absent code is not
	// a shared value, so a second code-less user must not conflict.
	a := newUser(t, db, "a@example.com")
	b := newUser(t, db, "b@example.com")

	a.PairingCode = "ABC123"
	require.NoError(t, db.UpdateUser(a))

	b.PairingCode = "ABC123"
	err := db.UpdateUser(b)
	assert.Equal(t, apperrors.KindConflict, apperrors.KindOf(err))

	// Consuming a code clears it; the cleared code must stop resolving
	// and an empty lookup must never match a code-less user.
	a.PairingCode = ""
	require.NoError(t, db.UpdateUser(a))
	_, err = db.GetUserByPairingCode("ABC123")
	assert.Equal(t, apperrors.KindNotFound, apperrors.KindOf(err))
	_, err = db.GetUserByPairingCode("")
	assert.Equal(t, apperrors.KindNotFound, apperrors.KindOf(err))
}

func TestStoreReturnsCopies(t *testing.T) {
	db := NewMemoryDatabase()
	u := newUser(t, db, "alice@example.com")

	got, err := db.GetUserByID(u.ID)
	require.NoError(t, err)
	got.Name = "mutated"

	again, err := db.GetUserByID(u.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", again.Name)
}

func TestPairUsersConflictWhenAlreadyPaired(t *testing.T) {
	db := NewMemoryDatabase()
	a := newUser(t, db, "a@example.com")
	b := newUser(t, db, "b@example.com")
	c := newUser(t, db, "c@example.com")

	require.NoError(t, db.PairUsers(a.ID, b.ID))
	err := db.PairUsers(a.ID, c.ID)
	assert.Equal(t, apperrors.KindConflict, apperrors.KindOf(err))
	err = db.PairUsers(c.ID, b.ID)
	assert.Equal(t, apperrors.KindConflict, apperrors.KindOf(err))
}

func TestPairUsersRollsBackOnInjectedFailure(t *testing.T) {
	db := NewMemoryDatabase()
	a := newUser(t, db, "a@example.com")
	b := newUser(t, db, "b@example.com")

	db.SetTxFailHook(func(op string) error {
		return errors.New("boom")
	})

	err := db.PairUsers(a.ID, b.ID)
	assert.Equal(t, apperrors.KindTransport, apperrors.KindOf(err))

	gotA, _ := db.GetUserByID(a.ID)
	gotB, _ := db.GetUserByID(b.ID)
	assert.Empty(t, gotA.PairedWithID)
	assert.Empty(t, gotB.PairedWithID)
}

func TestAddSpaceMemberCeiling(t *testing.T) {
	db := NewMemoryDatabase()
	a := newUser(t, db, "a@example.com")
	b := newUser(t, db, "b@example.com")
	c := newUser(t, db, "c@example.com")
	s := newSpace(t, db, a.ID)

	require.NoError(t, db.AddSpaceMember(s.ID, b.ID))
	err := db.AddSpaceMember(s.ID, c.ID)
	assert.Equal(t, apperrors.KindConflict, apperrors.KindOf(err))
}

func TestRemoveLastMemberDeletesSpaceAndTasks(t *testing.T) {
	db := NewMemoryDatabase()
	a := newUser(t, db, "a@example.com")
	s := newSpace(t, db, a.ID)

	task := &models.Task{
		CreatorID: a.ID, SpaceID: s.ID, Title: "Orphan",
		Status: models.StatusPending, Scope: models.ScopeShared, Effort: 1,
	}
	require.NoError(t, db.CreateTask(task))

	require.NoError(t, db.RemoveSpaceMember(s.ID, a.ID))

	_, err := db.GetSpaceByID(s.ID)
	assert.Equal(t, apperrors.KindNotFound, apperrors.KindOf(err))
	_, err = db.GetTaskByID(task.ID)
	assert.Equal(t, apperrors.KindNotFound, apperrors.KindOf(err))
}

func TestDeleteSpaceCascades(t *testing.T) {
	db := NewMemoryDatabase()
	a := newUser(t, db, "a@example.com")
	s := newSpace(t, db, a.ID)
	other := newSpace(t, db, a.ID)

	inDeleted := &models.Task{CreatorID: a.ID, SpaceID: s.ID, Title: "Gone", Status: models.StatusPending, Scope: models.ScopeShared, Effort: 1}
	inKept := &models.Task{CreatorID: a.ID, SpaceID: other.ID, Title: "Kept", Status: models.StatusPending, Scope: models.ScopeShared, Effort: 1}
	require.NoError(t, db.CreateTask(inDeleted))
	require.NoError(t, db.CreateTask(inKept))

	require.NoError(t, db.DeleteSpace(s.ID))

	_, err := db.GetTaskByID(inDeleted.ID)
	assert.Equal(t, apperrors.KindNotFound, apperrors.KindOf(err))

	kept, err := db.ListTasksBySpace(other.ID)
	require.NoError(t, err)
	if diff := cmp.Diff([]models.Task{*inKept}, kept, ignoreTimes); diff != "" {
		t.Errorf("unexpected surviving tasks (-want +got):\n%s", diff)
	}
}

func TestListCompletedTasksAcrossSpaces(t *testing.T) {
	db := NewMemoryDatabase()
	a := newUser(t, db, "a@example.com")
	mine := newSpace(t, db, a.ID)
	other := newSpace(t, db, "someone-else")

	done := &models.Task{CreatorID: a.ID, SpaceID: mine.ID, Title: "Done", Status: models.StatusCompleted, Scope: models.ScopeShared, Effort: 1}
	pending := &models.Task{CreatorID: a.ID, SpaceID: mine.ID, Title: "Pending", Status: models.StatusPending, Scope: models.ScopeShared, Effort: 1}
	foreign := &models.Task{CreatorID: "someone-else", SpaceID: other.ID, Title: "Foreign", Status: models.StatusCompleted, Scope: models.ScopeShared, Effort: 1}
	for _, task := range []*models.Task{done, pending, foreign} {
		require.NoError(t, db.CreateTask(task))
	}

	got, err := db.ListCompletedTasks(a.ID, "")
	require.NoError(t, err)
	if diff := cmp.Diff([]models.Task{*done}, got, ignoreTimes); diff != "" {
		t.Errorf("unexpected completed tasks (-want +got):\n%s", diff)
	}
}

func TestListDueTasks(t *testing.T) {
	db := NewMemoryDatabase()
	a := newUser(t, db, "a@example.com")
	s := newSpace(t, db, a.ID)

	soon := time.Now().Add(5 * time.Minute)
	later := time.Now().Add(2 * time.Hour)
	dueSoon := &models.Task{CreatorID: a.ID, SpaceID: s.ID, Title: "Soon", DueDate: &soon, Status: models.StatusPending, Scope: models.ScopeShared, Effort: 1}
	dueLater := &models.Task{CreatorID: a.ID, SpaceID: s.ID, Title: "Later", DueDate: &later, Status: models.StatusPending, Scope: models.ScopeShared, Effort: 1}
	noDue := &models.Task{CreatorID: a.ID, SpaceID: s.ID, Title: "Whenever", Status: models.StatusPending, Scope: models.ScopeShared, Effort: 1}
	for _, task := range []*models.Task{dueSoon, dueLater, noDue} {
		require.NoError(t, db.CreateTask(task))
	}

	got, err := db.ListDueTasks(time.Now().Add(15 * time.Minute))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Soon", got[0].Title)
}

func TestListenDeliversOrderedEvents(t *testing.T) {
	db := NewMemoryDatabase()
	a := newUser(t, db, "a@example.com")
	s := newSpace(t, db, a.ID)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	events, err := db.Listen(ctx)
	require.NoError(t, err)

	task := &models.Task{CreatorID: a.ID, SpaceID: s.ID, Title: "First", Status: models.StatusPending, Scope: models.ScopeShared, Effort: 1}
	require.NoError(t, db.CreateTask(task))
	require.NoError(t, db.UpdateTaskStatus(task.ID, models.StatusCompleted))

	var got []ChangeEvent
	for len(got) < 2 {
		select {
		case ev := <-events:
			got = append(got, ev)
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for change events")
		}
	}

	for _, ev := range got {
		assert.Equal(t, CollectionTasks, ev.Collection)
		assert.True(t, ev.Matches(CollectionTasks, s.ID))
	}
	// ULIDs assigned in feed order sort lexicographically
	assert.Less(t, got[0].ID, got[1].ID)
}

func TestListenStopsOnCancel(t *testing.T) {
	db := NewMemoryDatabase()

	ctx, cancel := context.WithCancel(context.Background())
	events, err := db.Listen(ctx)
	require.NoError(t, err)

	cancel()

	select {
	case _, ok := <-events:
		assert.False(t, ok, "channel should close after cancel")
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for channel close")
	}
}

func TestChangeEventMatches(t *testing.T) {
	ev := ChangeEvent{ID: "01", Collection: CollectionTasks, Keys: []string{"space-1"}}

	assert.True(t, ev.Matches(CollectionTasks, "space-1"))
	assert.True(t, ev.Matches(CollectionTasks, ""))
	assert.False(t, ev.Matches(CollectionTasks, "space-2"))
	assert.False(t, ev.Matches(CollectionUsers, "space-1"))
}
