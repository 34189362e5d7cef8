package pairing

import (
	"errors"
	"sync"
	"testing"

	"task-sync-backend/pkg/apperrors"
	"task-sync-backend/pkg/database"
	"task-sync-backend/pkg/models"
	"task-sync-backend/pkg/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFixture(t *testing.T) (*Service, *database.MemoryDatabase, *models.User, *models.User) {
	t.Helper()

	db := database.NewMemoryDatabase()
	svc := NewService(db)

	alice := &models.User{Email: "alice@example.com", Name: "Alice", PairingCode: "ALICE1"}
	bob := &models.User{Email: "bob@example.com", Name: "Bob", PairingCode: "BOB123"}
	require.NoError(t, db.CreateUser(alice))
	require.NoError(t, db.CreateUser(bob))

	return svc, db, alice, bob
}

func TestCreateSpaceAssignsInviteCode(t *testing.T) {
	svc, _, alice, _ := newFixture(t)

	space, err := svc.CreateSpace(alice.ID, "Groceries")
	require.NoError(t, err)

	assert.Len(t, space.InviteCode, utils.InviteCodeLength)
	assert.Equal(t, models.SpacePersonal, space.Type)
	assert.Equal(t, []string{alice.ID}, space.MemberIDs)
}

func TestEnsureDefaultSpaceIsIdempotent(t *testing.T) {
	svc, _, alice, _ := newFixture(t)

	first, err := svc.EnsureDefaultSpace(alice.ID, alice.Name)
	require.NoError(t, err)
	second, err := svc.EnsureDefaultSpace(alice.ID, alice.Name)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)

	spaces, err := svc.ListSpaces(alice.ID)
	require.NoError(t, err)
	assert.Len(t, spaces, 1)
}

func TestJoinSpace(t *testing.T) {
	svc, _, alice, bob := newFixture(t)

	space, err := svc.CreateSpace(alice.ID, "Groceries")
	require.NoError(t, err)

	joined, err := svc.JoinSpace(bob.ID, space.InviteCode)
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{alice.ID, bob.ID}, joined.MemberIDs)
	assert.Equal(t, models.SpaceShared, joined.Type)
	// Invite code is consumed once the space is full
	assert.Empty(t, joined.InviteCode)
}

func TestJoinSpaceInvalidCode(t *testing.T) {
	svc, _, _, bob := newFixture(t)

	_, err := svc.JoinSpace(bob.ID, "NOPE99")
	assert.Equal(t, apperrors.KindNotFound, apperrors.KindOf(err))
}

func TestJoinSpaceAlreadyMember(t *testing.T) {
	svc, _, alice, _ := newFixture(t)

	space, err := svc.CreateSpace(alice.ID, "Groceries")
	require.NoError(t, err)

	_, err = svc.JoinSpace(alice.ID, space.InviteCode)
	assert.Equal(t, apperrors.KindConflict, apperrors.KindOf(err))
}

func TestConcurrentJoinsOneWinner(t *testing.T) {
	svc, db, alice, bob := newFixture(t)

	carol := &models.User{Email: "carol@example.com", Name: "Carol"}
	require.NoError(t, db.CreateUser(carol))

	space, err := svc.CreateSpace(alice.ID, "Groceries")
	require.NoError(t, err)

	var wg sync.WaitGroup
	results := make([]error, 2)
	for i, uid := range []string{bob.ID, carol.ID} {
		wg.Add(1)
		go func(i int, uid string) {
			defer wg.Done()
			_, results[i] = svc.JoinSpace(uid, space.InviteCode)
		}(i, uid)
	}
	wg.Wait()

	winners := 0
	for _, err := range results {
		if err == nil {
			winners++
		} else {
			assert.Contains(t,
				[]apperrors.Kind{apperrors.KindConflict, apperrors.KindNotFound},
				apperrors.KindOf(err))
		}
	}
	assert.Equal(t, 1, winners)

	final, err := db.GetSpaceByID(space.ID)
	require.NoError(t, err)
	assert.Len(t, final.MemberIDs, models.MaxSpaceMembers)
}

func TestPairCreatesSharedSpace(t *testing.T) {
	svc, db, alice, bob := newFixture(t)

	space, err := svc.Pair(alice.ID, "BOB123")
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{alice.ID, bob.ID}, space.MemberIDs)
	assert.Equal(t, models.SpaceShared, space.Type)

	a, err := db.GetUserByID(alice.ID)
	require.NoError(t, err)
	b, err := db.GetUserByID(bob.ID)
	require.NoError(t, err)
	assert.Equal(t, bob.ID, a.PairedWithID)
	assert.Equal(t, alice.ID, b.PairedWithID)

	// The pairing code is single-use
	assert.Empty(t, b.PairingCode)
}

func TestPairInvalidCode(t *testing.T) {
	svc, _, alice, _ := newFixture(t)

	_, err := svc.Pair(alice.ID, "XXXXXX")
	assert.Equal(t, apperrors.KindNotFound, apperrors.KindOf(err))
}

func TestPairWithSelf(t *testing.T) {
	svc, _, alice, _ := newFixture(t)

	_, err := svc.Pair(alice.ID, "ALICE1")
	assert.Equal(t, apperrors.KindInvalid, apperrors.KindOf(err))
}

func TestPairAlreadyPaired(t *testing.T) {
	svc, db, alice, _ := newFixture(t)

	carol := &models.User{Email: "carol@example.com", Name: "Carol", PairingCode: "CAROL1"}
	require.NoError(t, db.CreateUser(carol))

	_, err := svc.Pair(alice.ID, "BOB123")
	require.NoError(t, err)

	_, err = svc.Pair(alice.ID, "CAROL1")
	assert.Equal(t, apperrors.KindConflict, apperrors.KindOf(err))
}

func TestPairAtomicityOnTransactionFailure(t *testing.T) {
	svc, db, alice, bob := newFixture(t)

	db.SetTxFailHook(func(op string) error {
		if op == "PairUsers" {
			return errors.New("injected failure")
		}
		return nil
	})

	_, err := svc.Pair(alice.ID, "BOB123")
	require.Error(t, err)
	assert.Equal(t, apperrors.KindTransport, apperrors.KindOf(err))

	// Neither side was linked and no space appeared.
	a, err := db.GetUserByID(alice.ID)
	require.NoError(t, err)
	b, err := db.GetUserByID(bob.ID)
	require.NoError(t, err)
	assert.Empty(t, a.PairedWithID)
	assert.Empty(t, b.PairedWithID)

	spaces, err := db.ListUserSpaces(alice.ID)
	require.NoError(t, err)
	assert.Empty(t, spaces)
}

func TestUnpairDeletesSharedTasksKeepsIndividual(t *testing.T) {
	svc, db, alice, _ := newFixture(t)

	space, err := svc.Pair(alice.ID, "BOB123")
	require.NoError(t, err)

	shared := &models.Task{
		CreatorID: alice.ID, SpaceID: space.ID, Title: "Shared chore",
		Status: models.StatusPending, Scope: models.ScopeShared, Effort: 1,
	}
	individual := &models.Task{
		CreatorID: alice.ID, SpaceID: space.ID, Title: "Private note",
		Status: models.StatusPending, Scope: models.ScopeIndividual, Effort: 1,
	}
	require.NoError(t, db.CreateTask(shared))
	require.NoError(t, db.CreateTask(individual))

	require.NoError(t, svc.Unpair(alice.ID))

	a, err := db.GetUserByID(alice.ID)
	require.NoError(t, err)
	assert.Empty(t, a.PairedWithID)

	_, err = db.GetTaskByID(shared.ID)
	assert.Equal(t, apperrors.KindNotFound, apperrors.KindOf(err))
	_, err = db.GetTaskByID(individual.ID)
	assert.NoError(t, err)
}

func TestUnpairWhenNotPaired(t *testing.T) {
	svc, _, alice, _ := newFixture(t)

	err := svc.Unpair(alice.ID)
	assert.Equal(t, apperrors.KindConflict, apperrors.KindOf(err))
}

func TestPartner(t *testing.T) {
	svc, _, alice, bob := newFixture(t)

	_, err := svc.Partner(alice.ID)
	assert.Equal(t, apperrors.KindNotFound, apperrors.KindOf(err))

	_, err = svc.Pair(alice.ID, "BOB123")
	require.NoError(t, err)

	partner, err := svc.Partner(alice.ID)
	require.NoError(t, err)
	assert.Equal(t, bob.ID, partner.ID)
}

func TestRefreshPairingCode(t *testing.T) {
	svc, db, alice, _ := newFixture(t)

	code, err := svc.RefreshPairingCode(alice.ID)
	require.NoError(t, err)
	assert.Len(t, code, utils.InviteCodeLength)
	assert.NotEqual(t, "ALICE1", code)

	stored, err := db.GetUserByID(alice.ID)
	require.NoError(t, err)
	assert.Equal(t, code, stored.PairingCode)
}
