package database

import (
	"context"
	"crypto/rand"
	"fmt"
	"sort"
	"sync"
	"time"

	"task-sync-backend/pkg/apperrors"
	"task-sync-backend/pkg/models"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
)

// MemoryDatabase is the in-process store implementation. It honors the same
// transactional semantics as the PostgreSQL implementation and is the default
// for development and tests.
type MemoryDatabase struct {
	mu     sync.RWMutex
	users  map[string]models.User
	spaces map[string]models.Space
	tasks  map[string]models.Task

	subMu   sync.Mutex
	subs    map[int]*memSubscriber
	nextSub int
	entropy *ulid.MonotonicEntropy

	// txFail, when set, is consulted inside compound operations after
	// validation but before any write. A non-nil return aborts with no
	// mutation applied. Test hook only.
	txFail func(op string) error
}

type memSubscriber struct {
	ch  chan ChangeEvent
	ctx context.Context
}

// NewMemoryDatabase creates an empty in-memory store.
func NewMemoryDatabase() *MemoryDatabase {
	return &MemoryDatabase{
		users:   make(map[string]models.User),
		spaces:  make(map[string]models.Space),
		tasks:   make(map[string]models.Task),
		subs:    make(map[int]*memSubscriber),
		entropy: ulid.Monotonic(rand.Reader, 0),
	}
}

// SetTxFailHook installs the transactional failure hook used by tests.
func (db *MemoryDatabase) SetTxFailHook(hook func(op string) error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.txFail = hook
}

// emit publishes a change event to every live subscriber in feed order.
func (db *MemoryDatabase) emit(collection string, keys ...string) {
	db.subMu.Lock()
	defer db.subMu.Unlock()

	ev := ChangeEvent{
		ID:         ulid.MustNew(ulid.Timestamp(time.Now()), db.entropy).String(),
		Collection: collection,
		Keys:       keys,
	}

	for _, sub := range db.subs {
		select {
		case sub.ch <- ev:
		case <-sub.ctx.Done():
			// Subscriber gone; its Listen goroutine removes it.
		}
	}
}

// Listen opens a change feed that lives until ctx is cancelled.
func (db *MemoryDatabase) Listen(ctx context.Context) (<-chan ChangeEvent, error) {
	db.subMu.Lock()
	id := db.nextSub
	db.nextSub++
	sub := &memSubscriber{ch: make(chan ChangeEvent, 64), ctx: ctx}
	db.subs[id] = sub
	db.subMu.Unlock()

	go func() {
		<-ctx.Done()
		db.subMu.Lock()
		delete(db.subs, id)
		db.subMu.Unlock()
		close(sub.ch)
	}()

	return sub.ch, nil
}

// ==================== Users ====================

// CreateUser creates a user, assigning an ID when absent
func (db *MemoryDatabase) CreateUser(user *models.User) error {
	db.mu.Lock()

	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	for _, u := range db.users {
		if u.Email == user.Email {
			db.mu.Unlock()
			return apperrors.Conflict("email already registered")
		}
		if user.PairingCode != "" && u.PairingCode == user.PairingCode {
			db.mu.Unlock()
			return apperrors.Conflict("pairing code already in use")
		}
	}

	user.CreatedAt = time.Now()
	user.UpdatedAt = user.CreatedAt
	db.users[user.ID] = *user
	db.mu.Unlock()

	db.emit(CollectionUsers, user.ID)
	return nil
}

// GetUserByEmail looks a user up by email
func (db *MemoryDatabase) GetUserByEmail(email string) (*models.User, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	for _, u := range db.users {
		if u.Email == email {
			out := u
			return &out, nil
		}
	}
	return nil, apperrors.NotFound("user not found")
}

// GetUserByID looks a user up by ID
func (db *MemoryDatabase) GetUserByID(id string) (*models.User, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	u, ok := db.users[id]
	if !ok {
		return nil, apperrors.NotFound("user not found")
	}
	out := u
	return &out, nil
}

// GetUserByPairingCode resolves a pairing code to its user
func (db *MemoryDatabase) GetUserByPairingCode(code string) (*models.User, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	// A cleared code is absent, not a value users without one share.
	if code != "" {
		for _, u := range db.users {
			if u.PairingCode == code {
				out := u
				return &out, nil
			}
		}
	}
	return nil, apperrors.NotFound("no user with that pairing code")
}

// UpdateUser updates profile fields on a user
func (db *MemoryDatabase) UpdateUser(user *models.User) error {
	db.mu.Lock()

	current, ok := db.users[user.ID]
	if !ok {
		db.mu.Unlock()
		return apperrors.NotFound("user not found")
	}
	if user.PairingCode != "" {
		for id, u := range db.users {
			if id != user.ID && u.PairingCode == user.PairingCode {
				db.mu.Unlock()
				return apperrors.Conflict("pairing code already in use")
			}
		}
	}
	user.CreatedAt = current.CreatedAt
	user.UpdatedAt = time.Now()
	db.users[user.ID] = *user
	db.mu.Unlock()

	db.emit(CollectionUsers, user.ID)
	return nil
}

// UpdatePushToken stores a refreshed delivery token
func (db *MemoryDatabase) UpdatePushToken(userID, token string) error {
	db.mu.Lock()

	u, ok := db.users[userID]
	if !ok {
		db.mu.Unlock()
		return apperrors.NotFound("user not found")
	}
	u.PushToken = token
	u.UpdatedAt = time.Now()
	db.users[userID] = u
	db.mu.Unlock()

	db.emit(CollectionUsers, userID)
	return nil
}

// PairUsers links both users in one transaction. Both writes commit or
// neither does.
func (db *MemoryDatabase) PairUsers(userID, partnerID string) error {
	db.mu.Lock()

	a, ok := db.users[userID]
	if !ok {
		db.mu.Unlock()
		return apperrors.NotFound("user not found")
	}
	b, ok := db.users[partnerID]
	if !ok {
		db.mu.Unlock()
		return apperrors.NotFound("partner not found")
	}
	if a.PairedWithID != "" || b.PairedWithID != "" {
		db.mu.Unlock()
		return apperrors.Conflict("user is already paired")
	}

	if db.txFail != nil {
		if err := db.txFail("PairUsers"); err != nil {
			db.mu.Unlock()
			return apperrors.Transport("pairing transaction aborted", err)
		}
	}

	now := time.Now()
	a.PairedWithID = partnerID
	a.UpdatedAt = now
	b.PairedWithID = userID
	b.UpdatedAt = now
	db.users[userID] = a
	db.users[partnerID] = b
	db.mu.Unlock()

	db.emit(CollectionUsers, userID, partnerID)
	return nil
}

// UnpairUsers clears both sides of a pairing and deletes the pairing's
// shared tasks in the same transaction.
func (db *MemoryDatabase) UnpairUsers(userID, partnerID string) error {
	db.mu.Lock()

	a, ok := db.users[userID]
	if !ok {
		db.mu.Unlock()
		return apperrors.NotFound("user not found")
	}
	b, ok := db.users[partnerID]
	if !ok {
		db.mu.Unlock()
		return apperrors.NotFound("partner not found")
	}
	if a.PairedWithID != partnerID || b.PairedWithID != userID {
		db.mu.Unlock()
		return apperrors.Conflict("users are not paired with each other")
	}

	if db.txFail != nil {
		if err := db.txFail("UnpairUsers"); err != nil {
			db.mu.Unlock()
			return apperrors.Transport("unpairing transaction aborted", err)
		}
	}

	now := time.Now()
	a.PairedWithID = ""
	a.UpdatedAt = now
	b.PairedWithID = ""
	b.UpdatedAt = now
	db.users[userID] = a
	db.users[partnerID] = b

	// Tasks tied to the pairing: non-individual tasks in spaces both users
	// belong to. Destructive and irreversible.
	affectedSpaces := make(map[string]bool)
	for id, s := range db.spaces {
		if s.HasMember(userID) && s.HasMember(partnerID) {
			affectedSpaces[id] = true
		}
	}
	var taskKeys []string
	for id, t := range db.tasks {
		if affectedSpaces[t.SpaceID] && t.Scope != models.ScopeIndividual {
			delete(db.tasks, id)
			taskKeys = append(taskKeys, t.SpaceID)
		}
	}
	db.mu.Unlock()

	db.emit(CollectionUsers, userID, partnerID)
	if len(taskKeys) > 0 {
		db.emit(CollectionTasks, dedupe(taskKeys)...)
	}
	return nil
}

// ==================== Spaces ====================

// CreateSpace creates a space, assigning an ID when absent
func (db *MemoryDatabase) CreateSpace(space *models.Space) error {
	db.mu.Lock()

	if space.ID == "" {
		space.ID = uuid.New().String()
	}
	space.CreatedAt = time.Now()
	space.UpdatedAt = space.CreatedAt
	db.spaces[space.ID] = *space
	members := append([]string(nil), space.MemberIDs...)
	db.mu.Unlock()

	db.emit(CollectionSpaces, members...)
	return nil
}

// GetSpaceByID looks a space up by ID
func (db *MemoryDatabase) GetSpaceByID(spaceID string) (*models.Space, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	s, ok := db.spaces[spaceID]
	if !ok {
		return nil, apperrors.NotFound("space not found")
	}
	out := s
	out.MemberIDs = append([]string(nil), s.MemberIDs...)
	return &out, nil
}

// GetSpaceByInviteCode resolves an unconsumed invite code to its space
func (db *MemoryDatabase) GetSpaceByInviteCode(code string) (*models.Space, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	for _, s := range db.spaces {
		if s.InviteCode != "" && s.InviteCode == code {
			out := s
			out.MemberIDs = append([]string(nil), s.MemberIDs...)
			return &out, nil
		}
	}
	return nil, apperrors.NotFound("no space with that invite code")
}

// ListUserSpaces lists spaces the user is a member of
func (db *MemoryDatabase) ListUserSpaces(userID string) ([]models.Space, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	var result []models.Space
	for _, s := range db.spaces {
		if s.HasMember(userID) {
			out := s
			out.MemberIDs = append([]string(nil), s.MemberIDs...)
			result = append(result, out)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.Before(result[j].CreatedAt) })
	return result, nil
}

// AddSpaceMember appends a member atomically, enforcing the ceiling at
// commit time so concurrent joins resolve to one winner.
func (db *MemoryDatabase) AddSpaceMember(spaceID, userID string) error {
	db.mu.Lock()

	s, ok := db.spaces[spaceID]
	if !ok {
		db.mu.Unlock()
		return apperrors.NotFound("space not found")
	}
	if s.HasMember(userID) {
		db.mu.Unlock()
		return apperrors.Conflict("user is already a member of the space")
	}
	if len(s.MemberIDs) >= models.MaxSpaceMembers {
		db.mu.Unlock()
		return apperrors.Conflict("space is full")
	}

	if db.txFail != nil {
		if err := db.txFail("AddSpaceMember"); err != nil {
			db.mu.Unlock()
			return apperrors.Transport("join transaction aborted", err)
		}
	}

	s.MemberIDs = append(append([]string(nil), s.MemberIDs...), userID)
	s.Type = models.SpaceShared
	if len(s.MemberIDs) >= models.MaxSpaceMembers {
		// Code is consumed once the space is at capacity
		s.InviteCode = ""
	}
	s.UpdatedAt = time.Now()
	db.spaces[spaceID] = s
	members := append([]string(nil), s.MemberIDs...)
	db.mu.Unlock()

	db.emit(CollectionSpaces, members...)
	return nil
}

// RemoveSpaceMember removes a member; the last member leaving deletes the
// space and cascades to its tasks.
func (db *MemoryDatabase) RemoveSpaceMember(spaceID, userID string) error {
	db.mu.Lock()

	s, ok := db.spaces[spaceID]
	if !ok {
		db.mu.Unlock()
		return apperrors.NotFound("space not found")
	}
	if !s.HasMember(userID) {
		db.mu.Unlock()
		return apperrors.Conflict("user is not a member of the space")
	}

	var remaining []string
	for _, id := range s.MemberIDs {
		if id != userID {
			remaining = append(remaining, id)
		}
	}
	notify := append([]string(nil), s.MemberIDs...)

	if len(remaining) == 0 {
		delete(db.spaces, spaceID)
		db.deleteTasksBySpaceLocked(spaceID)
	} else {
		s.MemberIDs = remaining
		s.Type = models.SpacePersonal
		s.UpdatedAt = time.Now()
		db.spaces[spaceID] = s
	}
	db.mu.Unlock()

	db.emit(CollectionSpaces, notify...)
	db.emit(CollectionTasks, spaceID)
	return nil
}

// DeleteSpace deletes a space and every task scoped to it
func (db *MemoryDatabase) DeleteSpace(spaceID string) error {
	db.mu.Lock()

	s, ok := db.spaces[spaceID]
	if !ok {
		db.mu.Unlock()
		return apperrors.NotFound("space not found")
	}
	notify := append([]string(nil), s.MemberIDs...)
	delete(db.spaces, spaceID)
	db.deleteTasksBySpaceLocked(spaceID)
	db.mu.Unlock()

	db.emit(CollectionSpaces, notify...)
	db.emit(CollectionTasks, spaceID)
	return nil
}

func (db *MemoryDatabase) deleteTasksBySpaceLocked(spaceID string) {
	for id, t := range db.tasks {
		if t.SpaceID == spaceID {
			delete(db.tasks, id)
		}
	}
}

// ==================== Tasks ====================

// CreateTask creates a task, assigning an ID when absent
func (db *MemoryDatabase) CreateTask(task *models.Task) error {
	db.mu.Lock()

	if task.ID == "" {
		task.ID = uuid.New().String()
	}
	if _, ok := db.spaces[task.SpaceID]; !ok {
		db.mu.Unlock()
		return apperrors.NotFound("space not found")
	}
	task.CreatedAt = time.Now()
	task.UpdatedAt = task.CreatedAt
	db.tasks[task.ID] = *task
	db.mu.Unlock()

	db.emit(CollectionTasks, task.SpaceID)
	return nil
}

// GetTaskByID looks a task up by ID
func (db *MemoryDatabase) GetTaskByID(id string) (*models.Task, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	t, ok := db.tasks[id]
	if !ok {
		return nil, apperrors.NotFound("task not found")
	}
	out := t
	return &out, nil
}

// UpdateTask replaces the mutable fields of a task
func (db *MemoryDatabase) UpdateTask(task *models.Task) error {
	db.mu.Lock()

	current, ok := db.tasks[task.ID]
	if !ok {
		db.mu.Unlock()
		return apperrors.NotFound("task not found")
	}
	task.CreatorID = current.CreatorID
	task.SpaceID = current.SpaceID
	task.CreatedAt = current.CreatedAt
	task.UpdatedAt = time.Now()
	db.tasks[task.ID] = *task
	db.mu.Unlock()

	db.emit(CollectionTasks, task.SpaceID)
	return nil
}

// UpdateTaskStatus sets only the completion flag
func (db *MemoryDatabase) UpdateTaskStatus(id string, status models.TaskStatus) error {
	db.mu.Lock()

	t, ok := db.tasks[id]
	if !ok {
		db.mu.Unlock()
		return apperrors.NotFound("task not found")
	}
	t.Status = status
	t.UpdatedAt = time.Now()
	db.tasks[id] = t
	db.mu.Unlock()

	db.emit(CollectionTasks, t.SpaceID)
	return nil
}

// UpdateTaskProgress sets only the progress percentage
func (db *MemoryDatabase) UpdateTaskProgress(id string, pct int) error {
	db.mu.Lock()

	t, ok := db.tasks[id]
	if !ok {
		db.mu.Unlock()
		return apperrors.NotFound("task not found")
	}
	t.ProgressPercentage = pct
	t.UpdatedAt = time.Now()
	db.tasks[id] = t
	db.mu.Unlock()

	db.emit(CollectionTasks, t.SpaceID)
	return nil
}

// DeleteTask removes a task permanently
func (db *MemoryDatabase) DeleteTask(id string) error {
	db.mu.Lock()

	t, ok := db.tasks[id]
	if !ok {
		db.mu.Unlock()
		return apperrors.NotFound("task not found")
	}
	delete(db.tasks, id)
	db.mu.Unlock()

	db.emit(CollectionTasks, t.SpaceID)
	return nil
}

// ListTasksBySpace lists the space's tasks in creation order
func (db *MemoryDatabase) ListTasksBySpace(spaceID string) ([]models.Task, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	var result []models.Task
	for _, t := range db.tasks {
		if t.SpaceID == spaceID {
			result = append(result, t)
		}
	}
	sortTasks(result)
	return result, nil
}

// ListCompletedTasks lists completed tasks in one space, or in all of the
// user's spaces when spaceID is empty.
func (db *MemoryDatabase) ListCompletedTasks(userID, spaceID string) ([]models.Task, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	memberOf := make(map[string]bool)
	if spaceID == "" {
		for id, s := range db.spaces {
			if s.HasMember(userID) {
				memberOf[id] = true
			}
		}
	}

	var result []models.Task
	for _, t := range db.tasks {
		if t.Status != models.StatusCompleted {
			continue
		}
		if spaceID != "" {
			if t.SpaceID != spaceID {
				continue
			}
		} else if !memberOf[t.SpaceID] {
			continue
		}
		result = append(result, t)
	}
	sortTasks(result)
	return result, nil
}

// ListDueTasks lists pending tasks due at or before the given time
func (db *MemoryDatabase) ListDueTasks(before time.Time) ([]models.Task, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	var result []models.Task
	for _, t := range db.tasks {
		if t.Status == models.StatusPending && t.DueDate != nil && !t.DueDate.After(before) {
			result = append(result, t)
		}
	}
	sortTasks(result)
	return result, nil
}

// HealthCheck always succeeds for the in-memory store
func (db *MemoryDatabase) HealthCheck() error {
	return nil
}

// Close is a no-op for the in-memory store
func (db *MemoryDatabase) Close() error {
	return nil
}

func sortTasks(tasks []models.Task) {
	sort.Slice(tasks, func(i, j int) bool {
		if tasks[i].CreatedAt.Equal(tasks[j].CreatedAt) {
			return tasks[i].ID < tasks[j].ID
		}
		return tasks[i].CreatedAt.Before(tasks[j].CreatedAt)
	})
}

func dedupe(keys []string) []string {
	seen := make(map[string]bool, len(keys))
	var out []string
	for _, k := range keys {
		if !seen[k] {
			seen[k] = true
			out = append(out, k)
		}
	}
	return out
}

var _ fmt.Stringer = ChangeEvent{}

// String renders the event for debug logs.
func (e ChangeEvent) String() string {
	return fmt.Sprintf("%s %s %v", e.ID, e.Collection, e.Keys)
}
