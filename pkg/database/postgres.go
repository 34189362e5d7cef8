package database

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"task-sync-backend/pkg/apperrors"
	"task-sync-backend/pkg/models"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/oklog/ulid/v2"
)

// notifyChannel is the pg_notify channel fed by the triggers installed in
// scripts/init_db.sql.
const notifyChannel = "entity_changes"

// PostgresDatabase is the PostgreSQL store implementation.
type PostgresDatabase struct {
	db  *sql.DB
	dsn string

	entropyMu sync.Mutex
	entropy   *ulid.MonotonicEntropy
}

// NewPostgresDatabase opens a PostgreSQL connection pool. Panics when the
// database is unreachable; the process cannot serve without its store.
func NewPostgresDatabase(dsn string) DatabaseInterface {
	dsn = strings.TrimSpace(dsn)

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		panic(fmt.Sprintf("failed to open PostgreSQL connection: %v", err))
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err = db.Ping(); err != nil {
		db.Close()
		panic(fmt.Sprintf("failed to ping PostgreSQL: %v", err))
	}

	fmt.Println("PostgreSQL connection established")
	return &PostgresDatabase{
		db:      db,
		dsn:     dsn,
		entropy: ulid.Monotonic(rand.Reader, 0),
	}
}

func (db *PostgresDatabase) newEventID() string {
	db.entropyMu.Lock()
	defer db.entropyMu.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now()), db.entropy).String()
}

// ==================== Users ====================

// CreateUser creates a user
func (db *PostgresDatabase) CreateUser(user *models.User) error {
	if user.ID == "" {
		user.ID = uuid.New().String()
	}

	query := `
		INSERT INTO users (id, email, password_hash, name, photo_url, pairing_code, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''), NOW(), NOW())
		RETURNING created_at, updated_at
	`
	err := db.db.QueryRow(query, user.ID, user.Email, user.Password, user.Name, user.PhotoURL, user.PairingCode).
		Scan(&user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.Conflict("email already registered")
		}
		return apperrors.Transport("failed to create user", err)
	}
	return nil
}

const userColumns = `id, email, COALESCE(password_hash,''), COALESCE(name,''), COALESCE(photo_url,''),
	COALESCE(pairing_code,''), COALESCE(paired_with_id,''), COALESCE(push_token,''), created_at, updated_at`

func scanUser(row interface{ Scan(...interface{}) error }) (*models.User, error) {
	var u models.User
	err := row.Scan(&u.ID, &u.Email, &u.Password, &u.Name, &u.PhotoURL,
		&u.PairingCode, &u.PairedWithID, &u.PushToken, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// GetUserByEmail looks a user up by email
func (db *PostgresDatabase) GetUserByEmail(email string) (*models.User, error) {
	query := fmt.Sprintf(`SELECT %s FROM users WHERE email = $1`, userColumns)
	user, err := scanUser(db.db.QueryRow(query, email))
	if err == sql.ErrNoRows {
		return nil, apperrors.NotFound("user not found")
	}
	if err != nil {
		return nil, apperrors.Transport("failed to get user", err)
	}
	return user, nil
}

// GetUserByID looks a user up by ID
func (db *PostgresDatabase) GetUserByID(id string) (*models.User, error) {
	query := fmt.Sprintf(`SELECT %s FROM users WHERE id = $1`, userColumns)
	user, err := scanUser(db.db.QueryRow(query, id))
	if err == sql.ErrNoRows {
		return nil, apperrors.NotFound("user not found")
	}
	if err != nil {
		return nil, apperrors.Transport("failed to get user", err)
	}
	return user, nil
}

// GetUserByPairingCode resolves a pairing code to its user
func (db *PostgresDatabase) GetUserByPairingCode(code string) (*models.User, error) {
	query := fmt.Sprintf(`SELECT %s FROM users WHERE pairing_code = $1`, userColumns)
	user, err := scanUser(db.db.QueryRow(query, code))
	if err == sql.ErrNoRows {
		return nil, apperrors.NotFound("no user with that pairing code")
	}
	if err != nil {
		return nil, apperrors.Transport("failed to get user", err)
	}
	return user, nil
}

// UpdateUser updates profile fields on a user
func (db *PostgresDatabase) UpdateUser(user *models.User) error {
	query := `
		UPDATE users
		SET name = $2, photo_url = $3, pairing_code = NULLIF($4, ''), updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at
	`
	err := db.db.QueryRow(query, user.ID, user.Name, user.PhotoURL, user.PairingCode).Scan(&user.UpdatedAt)
	if err == sql.ErrNoRows {
		return apperrors.NotFound("user not found")
	}
	if err != nil {
		return apperrors.Transport("failed to update user", err)
	}
	return nil
}

// UpdatePushToken stores a refreshed delivery token
func (db *PostgresDatabase) UpdatePushToken(userID, token string) error {
	result, err := db.db.Exec(`UPDATE users SET push_token = $2, updated_at = NOW() WHERE id = $1`, userID, token)
	if err != nil {
		return apperrors.Transport("failed to update push token", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return apperrors.NotFound("user not found")
	}
	return nil
}

// PairUsers links both users in one transaction. Row locks on both users
// serialize concurrent pairing attempts; the paired check happens under
// the lock so the second attempt sees the first's commit.
func (db *PostgresDatabase) PairUsers(userID, partnerID string) error {
	tx, err := db.db.Begin()
	if err != nil {
		return apperrors.Transport("failed to begin transaction", err)
	}
	defer tx.Rollback()

	// Lock both rows in a stable order to avoid deadlock between two
	// concurrent pairings of the same pair.
	first, second := userID, partnerID
	if second < first {
		first, second = second, first
	}
	for _, id := range []string{first, second} {
		var paired string
		err = tx.QueryRow(`SELECT COALESCE(paired_with_id,'') FROM users WHERE id = $1 FOR UPDATE`, id).Scan(&paired)
		if err == sql.ErrNoRows {
			return apperrors.NotFound("user not found")
		}
		if err != nil {
			return apperrors.Transport("failed to lock user", err)
		}
		if paired != "" {
			return apperrors.Conflict("user is already paired")
		}
	}

	if _, err = tx.Exec(`UPDATE users SET paired_with_id = $2, updated_at = NOW() WHERE id = $1`, userID, partnerID); err != nil {
		return apperrors.Transport("failed to pair user", err)
	}
	if _, err = tx.Exec(`UPDATE users SET paired_with_id = $2, updated_at = NOW() WHERE id = $1`, partnerID, userID); err != nil {
		return apperrors.Transport("failed to pair partner", err)
	}

	if err = tx.Commit(); err != nil {
		return apperrors.Transport("failed to commit pairing", err)
	}
	return nil
}

// UnpairUsers clears both sides of a pairing and deletes the pairing's
// shared tasks in the same transaction.
func (db *PostgresDatabase) UnpairUsers(userID, partnerID string) error {
	tx, err := db.db.Begin()
	if err != nil {
		return apperrors.Transport("failed to begin transaction", err)
	}
	defer tx.Rollback()

	first, second := userID, partnerID
	if second < first {
		first, second = second, first
	}
	links := make(map[string]string, 2)
	for _, id := range []string{first, second} {
		var paired string
		err = tx.QueryRow(`SELECT COALESCE(paired_with_id,'') FROM users WHERE id = $1 FOR UPDATE`, id).Scan(&paired)
		if err == sql.ErrNoRows {
			return apperrors.NotFound("user not found")
		}
		if err != nil {
			return apperrors.Transport("failed to lock user", err)
		}
		links[id] = paired
	}
	if links[userID] != partnerID || links[partnerID] != userID {
		return apperrors.Conflict("users are not paired with each other")
	}

	if _, err = tx.Exec(`UPDATE users SET paired_with_id = NULL, updated_at = NOW() WHERE id = $1 OR id = $2`, userID, partnerID); err != nil {
		return apperrors.Transport("failed to unpair users", err)
	}

	// Drop non-individual tasks in every space both users belong to.
	_, err = tx.Exec(`
		DELETE FROM tasks
		WHERE scope <> 'INDIVIDUAL'
		  AND space_id IN (
			SELECT id FROM spaces WHERE member_ids @> ARRAY[$1]::text[] AND member_ids @> ARRAY[$2]::text[]
		  )
	`, userID, partnerID)
	if err != nil {
		return apperrors.Transport("failed to delete shared tasks", err)
	}

	if err = tx.Commit(); err != nil {
		return apperrors.Transport("failed to commit unpairing", err)
	}
	return nil
}

// ==================== Spaces ====================

// CreateSpace creates a space
func (db *PostgresDatabase) CreateSpace(space *models.Space) error {
	if space.ID == "" {
		space.ID = uuid.New().String()
	}

	query := `
		INSERT INTO spaces (id, name, member_ids, invite_code, type, created_at, updated_at)
		VALUES ($1, $2, $3, NULLIF($4, ''), $5, NOW(), NOW())
		RETURNING created_at, updated_at
	`
	err := db.db.QueryRow(query, space.ID, space.Name, pq.Array(space.MemberIDs), space.InviteCode, string(space.Type)).
		Scan(&space.CreatedAt, &space.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.Conflict("invite code already in use")
		}
		return apperrors.Transport("failed to create space", err)
	}
	return nil
}

const spaceColumns = `id, name, member_ids, COALESCE(invite_code,''), type, created_at, updated_at`

func scanSpace(row interface{ Scan(...interface{}) error }) (*models.Space, error) {
	var s models.Space
	err := row.Scan(&s.ID, &s.Name, pq.Array(&s.MemberIDs), &s.InviteCode, &s.Type, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// GetSpaceByID looks a space up by ID
func (db *PostgresDatabase) GetSpaceByID(spaceID string) (*models.Space, error) {
	query := fmt.Sprintf(`SELECT %s FROM spaces WHERE id = $1`, spaceColumns)
	space, err := scanSpace(db.db.QueryRow(query, spaceID))
	if err == sql.ErrNoRows {
		return nil, apperrors.NotFound("space not found")
	}
	if err != nil {
		return nil, apperrors.Transport("failed to get space", err)
	}
	return space, nil
}

// GetSpaceByInviteCode resolves an unconsumed invite code to its space
func (db *PostgresDatabase) GetSpaceByInviteCode(code string) (*models.Space, error) {
	query := fmt.Sprintf(`SELECT %s FROM spaces WHERE invite_code = $1`, spaceColumns)
	space, err := scanSpace(db.db.QueryRow(query, code))
	if err == sql.ErrNoRows {
		return nil, apperrors.NotFound("no space with that invite code")
	}
	if err != nil {
		return nil, apperrors.Transport("failed to get space", err)
	}
	return space, nil
}

// ListUserSpaces lists spaces the user is a member of
func (db *PostgresDatabase) ListUserSpaces(userID string) ([]models.Space, error) {
	query := fmt.Sprintf(`SELECT %s FROM spaces WHERE member_ids @> ARRAY[$1]::text[] ORDER BY created_at`, spaceColumns)
	rows, err := db.db.Query(query, userID)
	if err != nil {
		return nil, apperrors.Transport("failed to list spaces", err)
	}
	defer rows.Close()

	var spaces []models.Space
	for rows.Next() {
		s, err := scanSpace(rows)
		if err != nil {
			return nil, apperrors.Transport("failed to scan space", err)
		}
		spaces = append(spaces, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Transport("failed to iterate spaces", err)
	}
	return spaces, nil
}

// AddSpaceMember appends a member atomically. The row lock makes the
// ceiling check race-free under concurrent joins.
func (db *PostgresDatabase) AddSpaceMember(spaceID, userID string) error {
	tx, err := db.db.Begin()
	if err != nil {
		return apperrors.Transport("failed to begin transaction", err)
	}
	defer tx.Rollback()

	var members []string
	err = tx.QueryRow(`SELECT member_ids FROM spaces WHERE id = $1 FOR UPDATE`, spaceID).Scan(pq.Array(&members))
	if err == sql.ErrNoRows {
		return apperrors.NotFound("space not found")
	}
	if err != nil {
		return apperrors.Transport("failed to lock space", err)
	}
	for _, id := range members {
		if id == userID {
			return apperrors.Conflict("user is already a member of the space")
		}
	}
	if len(members) >= models.MaxSpaceMembers {
		return apperrors.Conflict("space is full")
	}

	members = append(members, userID)
	consumed := len(members) >= models.MaxSpaceMembers
	query := `
		UPDATE spaces
		SET member_ids = $2,
		    type = $3,
		    invite_code = CASE WHEN $4 THEN NULL ELSE invite_code END,
		    updated_at = NOW()
		WHERE id = $1
	`
	if _, err = tx.Exec(query, spaceID, pq.Array(members), string(models.SpaceShared), consumed); err != nil {
		return apperrors.Transport("failed to add member", err)
	}

	if err = tx.Commit(); err != nil {
		return apperrors.Transport("failed to commit join", err)
	}
	return nil
}

// RemoveSpaceMember removes a member; the last member leaving deletes the
// space and cascades to its tasks.
func (db *PostgresDatabase) RemoveSpaceMember(spaceID, userID string) error {
	tx, err := db.db.Begin()
	if err != nil {
		return apperrors.Transport("failed to begin transaction", err)
	}
	defer tx.Rollback()

	var members []string
	err = tx.QueryRow(`SELECT member_ids FROM spaces WHERE id = $1 FOR UPDATE`, spaceID).Scan(pq.Array(&members))
	if err == sql.ErrNoRows {
		return apperrors.NotFound("space not found")
	}
	if err != nil {
		return apperrors.Transport("failed to lock space", err)
	}

	var remaining []string
	found := false
	for _, id := range members {
		if id == userID {
			found = true
			continue
		}
		remaining = append(remaining, id)
	}
	if !found {
		return apperrors.Conflict("user is not a member of the space")
	}

	if len(remaining) == 0 {
		if _, err = tx.Exec(`DELETE FROM tasks WHERE space_id = $1`, spaceID); err != nil {
			return apperrors.Transport("failed to delete tasks", err)
		}
		if _, err = tx.Exec(`DELETE FROM spaces WHERE id = $1`, spaceID); err != nil {
			return apperrors.Transport("failed to delete space", err)
		}
	} else {
		query := `UPDATE spaces SET member_ids = $2, type = $3, updated_at = NOW() WHERE id = $1`
		if _, err = tx.Exec(query, spaceID, pq.Array(remaining), string(models.SpacePersonal)); err != nil {
			return apperrors.Transport("failed to remove member", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return apperrors.Transport("failed to commit leave", err)
	}
	return nil
}

// DeleteSpace deletes a space and every task scoped to it
func (db *PostgresDatabase) DeleteSpace(spaceID string) error {
	tx, err := db.db.Begin()
	if err != nil {
		return apperrors.Transport("failed to begin transaction", err)
	}
	defer tx.Rollback()

	if _, err = tx.Exec(`DELETE FROM tasks WHERE space_id = $1`, spaceID); err != nil {
		return apperrors.Transport("failed to delete tasks", err)
	}

	result, err := tx.Exec(`DELETE FROM spaces WHERE id = $1`, spaceID)
	if err != nil {
		return apperrors.Transport("failed to delete space", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return apperrors.NotFound("space not found")
	}

	if err = tx.Commit(); err != nil {
		return apperrors.Transport("failed to commit delete", err)
	}
	return nil
}

// ==================== Tasks ====================

// CreateTask creates a task
func (db *PostgresDatabase) CreateTask(task *models.Task) error {
	if task.ID == "" {
		task.ID = uuid.New().String()
	}

	query := `
		INSERT INTO tasks (id, creator_id, space_id, title, description, due_date, type, priority, status, scope, effort, progress_percentage, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, NOW(), NOW())
		RETURNING created_at, updated_at
	`
	err := db.db.QueryRow(query, task.ID, task.CreatorID, task.SpaceID, task.Title, task.Description,
		task.DueDate, string(task.Type), string(task.Priority), string(task.Status), string(task.Scope),
		task.Effort, task.ProgressPercentage).
		Scan(&task.CreatedAt, &task.UpdatedAt)
	if err != nil {
		if isForeignKeyViolation(err) {
			return apperrors.NotFound("space not found")
		}
		return apperrors.Transport("failed to create task", err)
	}
	return nil
}

const taskColumns = `id, creator_id, space_id, title, COALESCE(description,''), due_date,
	type, priority, status, scope, effort, progress_percentage, created_at, updated_at`

func scanTask(row interface{ Scan(...interface{}) error }) (*models.Task, error) {
	var t models.Task
	err := row.Scan(&t.ID, &t.CreatorID, &t.SpaceID, &t.Title, &t.Description, &t.DueDate,
		&t.Type, &t.Priority, &t.Status, &t.Scope, &t.Effort, &t.ProgressPercentage,
		&t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// GetTaskByID looks a task up by ID
func (db *PostgresDatabase) GetTaskByID(id string) (*models.Task, error) {
	query := fmt.Sprintf(`SELECT %s FROM tasks WHERE id = $1`, taskColumns)
	task, err := scanTask(db.db.QueryRow(query, id))
	if err == sql.ErrNoRows {
		return nil, apperrors.NotFound("task not found")
	}
	if err != nil {
		return nil, apperrors.Transport("failed to get task", err)
	}
	return task, nil
}

// UpdateTask replaces the mutable fields of a task
func (db *PostgresDatabase) UpdateTask(task *models.Task) error {
	query := `
		UPDATE tasks
		SET title = $2, description = $3, due_date = $4, type = $5, priority = $6,
		    status = $7, scope = $8, effort = $9, progress_percentage = $10, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at
	`
	err := db.db.QueryRow(query, task.ID, task.Title, task.Description, task.DueDate,
		string(task.Type), string(task.Priority), string(task.Status), string(task.Scope),
		task.Effort, task.ProgressPercentage).Scan(&task.UpdatedAt)
	if err == sql.ErrNoRows {
		return apperrors.NotFound("task not found")
	}
	if err != nil {
		return apperrors.Transport("failed to update task", err)
	}
	return nil
}

// UpdateTaskStatus sets only the completion flag
func (db *PostgresDatabase) UpdateTaskStatus(id string, status models.TaskStatus) error {
	result, err := db.db.Exec(`UPDATE tasks SET status = $2, updated_at = NOW() WHERE id = $1`, id, string(status))
	if err != nil {
		return apperrors.Transport("failed to update task status", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return apperrors.NotFound("task not found")
	}
	return nil
}

// UpdateTaskProgress sets only the progress percentage
func (db *PostgresDatabase) UpdateTaskProgress(id string, pct int) error {
	result, err := db.db.Exec(`UPDATE tasks SET progress_percentage = $2, updated_at = NOW() WHERE id = $1`, id, pct)
	if err != nil {
		return apperrors.Transport("failed to update task progress", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return apperrors.NotFound("task not found")
	}
	return nil
}

// DeleteTask removes a task permanently
func (db *PostgresDatabase) DeleteTask(id string) error {
	result, err := db.db.Exec(`DELETE FROM tasks WHERE id = $1`, id)
	if err != nil {
		return apperrors.Transport("failed to delete task", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return apperrors.NotFound("task not found")
	}
	return nil
}

// ListTasksBySpace lists the space's tasks in creation order
func (db *PostgresDatabase) ListTasksBySpace(spaceID string) ([]models.Task, error) {
	query := fmt.Sprintf(`SELECT %s FROM tasks WHERE space_id = $1 ORDER BY created_at, id`, taskColumns)
	return db.queryTasks(query, spaceID)
}

// ListCompletedTasks lists completed tasks in one space, or in all of the
// user's spaces when spaceID is empty.
func (db *PostgresDatabase) ListCompletedTasks(userID, spaceID string) ([]models.Task, error) {
	if spaceID != "" {
		query := fmt.Sprintf(`SELECT %s FROM tasks WHERE space_id = $1 AND status = 'completed' ORDER BY created_at, id`, taskColumns)
		return db.queryTasks(query, spaceID)
	}
	query := fmt.Sprintf(`
		SELECT %s FROM tasks
		WHERE status = 'completed'
		  AND space_id IN (SELECT id FROM spaces WHERE member_ids @> ARRAY[$1]::text[])
		ORDER BY created_at, id
	`, taskColumns)
	return db.queryTasks(query, userID)
}

// ListDueTasks lists pending tasks due at or before the given time
func (db *PostgresDatabase) ListDueTasks(before time.Time) ([]models.Task, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM tasks
		WHERE status = 'pending' AND due_date IS NOT NULL AND due_date <= $1
		ORDER BY due_date, id
	`, taskColumns)
	return db.queryTasks(query, before)
}

func (db *PostgresDatabase) queryTasks(query string, args ...interface{}) ([]models.Task, error) {
	rows, err := db.db.Query(query, args...)
	if err != nil {
		return nil, apperrors.Transport("failed to list tasks", err)
	}
	defer rows.Close()

	var tasks []models.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, apperrors.Transport("failed to scan task", err)
		}
		tasks = append(tasks, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Transport("failed to iterate tasks", err)
	}
	return tasks, nil
}

// ==================== Change feed ====================

// notifyPayload is the JSON body the triggers hand to pg_notify.
type notifyPayload struct {
	Collection string   `json:"collection"`
	Keys       []string `json:"keys"`
}

// Listen opens a LISTEN/NOTIFY change feed. Events carry ULIDs assigned on
// receipt, so ordering reflects delivery order on this connection.
func (db *PostgresDatabase) Listen(ctx context.Context) (<-chan ChangeEvent, error) {
	listener := pq.NewListener(db.dsn, 2*time.Second, time.Minute, func(ev pq.ListenerEventType, err error) {
		if err != nil {
			fmt.Printf("[warn] change feed listener event %d: %v\n", ev, err)
		}
	})
	if err := listener.Listen(notifyChannel); err != nil {
		listener.Close()
		return nil, apperrors.Transport("failed to listen on change channel", err)
	}

	out := make(chan ChangeEvent, 64)
	go func() {
		defer close(out)
		defer listener.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case n, ok := <-listener.Notify:
				if !ok {
					return
				}
				if n == nil {
					// Reconnect marker; pq sends nil after re-establishing
					continue
				}
				var payload notifyPayload
				if err := json.Unmarshal([]byte(n.Extra), &payload); err != nil {
					fmt.Printf("[warn] malformed change notification: %v\n", err)
					continue
				}
				ev := ChangeEvent{
					ID:         db.newEventID(),
					Collection: payload.Collection,
					Keys:       payload.Keys,
				}
				select {
				case out <- ev:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}

// HealthCheck pings the database
func (db *PostgresDatabase) HealthCheck() error {
	if err := db.db.Ping(); err != nil {
		return apperrors.Transport("database ping failed", err)
	}
	return nil
}

// Close closes the connection pool
func (db *PostgresDatabase) Close() error {
	return db.db.Close()
}

func isUniqueViolation(err error) bool {
	if pqErr, ok := err.(*pq.Error); ok {
		return pqErr.Code == "23505"
	}
	return false
}

func isForeignKeyViolation(err error) bool {
	if pqErr, ok := err.(*pq.Error); ok {
		return pqErr.Code == "23503"
	}
	return false
}
