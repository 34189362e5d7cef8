package reminders

import (
	"fmt"
	"sync"
	"time"

	"task-sync-backend/pkg/database"
	"task-sync-backend/pkg/models"

	"github.com/robfig/cron/v3"
)

// PushSender delivers one reminder to one device token.
type PushSender interface {
	Send(token string, task models.Task) error
}

// LogSender writes reminders to the process log. Used in development and
// whenever no real push provider is configured.
type LogSender struct{}

func (LogSender) Send(token string, task models.Task) error {
	fmt.Printf("[reminder] token=%s task=%s title=%q due=%v\n", token, task.ID, task.Title, task.DueDate)
	return nil
}

// Sweeper periodically scans for pending tasks whose due date falls inside
// the upcoming window and pushes a reminder to every member of the task's
// space. A task is reminded once per due date; rescheduling it re-arms the
// reminder.
type Sweeper struct {
	db       database.DatabaseInterface
	sender   PushSender
	window   time.Duration
	interval time.Duration
	cron     *cron.Cron

	mu       sync.Mutex
	notified map[string]time.Time
}

// NewSweeper creates a reminder sweeper.
func NewSweeper(db database.DatabaseInterface, sender PushSender, interval, window time.Duration) *Sweeper {
	return &Sweeper{
		db:       db,
		sender:   sender,
		window:   window,
		interval: interval,
		cron:     cron.New(),
		notified: make(map[string]time.Time),
	}
}

// Start schedules the periodic sweep.
func (s *Sweeper) Start() error {
	seconds := int(s.interval.Seconds())
	if seconds <= 0 {
		seconds = 1
	}
	spec := fmt.Sprintf("@every %ds", seconds)
	if _, err := s.cron.AddFunc(spec, s.Sweep); err != nil {
		return err
	}
	s.cron.Start()
	return nil
}

// Stop halts the schedule and waits for a running sweep to finish.
func (s *Sweeper) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}

// Sweep runs one scan. Exported so the sweep is drivable from tests and
// ad-hoc tooling without waiting on the schedule.
func (s *Sweeper) Sweep() {
	due, err := s.db.ListDueTasks(time.Now().Add(s.window))
	if err != nil {
		fmt.Printf("[error] reminder sweep failed to list due tasks: %v\n", err)
		return
	}

	for _, task := range due {
		if task.DueDate == nil {
			continue
		}
		if s.alreadyNotified(task) {
			continue
		}
		if err := s.notifySpaceMembers(task); err != nil {
			fmt.Printf("[warn] reminder delivery incomplete for task %s: %v\n", task.ID, err)
			continue
		}
		s.markNotified(task)
	}

	s.prune()
}

func (s *Sweeper) alreadyNotified(task models.Task) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	sent, ok := s.notified[task.ID]
	return ok && sent.Equal(*task.DueDate)
}

func (s *Sweeper) markNotified(task models.Task) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notified[task.ID] = *task.DueDate
}

// prune drops bookkeeping for due dates already in the past.
func (s *Sweeper) prune() {
	cutoff := time.Now().Add(-s.window)
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, due := range s.notified {
		if due.Before(cutoff) {
			delete(s.notified, id)
		}
	}
}

func (s *Sweeper) notifySpaceMembers(task models.Task) error {
	space, err := s.db.GetSpaceByID(task.SpaceID)
	if err != nil {
		return err
	}

	var firstErr error
	for _, memberID := range space.MemberIDs {
		user, err := s.db.GetUserByID(memberID)
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		if user.PushToken == "" {
			continue
		}
		if err := s.sender.Send(user.PushToken, task); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
