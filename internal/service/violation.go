package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/iliyamo/study-room-reservation/internal/model"
	"github.com/iliyamo/study-room-reservation/internal/queue"
	"github.com/iliyamo/study-room-reservation/internal/repository"
)

// Fallback values used when a tunable is absent or unparsable.
const (
	DefaultReminderBeforeMin = 15
	DefaultNoShowTimeoutMin  = 10
	DefaultMaxViolations     = 3
	DefaultBanDays           = 7
)

// Tunables resolves operator-adjustable integers by key.
type Tunables interface {
	GetInt(ctx context.Context, key string, def int) (int, error)
}

// ViolationStore is the sweep's storage surface. The Mark/Record
// methods commit a whole batch atomically.
type ViolationStore interface {
	UnremindedUpcoming(ctx context.Context, from, to time.Time) ([]repository.ReservationWithRoom, error)
	OverdueScheduled(ctx context.Context, cutoff time.Time) ([]repository.ReservationWithRoom, error)
	MarkReminded(ctx context.Context, notes []repository.ReminderNote) error
	RecordNoShows(ctx context.Context, batch []repository.NoShowAction) error
}

// EventPublisher pushes recorded violations to the message broker.
// Publishing is best-effort: a broker outage never blocks the sweep.
type EventPublisher interface {
	PublishViolationRecorded(ctx context.Context, event queue.ViolationRecordedEvent) error
}

// ViolationEngine runs the periodic sweep: reminders for upcoming
// reservations, then no-show detection with escalating penalties. A
// student whose violation count reaches the threshold is banned from
// reserving for a configured number of days.
type ViolationEngine struct {
	store     ViolationStore
	users     BanChecker
	tunables  Tunables
	publisher EventPublisher
	logger    *zap.Logger
	now       func() time.Time
}

func NewViolationEngine(store ViolationStore, users BanChecker, tunables Tunables, publisher EventPublisher, logger *zap.Logger) *ViolationEngine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ViolationEngine{
		store:     store,
		users:     users,
		tunables:  tunables,
		publisher: publisher,
		logger:    logger,
		now:       time.Now,
	}
}

// Sweep runs one full pass: reminders first, then no-shows. Errors are
// logged and returned but the two phases are independent; a reminder
// failure does not stop no-show processing.
func (e *ViolationEngine) Sweep(ctx context.Context) error {
	var firstErr error
	if err := e.RemindUpcoming(ctx); err != nil {
		e.logger.Error("reminder sweep failed", zap.Error(err))
		firstErr = err
	}
	if err := e.ProcessNoShows(ctx); err != nil {
		e.logger.Error("no-show sweep failed", zap.Error(err))
		if firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// RemindUpcoming notifies students whose reservation starts within the
// reminder window. The reminder_sent flag is flipped in the same
// transaction as the notification, so a reservation is reminded at
// most once no matter how often the sweep runs.
func (e *ViolationEngine) RemindUpcoming(ctx context.Context) error {
	before, err := e.tunables.GetInt(ctx, model.SettingReminderBeforeMin, DefaultReminderBeforeMin)
	if err != nil {
		return err
	}
	now := e.now().UTC()
	pending, err := e.store.UnremindedUpcoming(ctx, now, now.Add(time.Duration(before)*time.Minute))
	if err != nil {
		return err
	}
	if len(pending) == 0 {
		return nil
	}

	notes := make([]repository.ReminderNote, 0, len(pending))
	for _, r := range pending {
		notes = append(notes, repository.ReminderNote{
			ReservationID: r.ID,
			StudentID:     r.StudentID,
			Message: fmt.Sprintf("Reminder: your reservation in %s starts at %s.",
				r.RoomName, r.StartTime.Format("2006-01-02 15:04")),
		})
	}
	if err := e.store.MarkReminded(ctx, notes); err != nil {
		return err
	}
	e.logger.Info("reminders sent", zap.Int("count", len(notes)))
	return nil
}

// ProcessNoShows marks reservations whose grace period elapsed without
// a check-in as violations and applies the penalties. Multiple
// no-shows of one student in a single batch accumulate: the second one
// sees the count incremented by the first, so a student can cross the
// ban threshold within one sweep.
func (e *ViolationEngine) ProcessNoShows(ctx context.Context) error {
	timeout, err := e.tunables.GetInt(ctx, model.SettingNoShowTimeoutMin, DefaultNoShowTimeoutMin)
	if err != nil {
		return err
	}
	maxViolations, err := e.tunables.GetInt(ctx, model.SettingMaxViolationCount, DefaultMaxViolations)
	if err != nil {
		return err
	}
	banDays, err := e.tunables.GetInt(ctx, model.SettingBanDays, DefaultBanDays)
	if err != nil {
		return err
	}

	now := e.now().UTC()
	overdue, err := e.store.OverdueScheduled(ctx, now.Add(-time.Duration(timeout)*time.Minute))
	if err != nil {
		return err
	}
	if len(overdue) == 0 {
		return nil
	}

	counts := make(map[uint64]int)
	batch := make([]repository.NoShowAction, 0, len(overdue))
	for _, r := range overdue {
		count, seen := counts[r.StudentID]
		if !seen {
			user, err := e.users.GetByID(ctx, r.StudentID)
			if err != nil {
				e.logger.Error("load student for no-show failed",
					zap.Uint64("student_id", r.StudentID), zap.Error(err))
				continue
			}
			count = user.ViolationCount
		}
		count++
		counts[r.StudentID] = count

		action := repository.NoShowAction{
			ReservationID:  r.ID,
			StudentID:      r.StudentID,
			ViolationCount: count,
		}
		when := r.StartTime.Format("2006-01-02 15:04")
		if count >= maxViolations {
			until := now.AddDate(0, 0, banDays)
			action.BannedUntil = &until
			action.Message = fmt.Sprintf(
				"Your reservation in %s at %s was marked as a no-show. You have reached %d violations and are banned from reserving until %s.",
				r.RoomName, when, count, until.Format("2006-01-02"))
		} else {
			action.Message = fmt.Sprintf(
				"Your reservation in %s at %s was marked as a no-show. You have %d violation(s); %d more will result in a temporary ban.",
				r.RoomName, when, count, maxViolations-count)
		}
		batch = append(batch, action)
	}
	if len(batch) == 0 {
		return nil
	}

	if err := e.store.RecordNoShows(ctx, batch); err != nil {
		return err
	}
	e.logger.Info("no-shows recorded", zap.Int("count", len(batch)))

	if e.publisher != nil {
		for _, a := range batch {
			ev := queue.ViolationRecordedEvent{
				ReservationID:  a.ReservationID,
				StudentID:      a.StudentID,
				ViolationCount: a.ViolationCount,
				RecordedAt:     now.Format(time.RFC3339),
			}
			if a.BannedUntil != nil {
				ev.BannedUntil = a.BannedUntil.Format(time.RFC3339)
			}
			if err := e.publisher.PublishViolationRecorded(ctx, ev); err != nil {
				e.logger.Warn("publish violation event failed",
					zap.Uint64("reservation_id", a.ReservationID), zap.Error(err))
			}
		}
	}
	return nil
}
