package meetings

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
)

// Sender delivers a text to a user.
type Sender func(ctx context.Context, userID int64, text string) error

// ZoneResolver returns the zone a user's times are rendered in.
type ZoneResolver interface {
	Location(ctx context.Context, userID int64) *time.Location
}

type Reminder struct {
	store    Store
	zones    ZoneResolver
	send     Sender
	lead     time.Duration
	interval time.Duration
}

func NewReminder(store Store, zones ZoneResolver, send Sender, lead time.Duration) *Reminder {
	if lead <= 0 {
		lead = 30 * time.Minute
	}
	return &Reminder{
		store:    store,
		zones:    zones,
		send:     send,
		lead:     lead,
		interval: 20 * time.Second,
	}
}

// Start checks for due reminders on a ticker until ctx is cancelled.
func (r *Reminder) Start(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(r.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if _, err := r.CheckOnce(ctx, time.Now()); err != nil {
					logrus.Errorf("Ошибка при проверке напоминаний: %v", err)
				}
			}
		}
	}()
	logrus.Infof("Запущена проверка напоминаний, интервал %s", r.interval)
}

// CheckOnce sends every due reminder and marks it sent. A meeting whose
// send fails stays unmarked and is retried on the next tick.
func (r *Reminder) CheckOnce(ctx context.Context, now time.Time) (int, error) {
	due, err := r.store.DueReminders(ctx, now, r.lead)
	if err != nil {
		return 0, err
	}

	sent := 0
	for _, m := range due {
		loc := time.UTC
		if r.zones != nil {
			if l := r.zones.Location(ctx, m.UserID); l != nil {
				loc = l
			}
		}
		minutes := int(m.StartsAt.Sub(now).Round(time.Minute) / time.Minute)
		message := fmt.Sprintf("⏰ Напоминание: через %d мин. встреча «%s» в %s",
			minutes, m.Title, m.StartsAt.In(loc).Format("15:04"))
		if m.ExternalLink != "" {
			message += "\n🔗 " + m.ExternalLink
		}

		if err := r.send(ctx, m.UserID, message); err != nil {
			logrus.Errorf("Ошибка при отправке напоминания пользователю %d: %v", m.UserID, err)
			continue
		}
		if err := r.store.MarkReminderSent(ctx, m.ID); err != nil {
			logrus.Errorf("Ошибка при обновлении статуса напоминания: %v", err)
			continue
		}
		sent++
	}
	return sent, nil
}
