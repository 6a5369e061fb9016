// Package dispatcher is the single entry point for inbound text. It routes a
// message to an open wizard session, a flow trigger or the intent engine,
// performs the resulting writes and returns the reply.
package dispatcher

import (
	"context"
	"sync"
	"time"

	"assistantbot/internal/calendar"
	"assistantbot/internal/intent"
	"assistantbot/internal/meetings"
	"assistantbot/internal/messagestore"
	"assistantbot/internal/messagestore/models"
	"assistantbot/internal/notes"
	"assistantbot/internal/textnorm"
	"assistantbot/internal/wizard"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const apology = "⚠️ Не удалось обработать сообщение. Попробуйте ещё раз чуть позже."

// Calendar is the Google side of meetings and schedules.
type Calendar interface {
	Enabled() bool
	ConnectURL(userID int64) (string, error)
	Push(ctx context.Context, userID int64, e calendar.Event, loc *time.Location) (string, error)
	Events(ctx context.Context, userID int64, from, to time.Time) ([]calendar.Event, error)
}

var _ Calendar = (*calendar.Service)(nil)

// Committed describes the record a message created or changed.
type Committed struct {
	Action       intent.Action
	Title        string
	StartsAt     *time.Time
	EndsAt       *time.Time
	DueAt        *time.Time
	NoteID       uuid.UUID
	NoteNumber   int
	NoteContent  string
	ExternalLink string
}

type Result struct {
	Reply     string
	Committed *Committed
	// InFlow is true while a wizard session stays open after this message.
	InFlow bool

	Classification intent.Classification
	Status         intent.Status
}

type Deps struct {
	Engine   *intent.Engine
	Wizard   *wizard.Wizard
	Notes    notes.Store
	Meetings meetings.Store
	// Calendar and Journal are optional.
	Calendar Calendar
	Journal  messagestore.Journal
}

type Dispatcher struct {
	engine   *intent.Engine
	wizard   *wizard.Wizard
	notes    notes.Store
	meetings meetings.Store
	calendar Calendar
	journal  messagestore.Journal

	locks sync.Map
	now   func() time.Time
}

func New(d Deps) *Dispatcher {
	return &Dispatcher{
		engine:   d.Engine,
		wizard:   d.Wizard,
		notes:    d.Notes,
		meetings: d.Meetings,
		calendar: d.Calendar,
		journal:  d.Journal,
		now:      time.Now,
	}
}

// HandleInboundText processes one text message of userID. zone is the
// user's time zone; nil means UTC.
func (d *Dispatcher) HandleInboundText(ctx context.Context, userID int64, text string, zone *time.Location) Result {
	return d.HandleInbound(ctx, userID, models.SourceText, text, zone)
}

// HandleInbound is HandleInboundText for a given source type. The message
// and its outcome are journaled when a journal is configured.
func (d *Dispatcher) HandleInbound(ctx context.Context, userID int64, source, text string, zone *time.Location) Result {
	if zone == nil {
		zone = time.UTC
	}
	unlock := d.lock(userID)
	defer unlock()

	text = textnorm.Normalize(text)
	inboundID := d.recordInbound(ctx, userID, source, text)

	res := d.route(ctx, userID, text, d.now().In(zone))
	if res.Status == "" {
		res.Status = intent.StatusProcessed
	}
	if res.Classification == "" {
		res.Classification = intent.ClassInfoOnly
	}

	d.recordOutcome(ctx, inboundID, res)
	return res
}

func (d *Dispatcher) route(ctx context.Context, userID int64, text string, now time.Time) Result {
	log := logrus.WithField("user_id", userID)

	reply, handled, err := d.wizard.ContinueNote(ctx, userID, text, now)
	if err != nil {
		log.Errorf("Ошибка при обработке шага заметки: %v", err)
		return failed()
	}
	if handled {
		return d.applyWizard(ctx, userID, reply, now)
	}

	if mode, ok := noteTrigger(text); ok {
		return d.startNoteFlow(ctx, userID, mode, now)
	}

	reply, handled, err = d.wizard.ContinueEvent(ctx, userID, text, now)
	if err != nil {
		log.Errorf("Ошибка при обработке шага события: %v", err)
		return failed()
	}
	if handled {
		return d.applyWizard(ctx, userID, reply, now)
	}

	if wizard.IsEventTrigger(text) {
		reply, err := d.wizard.StartEvent(ctx, userID, text, now)
		if err != nil {
			log.Errorf("Ошибка при запуске создания события: %v", err)
			return failed()
		}
		return d.applyWizard(ctx, userID, reply, now)
	}

	decision := d.engine.DecideAt(ctx, text, now)
	log.WithFields(logrus.Fields{"action": decision.Action, "rule": decision.Rule}).Info("Принято решение по сообщению")
	return d.applyIntent(ctx, userID, decision, now)
}

func noteTrigger(text string) (wizard.NoteMode, bool) {
	switch {
	case wizard.IsNoteEditTrigger(text):
		return wizard.ModeEdit, true
	case wizard.IsNoteDeleteTrigger(text):
		return wizard.ModeDelete, true
	}
	return "", false
}

func (d *Dispatcher) lock(userID int64) func() {
	m, _ := d.locks.LoadOrStore(userID, &sync.Mutex{})
	mu := m.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

func (d *Dispatcher) recordInbound(ctx context.Context, userID int64, source, text string) int64 {
	if d.journal == nil {
		return 0
	}
	id, err := d.journal.RecordInbound(ctx, userID, source, text)
	if err != nil {
		logrus.Errorf("Ошибка при сохранении входящего сообщения: %v", err)
		return 0
	}
	return id
}

func (d *Dispatcher) recordOutcome(ctx context.Context, inboundID int64, res Result) {
	if d.journal == nil || inboundID == 0 {
		return
	}
	if err := d.journal.RecordOutcome(ctx, inboundID, string(res.Classification), string(res.Status), res.Reply); err != nil {
		logrus.Errorf("Ошибка при сохранении ответа: %v", err)
	}
}

func failed() Result {
	return Result{Reply: apology, Classification: intent.ClassAskClarification, Status: intent.StatusNeedsClarification}
}
