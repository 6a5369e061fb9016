// Package extraction defines the optional structured-extraction collaborator
// and the caller-side timeout around it. A missing or failing extractor is
// never an error for callers; they branch on Result.Status and fall back to
// heuristics.
package extraction

import (
	"context"
	"errors"
	"time"

	"assistantbot/internal/metrics"
	"assistantbot/internal/temporal"

	"github.com/sirupsen/logrus"
)

type Status int

const (
	StatusAbsent Status = iota
	StatusFound
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusFound:
		return "found"
	case StatusFailed:
		return "failed"
	default:
		return "absent"
	}
}

type Intent string

const (
	IntentCreateMeeting Intent = "create_meeting"
	IntentCreateTask    Intent = "create_task"
	IntentOther         Intent = "other"
)

var ErrNoExtractor = errors.New("извлечение структуры не настроено")

type Result struct {
	Status   Status
	Intent   Intent
	Fragment temporal.Fragment
	Err      error
}

func Found(intent Intent, f temporal.Fragment) Result {
	return Result{Status: StatusFound, Intent: intent, Fragment: f}
}

func Absent() Result {
	return Result{Status: StatusAbsent}
}

func Failed(err error) Result {
	return Result{Status: StatusFailed, Err: err}
}

// CreatesMeeting reports a confident create-meeting signal.
func (r Result) CreatesMeeting() bool {
	return r.Status == StatusFound && r.Intent == IntentCreateMeeting
}

// Fields returns the fragment only for a found result.
func (r Result) Fields() temporal.Fragment {
	if r.Status != StatusFound {
		return temporal.Fragment{}
	}
	return r.Fragment
}

type Extractor interface {
	Extract(ctx context.Context, text string, now time.Time) Result
}

// ExtractorFunc adapts a plain function.
type ExtractorFunc func(ctx context.Context, text string, now time.Time) Result

func (f ExtractorFunc) Extract(ctx context.Context, text string, now time.Time) Result {
	return f(ctx, text, now)
}

// Call runs ex with a deadline. The extractor runs in its own goroutine, so
// one that ignores its context still cannot hold the caller past timeout.
func Call(ctx context.Context, ex Extractor, timeout time.Duration, text string, now time.Time) Result {
	if ex == nil {
		return record(Absent())
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	done := make(chan Result, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				logrus.Errorf("Паника в извлечении структуры: %v", r)
				done <- Failed(errors.New("паника в извлечении структуры"))
			}
		}()
		done <- ex.Extract(ctx, text, now)
	}()

	select {
	case res := <-done:
		if res.Status == StatusFailed {
			logrus.Warnf("Извлечение структуры не удалось, используем эвристики: %v", res.Err)
		}
		return record(res)
	case <-ctx.Done():
		logrus.Warnf("Извлечение структуры не уложилось в %s, используем эвристики", timeout)
		return record(Failed(ctx.Err()))
	}
}

func record(r Result) Result {
	metrics.Extractions.WithLabelValues(r.Status.String()).Inc()
	return r
}
