// Package calendar connects users' Google calendars: the OAuth link flow,
// pushing committed meetings and reading events for schedule replies.
package calendar

import (
	"context"
	"errors"
	"fmt"
	"time"

	"assistantbot/internal/linking"
	"assistantbot/pkg/config"

	"github.com/sirupsen/logrus"
)

var (
	ErrNotConfigured = errors.New("google calendar не интегрирован")
	ErrNotConnected  = errors.New("google calendar не подключен")
)

type Event struct {
	ID          string
	Title       string
	Description string
	StartsAt    time.Time
	EndsAt      time.Time
	AllDay      bool
}

type Service struct {
	google *GoogleClient
	states *linking.Service
}

// NewService builds the Google client when credentials are configured. A
// missing or broken credentials file leaves the service disabled.
func NewService(cfg *config.Config, tokens TokenStore, states *linking.Service) *Service {
	var client *GoogleClient
	if cfg.GoogleCredentials != "" {
		var err error
		client, err = NewGoogleClient(cfg.GoogleCredentials, cfg.GoogleRedirectURL, tokens)
		if err != nil {
			logrus.Warnf("Не удалось инициализировать Google Calendar: %v", err)
			client = nil
		} else {
			logrus.Info("Google Calendar клиент инициализирован")
		}
	}
	return NewServiceWithClient(client, states)
}

func NewServiceWithClient(client *GoogleClient, states *linking.Service) *Service {
	return &Service{google: client, states: states}
}

func (s *Service) Enabled() bool {
	return s != nil && s.google != nil
}

// ConnectURL returns the Google consent URL for userID.
func (s *Service) ConnectURL(userID int64) (string, error) {
	if !s.Enabled() {
		return "", ErrNotConfigured
	}
	state, err := s.states.Issue(userID)
	if err != nil {
		return "", err
	}
	return s.google.AuthURL(state), nil
}

// HandleCallback consumes the state and stores the user's token.
func (s *Service) HandleCallback(ctx context.Context, state, code string) (int64, error) {
	if !s.Enabled() {
		return 0, ErrNotConfigured
	}
	userID, err := s.states.Consume(state)
	if err != nil {
		return 0, err
	}
	if err := s.google.Exchange(ctx, code, userID); err != nil {
		return 0, fmt.Errorf("ошибка при подключении Google Calendar пользователя %d: %w", userID, err)
	}
	logrus.Infof("Google Calendar подключен для пользователя %d", userID)
	return userID, nil
}

func (s *Service) Connected(ctx context.Context, userID int64) bool {
	if !s.Enabled() {
		return false
	}
	ok, err := s.google.Connected(ctx, userID)
	if err != nil {
		logrus.Errorf("Ошибка при проверке подключения Google Calendar: %v", err)
		return false
	}
	return ok
}

// Push creates e in the user's calendar. ErrNotConnected means the user has
// not linked an account and is not a failure worth reporting.
func (s *Service) Push(ctx context.Context, userID int64, e Event, loc *time.Location) (string, error) {
	if !s.Enabled() {
		return "", ErrNotConnected
	}
	return s.google.Insert(ctx, userID, e, loc)
}

// Events lists the user's Google events in [from, to). Users without a link
// get an empty list.
func (s *Service) Events(ctx context.Context, userID int64, from, to time.Time) ([]Event, error) {
	if !s.Enabled() {
		return nil, nil
	}
	events, err := s.google.List(ctx, userID, from, to)
	if errors.Is(err, ErrNotConnected) {
		return nil, nil
	}
	return events, err
}
