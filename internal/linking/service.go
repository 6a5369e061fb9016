// Package linking issues one-time OAuth state tokens that tie a Google
// authorization callback back to the Telegram user who asked for it.
package linking

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

var (
	ErrStateNotFound         = errors.New("токен привязки не найден или истек")
	ErrTokenAlreadyUsed      = errors.New("токен привязки уже был использован")
	ErrFailedToGenerateToken = errors.New("не удалось сгенерировать токен привязки")
)

const (
	stateTTL         = 10 * time.Minute
	stateLengthBytes = 16
)

type stateInfo struct {
	UserID    int64
	ExpiresAt time.Time
	Used      bool
}

type Service struct {
	mu     sync.Mutex
	states map[string]stateInfo
	now    func() time.Time
}

func NewService() *Service {
	return &Service{
		states: make(map[string]stateInfo),
		now:    time.Now,
	}
}

// Issue returns a fresh state token for userID.
func (s *Service) Issue(userID int64) (string, error) {
	bytes := make([]byte, stateLengthBytes)
	if _, err := rand.Read(bytes); err != nil {
		logrus.Errorf("Ошибка генерации случайных байт для токена привязки: %v", err)
		return "", ErrFailedToGenerateToken
	}
	state := hex.EncodeToString(bytes)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.states[state] = stateInfo{UserID: userID, ExpiresAt: s.now().Add(stateTTL)}
	logrus.Debugf("Сгенерирован токен привязки для пользователя %d", userID)
	return state, nil
}

// Consume validates state and marks it used. A state works once.
func (s *Service) Consume(state string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	info, ok := s.states[state]
	if !ok {
		logrus.Warnf("Попытка использовать несуществующий токен привязки")
		return 0, ErrStateNotFound
	}
	if s.now().After(info.ExpiresAt) {
		delete(s.states, state)
		return 0, ErrStateNotFound
	}
	if info.Used {
		logrus.Warnf("Попытка повторно использовать токен привязки пользователя %d", info.UserID)
		return 0, ErrTokenAlreadyUsed
	}
	info.Used = true
	s.states[state] = info
	return info.UserID, nil
}

// Cleanup drops expired and used tokens.
func (s *Service) Cleanup() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	removed := 0
	for state, info := range s.states {
		if info.Used || now.After(info.ExpiresAt) {
			delete(s.states, state)
			removed++
		}
	}
	return removed
}

// StartCleanup runs Cleanup periodically until stop is closed.
func (s *Service) StartCleanup(stop <-chan struct{}) {
	go func() {
		ticker := time.NewTicker(stateTTL / 2)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				if n := s.Cleanup(); n > 0 {
					logrus.Debugf("Очищено токенов привязки: %d", n)
				}
			}
		}
	}()
}
