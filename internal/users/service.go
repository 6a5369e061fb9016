package users

import (
	"context"
	"errors"
	"fmt"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/sirupsen/logrus"
)

var ErrUnknownTimezone = errors.New("неизвестный часовой пояс")

// Service resolves users and their zones. Zones are cached per user id.
type Service struct {
	store    Store
	fallback *time.Location
	zones    *lru.Cache[int64, *time.Location]
}

func NewService(store Store, fallback *time.Location, cacheSize int) *Service {
	if fallback == nil {
		fallback = time.UTC
	}
	if cacheSize <= 0 {
		cacheSize = 1024
	}
	zones, err := lru.New[int64, *time.Location](cacheSize)
	if err != nil {
		// only fails for a non-positive size
		panic(err)
	}
	return &Service{store: store, fallback: fallback, zones: zones}
}

// Touch records the profile seen on an incoming update.
func (s *Service) Touch(ctx context.Context, id int64, username, firstName string) error {
	if err := s.store.Upsert(ctx, User{ID: id, Username: username, FirstName: firstName}); err != nil {
		return fmt.Errorf("ошибка при обновлении пользователя %d: %w", id, err)
	}
	return nil
}

// Location returns the user's zone, or the default when the user has none
// or an unknown one.
func (s *Service) Location(ctx context.Context, id int64) *time.Location {
	if loc, ok := s.zones.Get(id); ok {
		return loc
	}
	u, ok, err := s.store.Get(ctx, id)
	if err != nil {
		logrus.Errorf("Ошибка при получении часового пояса пользователя %d: %v", id, err)
		return s.fallback
	}
	loc := s.fallback
	if ok && u.Timezone != "" {
		if l, err := time.LoadLocation(u.Timezone); err == nil {
			loc = l
		} else {
			logrus.Warnf("Некорректный часовой пояс %q у пользователя %d", u.Timezone, id)
		}
	}
	s.zones.Add(id, loc)
	return loc
}

func (s *Service) SetTimezone(ctx context.Context, id int64, zone string) error {
	loc, err := time.LoadLocation(zone)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrUnknownTimezone, zone)
	}
	if err := s.store.SetTimezone(ctx, id, zone); err != nil {
		return err
	}
	s.zones.Add(id, loc)
	return nil
}
