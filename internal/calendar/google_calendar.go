package calendar

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	gcal "google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"
)

const primaryCalendar = "primary"

// GoogleClient talks to Google Calendar on behalf of users whose OAuth
// tokens are kept in a TokenStore.
type GoogleClient struct {
	config *oauth2.Config
	tokens TokenStore
}

func NewGoogleClient(credentialsPath, redirectURL string, tokens TokenStore) (*GoogleClient, error) {
	b, err := os.ReadFile(credentialsPath)
	if err != nil {
		return nil, fmt.Errorf("не удалось прочитать файл с учетными данными: %w", err)
	}

	config, err := google.ConfigFromJSON(b, gcal.CalendarScope)
	if err != nil {
		return nil, fmt.Errorf("не удалось разобрать учетные данные: %w", err)
	}
	if redirectURL != "" {
		config.RedirectURL = redirectURL
	}
	return NewGoogleClientWithConfig(config, tokens), nil
}

func NewGoogleClientWithConfig(config *oauth2.Config, tokens TokenStore) *GoogleClient {
	return &GoogleClient{config: config, tokens: tokens}
}

func (g *GoogleClient) AuthURL(state string) string {
	return g.config.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.ApprovalForce)
}

func (g *GoogleClient) Exchange(ctx context.Context, code string, userID int64) error {
	token, err := g.config.Exchange(ctx, code)
	if err != nil {
		return fmt.Errorf("не удалось обменять код на токен: %w", err)
	}
	return g.tokens.SaveToken(ctx, userID, token)
}

func (g *GoogleClient) Connected(ctx context.Context, userID int64) (bool, error) {
	_, ok, err := g.tokens.LoadToken(ctx, userID)
	return ok, err
}

// Insert creates an event in the user's primary calendar and returns its id.
// Times are sent with the zone the user sees them in.
func (g *GoogleClient) Insert(ctx context.Context, userID int64, e Event, loc *time.Location) (string, error) {
	srv, err := g.service(ctx, userID)
	if err != nil {
		return "", err
	}
	created, err := srv.Events.Insert(primaryCalendar, toGoogleEvent(e, loc)).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("не удалось создать событие: %w", err)
	}
	return created.Id, nil
}

// List returns single events of the primary calendar starting in [from, to).
func (g *GoogleClient) List(ctx context.Context, userID int64, from, to time.Time) ([]Event, error) {
	srv, err := g.service(ctx, userID)
	if err != nil {
		return nil, err
	}
	items, err := srv.Events.List(primaryCalendar).
		TimeMin(from.Format(time.RFC3339)).
		TimeMax(to.Format(time.RFC3339)).
		OrderBy("startTime").
		SingleEvents(true).
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("не удалось получить события из Google Calendar: %w", err)
	}

	events := make([]Event, 0, len(items.Items))
	for _, item := range items.Items {
		if item.Status == "cancelled" {
			continue
		}
		e, err := fromGoogleEvent(item, from.Location())
		if err != nil {
			continue
		}
		events = append(events, e)
	}
	return events, nil
}

func (g *GoogleClient) service(ctx context.Context, userID int64) (*gcal.Service, error) {
	client, err := g.httpClient(ctx, userID)
	if err != nil {
		return nil, err
	}
	srv, err := gcal.NewService(ctx, option.WithHTTPClient(client))
	if err != nil {
		return nil, fmt.Errorf("не удалось создать сервис календаря: %w", err)
	}
	return srv, nil
}

func (g *GoogleClient) httpClient(ctx context.Context, userID int64) (*http.Client, error) {
	token, ok, err := g.tokens.LoadToken(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotConnected
	}

	if token.Expiry.Before(time.Now()) {
		fresh, err := g.config.TokenSource(ctx, token).Token()
		if err != nil {
			return nil, fmt.Errorf("не удалось обновить токен: %w", err)
		}
		if fresh.AccessToken != token.AccessToken {
			token = fresh
			if err := g.tokens.SaveToken(ctx, userID, token); err != nil {
				return nil, err
			}
		}
	}
	return g.config.Client(ctx, token), nil
}

func toGoogleEvent(e Event, loc *time.Location) *gcal.Event {
	if loc == nil {
		loc = time.UTC
	}
	return &gcal.Event{
		Summary:     e.Title,
		Description: e.Description,
		Start: &gcal.EventDateTime{
			DateTime: e.StartsAt.In(loc).Format(time.RFC3339),
			TimeZone: loc.String(),
		},
		End: &gcal.EventDateTime{
			DateTime: e.EndsAt.In(loc).Format(time.RFC3339),
			TimeZone: loc.String(),
		},
	}
}

func fromGoogleEvent(item *gcal.Event, loc *time.Location) (Event, error) {
	start, allDay, err := parseGoogleEventTime(item.Start, loc)
	if err != nil {
		return Event{}, fmt.Errorf("ошибка парсинга времени начала: %w", err)
	}
	end, _, err := parseGoogleEventTime(item.End, loc)
	if err != nil {
		return Event{}, fmt.Errorf("ошибка парсинга времени окончания: %w", err)
	}
	return Event{
		ID:          item.Id,
		Title:       item.Summary,
		Description: item.Description,
		StartsAt:    start,
		EndsAt:      end,
		AllDay:      allDay,
	}, nil
}

// parseGoogleEventTime reads either a timed or an all-day boundary. All-day
// dates are placed at midnight in loc.
func parseGoogleEventTime(t *gcal.EventDateTime, loc *time.Location) (time.Time, bool, error) {
	if t == nil {
		return time.Time{}, false, fmt.Errorf("не удалось определить формат времени")
	}
	if t.DateTime != "" {
		parsed, err := time.Parse(time.RFC3339, t.DateTime)
		return parsed, false, err
	}
	if t.Date != "" {
		if loc == nil {
			loc = time.UTC
		}
		parsed, err := time.ParseInLocation("2006-01-02", t.Date, loc)
		return parsed, true, err
	}
	return time.Time{}, false, fmt.Errorf("не удалось определить формат времени")
}
