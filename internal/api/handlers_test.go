package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"testing"
	"time"
	_ "time/tzdata"

	"assistantbot/internal/auth"
	"assistantbot/internal/calendar"
	"assistantbot/internal/linking"
	"assistantbot/internal/meetings"
	"assistantbot/internal/notes"
	"assistantbot/internal/users"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

const (
	botToken   = "123456:test-token"
	signingKey = "secret"
)

type recordingNotifier struct{ users []int64 }

func (n *recordingNotifier) NotifyGoogleConnected(userID int64) { n.users = append(n.users, userID) }

type fixture struct {
	h        *Handler
	notes    *notes.Memory
	meetings *meetings.Memory
	states   *linking.Service
	tokens   *calendar.MemoryTokens
	notifier *recordingNotifier
	now      time.Time
}

func newFixture(t *testing.T, tokenURL string) *fixture {
	t.Helper()
	moscow, err := time.LoadLocation("Europe/Moscow")
	require.NoError(t, err)

	f := &fixture{
		notes:    notes.NewMemory(),
		meetings: meetings.NewMemory(),
		states:   linking.NewService(),
		tokens:   calendar.NewMemoryTokens(),
		notifier: &recordingNotifier{},
		now:      time.Date(2026, time.February, 20, 10, 0, 0, 0, moscow),
	}
	var client *calendar.GoogleClient
	if tokenURL != "" {
		client = calendar.NewGoogleClientWithConfig(&oauth2.Config{
			ClientID: "client",
			Endpoint: oauth2.Endpoint{AuthURL: "https://accounts.example/auth", TokenURL: tokenURL},
		}, f.tokens)
	}
	f.h = NewHandler(Deps{
		Calendar:      calendar.NewServiceWithClient(client, f.states),
		Users:         users.NewService(users.NewMemory(), moscow, 16),
		Notes:         f.notes,
		Meetings:      f.meetings,
		Notifier:      f.notifier,
		JWTSigningKey: signingKey,
		BotToken:      botToken,
	})
	f.h.now = func() time.Time { return f.now }
	return f
}

func authed(r *http.Request, userID int64) *http.Request {
	return r.WithContext(auth.WithUserID(r.Context(), userID))
}

func TestMiniAppAuth(t *testing.T) {
	f := newFixture(t, "")

	values := url.Values{}
	values.Set("auth_date", strconv.FormatInt(f.now.Add(-time.Minute).Unix(), 10))
	values.Set("user", `{"id":42,"first_name":"Анна"}`)
	values.Set("hash", auth.SignInitData(values, botToken))
	body, _ := json.Marshal(MiniAppAuthRequest{InitData: values.Encode()})

	rec := httptest.NewRecorder()
	f.h.MiniAppAuthHandler(rec, httptest.NewRequest(http.MethodPost, "/api/miniapp/auth", bytes.NewReader(body)))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp MiniAppAuthResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, int64(42), resp.UserID)
	assert.Equal(t, "Europe/Moscow", resp.Timezone)

	claims, err := auth.ValidateJWTToken(resp.Token, signingKey)
	require.NoError(t, err)
	assert.Equal(t, int64(42), claims.UserID)

	values.Set("user", `{"id":43}`)
	body, _ = json.Marshal(MiniAppAuthRequest{InitData: values.Encode()})
	rec = httptest.NewRecorder()
	f.h.MiniAppAuthHandler(rec, httptest.NewRequest(http.MethodPost, "/api/miniapp/auth", bytes.NewReader(body)))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestNotesHandler(t *testing.T) {
	f := newFixture(t, "")
	ctx := context.Background()
	_, _ = f.notes.Create(ctx, 42, "первая", "первая")
	_, _ = f.notes.Create(ctx, 42, "вторая", "вторая")
	_, _ = f.notes.Create(ctx, 7, "чужая", "чужая")

	rec := httptest.NewRecorder()
	f.h.NotesHandler(rec, authed(httptest.NewRequest(http.MethodGet, "/api/miniapp/notes", nil), 42))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp []NoteResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.Len(t, resp, 2)
	assert.Equal(t, 1, resp[0].Number)
	assert.Equal(t, "вторая", resp[0].Title)

	rec = httptest.NewRecorder()
	f.h.NotesHandler(rec, httptest.NewRequest(http.MethodGet, "/api/miniapp/notes", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestMeetingsHandler(t *testing.T) {
	f := newFixture(t, "")
	ctx := context.Background()
	day := time.Date(2026, time.February, 21, 0, 0, 0, 0, f.now.Location())
	_, _ = f.meetings.CreateMeeting(ctx, meetings.Meeting{UserID: 42, Title: "Sync", StartsAt: day.Add(14 * time.Hour), EndsAt: day.Add(15 * time.Hour)})
	_, _ = f.meetings.CreateMeeting(ctx, meetings.Meeting{UserID: 42, Title: "Позже", StartsAt: day.AddDate(0, 0, 3)})
	_, _ = f.meetings.CreateTask(ctx, meetings.Task{UserID: 42, Title: "Отчёт", DueAt: day.Add(20 * time.Hour)})

	rec := httptest.NewRecorder()
	f.h.MeetingsHandler(rec, authed(httptest.NewRequest(http.MethodGet, "/api/miniapp/meetings?from=2026-02-21&to=2026-02-21", nil), 42))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp ScheduleResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.Len(t, resp.Meetings, 1)
	assert.Equal(t, "Sync", resp.Meetings[0].Title)
	require.Len(t, resp.Tasks, 1)

	rec = httptest.NewRecorder()
	f.h.MeetingsHandler(rec, authed(httptest.NewRequest(http.MethodGet, "/api/miniapp/meetings", nil), 42))
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Len(t, resp.Meetings, 2)

	for _, q := range []string{"?from=21.02.2026", "?from=2026-02-21&to=2026-02-20", "?from=2026-01-01&to=2026-12-31"} {
		rec = httptest.NewRecorder()
		f.h.MeetingsHandler(rec, authed(httptest.NewRequest(http.MethodGet, "/api/miniapp/meetings"+q, nil), 42))
		assert.Equal(t, http.StatusBadRequest, rec.Code, q)
	}
}

func TestGoogleCallback(t *testing.T) {
	tokenSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"access","token_type":"Bearer","refresh_token":"refresh","expires_in":3600}`))
	}))
	defer tokenSrv.Close()

	f := newFixture(t, tokenSrv.URL)
	state, err := f.states.Issue(42)
	require.NoError(t, err)

	target := "/api/calendar/google/callback?code=abc&state=" + state
	rec := httptest.NewRecorder()
	f.h.HandleGoogleCallbackHandler(rec, httptest.NewRequest(http.MethodGet, target, nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []int64{42}, f.notifier.users)

	token, ok, err := f.tokens.LoadToken(context.Background(), 42)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "refresh", token.RefreshToken)

	rec = httptest.NewRecorder()
	f.h.HandleGoogleCallbackHandler(rec, httptest.NewRequest(http.MethodGet, target, nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	f.h.HandleGoogleCallbackHandler(rec, httptest.NewRequest(http.MethodGet, "/api/calendar/google/callback?error=access_denied", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGoogleCallbackWithoutGoogle(t *testing.T) {
	f := newFixture(t, "")
	rec := httptest.NewRecorder()
	f.h.HandleGoogleCallbackHandler(rec, httptest.NewRequest(http.MethodGet, "/api/calendar/google/callback?code=abc&state=x", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
