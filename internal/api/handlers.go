package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"assistantbot/internal/auth"
	"assistantbot/internal/calendar"
	"assistantbot/internal/linking"
	"assistantbot/internal/meetings"
	"assistantbot/internal/notes"
	"assistantbot/internal/users"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const (
	initDataMaxAge = 24 * time.Hour
	tokenLifetime  = 24 * time.Hour
	maxRangeDays   = 62
)

// Notifier tells a user in the chat that their Google account is linked.
type Notifier interface {
	NotifyGoogleConnected(userID int64)
}

type Deps struct {
	Calendar *calendar.Service
	Users    *users.Service
	Notes    notes.Store
	Meetings meetings.Store
	Notifier Notifier

	JWTSigningKey string
	BotToken      string
}

type Handler struct {
	calendarService *calendar.Service
	userService     *users.Service
	notes           notes.Store
	meetings        meetings.Store
	notifier        Notifier
	jwtSigningKey   string
	botToken        string
	now             func() time.Time
}

func NewHandler(d Deps) *Handler {
	return &Handler{
		calendarService: d.Calendar,
		userService:     d.Users,
		notes:           d.Notes,
		meetings:        d.Meetings,
		notifier:        d.Notifier,
		jwtSigningKey:   d.JWTSigningKey,
		botToken:        d.BotToken,
		now:             time.Now,
	}
}

type MiniAppAuthRequest struct {
	InitData string `json:"init_data"`
}

type MiniAppAuthResponse struct {
	Token    string `json:"token"`
	UserID   int64  `json:"user_id"`
	Timezone string `json:"timezone"`
}

type NoteResponse struct {
	Number    int       `json:"number"`
	ID        uuid.UUID `json:"id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	UpdatedAt time.Time `json:"updated_at"`
}

type ScheduleResponse struct {
	From     time.Time          `json:"from"`
	To       time.Time          `json:"to"`
	Meetings []meetings.Meeting `json:"meetings"`
	Tasks    []meetings.Task    `json:"tasks"`
}

// MiniAppAuthHandler exchanges signed Telegram WebApp init data for a JWT.
func (h *Handler) MiniAppAuthHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Метод не разрешен", http.StatusMethodNotAllowed)
		return
	}

	var req MiniAppAuthRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.InitData == "" {
		http.Error(w, "Некорректное тело запроса", http.StatusBadRequest)
		return
	}

	user, err := auth.ValidateInitData(req.InitData, h.botToken, initDataMaxAge, h.now())
	if err != nil {
		logrus.Warnf("Отклонены данные mini app: %v", err)
		http.Error(w, "Некорректные данные авторизации", http.StatusUnauthorized)
		return
	}

	ctx := r.Context()
	if err := h.userService.Touch(ctx, user.ID, user.Username, user.FirstName); err != nil {
		logrus.Errorf("Ошибка при сохранении пользователя %d: %v", user.ID, err)
	}

	token, err := auth.GenerateJWTToken(user.ID, h.jwtSigningKey, tokenLifetime)
	if err != nil {
		logrus.Errorf("Ошибка при создании токена для пользователя %d: %v", user.ID, err)
		http.Error(w, "Ошибка при авторизации", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, MiniAppAuthResponse{
		Token:    token,
		UserID:   user.ID,
		Timezone: h.userService.Location(ctx, user.ID).String(),
	})
}

func (h *Handler) NotesHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Метод не разрешен", http.StatusMethodNotAllowed)
		return
	}
	userID, ok := auth.GetUserIDFromContext(r.Context())
	if !ok {
		http.Error(w, "Ошибка авторизации", http.StatusUnauthorized)
		return
	}

	list, err := h.notes.ListRecent(r.Context(), userID, notes.RecentLimit)
	if err != nil {
		logrus.Errorf("Ошибка API при получении заметок пользователя %d: %v", userID, err)
		http.Error(w, "Ошибка при получении заметок", http.StatusInternalServerError)
		return
	}

	resp := make([]NoteResponse, 0, len(list))
	for i, n := range list {
		resp = append(resp, NoteResponse{
			Number:    i + 1,
			ID:        n.ID,
			Title:     n.Title,
			Content:   n.Content,
			UpdatedAt: n.UpdatedAt,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

// MeetingsHandler returns meetings and tasks between the "from" and "to"
// dates (YYYY-MM-DD, both inclusive) in the user's zone. Without dates it
// returns the next seven days.
func (h *Handler) MeetingsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Метод не разрешен", http.StatusMethodNotAllowed)
		return
	}
	ctx := r.Context()
	userID, ok := auth.GetUserIDFromContext(ctx)
	if !ok {
		http.Error(w, "Ошибка авторизации", http.StatusUnauthorized)
		return
	}

	loc := h.userService.Location(ctx, userID)
	now := h.now().In(loc)
	from := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc)
	to := from.AddDate(0, 0, 7)

	q := r.URL.Query()
	if s := q.Get("from"); s != "" {
		d, err := time.ParseInLocation("2006-01-02", s, loc)
		if err != nil {
			http.Error(w, "Некорректный формат даты from (ожидается YYYY-MM-DD)", http.StatusBadRequest)
			return
		}
		from, to = d, d.AddDate(0, 0, 7)
	}
	if s := q.Get("to"); s != "" {
		d, err := time.ParseInLocation("2006-01-02", s, loc)
		if err != nil {
			http.Error(w, "Некорректный формат даты to (ожидается YYYY-MM-DD)", http.StatusBadRequest)
			return
		}
		to = d.AddDate(0, 0, 1)
	}
	if !to.After(from) || to.Sub(from) > maxRangeDays*24*time.Hour {
		http.Error(w, "Некорректный диапазон дат", http.StatusBadRequest)
		return
	}

	mts, err := h.meetings.MeetingsBetween(ctx, userID, from, to)
	if err != nil {
		logrus.Errorf("Ошибка API при получении встреч пользователя %d: %v", userID, err)
		http.Error(w, "Ошибка при получении встреч", http.StatusInternalServerError)
		return
	}
	tasks, err := h.meetings.TasksBetween(ctx, userID, from, to)
	if err != nil {
		logrus.Errorf("Ошибка API при получении задач пользователя %d: %v", userID, err)
		http.Error(w, "Ошибка при получении задач", http.StatusInternalServerError)
		return
	}
	if mts == nil {
		mts = []meetings.Meeting{}
	}
	if tasks == nil {
		tasks = []meetings.Task{}
	}

	writeJSON(w, http.StatusOK, ScheduleResponse{From: from, To: to, Meetings: mts, Tasks: tasks})
}

func (h *Handler) HandleGoogleCallbackHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Метод не разрешен", http.StatusMethodNotAllowed)
		return
	}

	code := r.URL.Query().Get("code")
	if code == "" {
		logrus.Errorf("Google OAuth ошибка: %s", r.URL.Query().Get("error"))
		http.Error(w, "Авторизация в Google была отменена или произошла ошибка", http.StatusBadRequest)
		return
	}

	userID, err := h.calendarService.HandleCallback(r.Context(), r.URL.Query().Get("state"), code)
	switch {
	case errors.Is(err, linking.ErrStateNotFound), errors.Is(err, linking.ErrTokenAlreadyUsed):
		http.Error(w, "Ссылка устарела. Запросите новую в боте.", http.StatusBadRequest)
		return
	case errors.Is(err, calendar.ErrNotConfigured):
		http.Error(w, "Google Calendar не настроен", http.StatusNotFound)
		return
	case err != nil:
		logrus.Errorf("Ошибка при обработке Google callback: %v", err)
		http.Error(w, "Не удалось завершить авторизацию Google", http.StatusInternalServerError)
		return
	}

	if h.notifier != nil {
		h.notifier.NotifyGoogleConnected(userID)
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><title>Google Calendar подключен</title></head>
<body style="font-family: Arial, sans-serif; text-align: center; margin-top: 50px;">
	<h2>Google Calendar успешно подключен!</h2>
	<p>Можно закрыть это окно и вернуться в Telegram.</p>
</body>
</html>`))
}

func HealthHandler(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logrus.Errorf("Ошибка API при сериализации ответа в JSON: %v", err)
	}
}
