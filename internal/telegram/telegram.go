package telegram

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"assistantbot/internal/dispatcher"
	"assistantbot/internal/messagestore/models"
	"assistantbot/internal/textnorm"
	"assistantbot/internal/users"
	"assistantbot/internal/workers"
	"assistantbot/pkg/config"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"
)

const (
	welcomeText = "👋 Привет! Я веду ваши встречи, задачи и заметки.\n" +
		"Напишите, например: «созвон завтра в 15:00», «нужно сдать отчёт до пятницы» или «заметка: купить молоко».\n" +
		"Часовой пояс можно сменить командой /timezone Europe/Moscow."
	voiceUnavailable = "🎙 Голосовые сообщения пока не поддерживаются. Напишите, пожалуйста, текстом."
	voiceFailed      = "🎙 Не удалось распознать голосовое сообщение. Попробуйте ещё раз или напишите текстом."
	googleConnected  = "✅ Google Calendar подключен. Новые встречи будут появляться в вашем календаре."
)

type botAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetFileDirectURL(fileID string) (string, error)
	HandleUpdate(r *http.Request) (*tgbotapi.Update, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// Transcriber turns a voice message into text.
type Transcriber interface {
	TranscribeAudio(ctx context.Context, audioData []byte) (string, error)
}

type Deps struct {
	Dispatcher *dispatcher.Dispatcher
	Users      *users.Service
	Pool       *workers.Pool
	// Transcriber is optional; without it voice messages get a hint.
	Transcriber Transcriber
}

type Handler struct {
	bot         botAPI
	self        tgbotapi.User
	dispatcher  *dispatcher.Dispatcher
	users       *users.Service
	pool        *workers.Pool
	transcriber Transcriber
	httpClient  *http.Client
	cfg         *config.Config
}

func NewHandler(cfg *config.Config, deps Deps) (*Handler, error) {
	bot, err := tgbotapi.NewBotAPI(cfg.TelegramToken)
	if err != nil {
		return nil, fmt.Errorf("ошибка при инициализации Telegram бота: %w", err)
	}

	logrus.Infof("Telegram бот запущен: %s", bot.Self.UserName)

	h := newHandler(bot, cfg, deps)
	h.self = bot.Self
	return h, nil
}

func newHandler(bot botAPI, cfg *config.Config, deps Deps) *Handler {
	return &Handler{
		bot:         bot,
		dispatcher:  deps.Dispatcher,
		users:       deps.Users,
		pool:        deps.Pool,
		transcriber: deps.Transcriber,
		httpClient:  http.DefaultClient,
		cfg:         cfg,
	}
}

func (h *Handler) SetupWebhook() error {
	webhookURL := h.cfg.WebhookURL
	if webhookURL == "" {
		webhookURL = fmt.Sprintf("https://%s:%s/webhook", h.cfg.ServerHost, h.cfg.ServerPort)
	}

	webhookConfig, err := tgbotapi.NewWebhook(webhookURL)
	if err != nil {
		return fmt.Errorf("ошибка при создании конфига вебхука: %w", err)
	}

	if _, err := h.bot.Request(webhookConfig); err != nil {
		return fmt.Errorf("ошибка при установке вебхука: %w", err)
	}

	logrus.Infof("Вебхук установлен: %s", webhookURL)
	return nil
}

func (h *Handler) HandleWebhook(w http.ResponseWriter, r *http.Request) {
	update, err := h.bot.HandleUpdate(r)
	if err != nil {
		logrus.Errorf("Ошибка при обработке обновления: %v", err)
		http.Error(w, "bad update", http.StatusBadRequest)
		return
	}

	h.Dispatch(*update)
	w.WriteHeader(http.StatusOK)
}

// Poll receives updates with long polling until ctx is done. It is used when
// no webhook URL is configured.
func (h *Handler) Poll(ctx context.Context) {
	if _, err := h.bot.Request(tgbotapi.DeleteWebhookConfig{}); err != nil {
		logrus.Warnf("Не удалось удалить вебхук: %v", err)
	}

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 30
	updates := h.bot.GetUpdatesChan(u)

	logrus.Info("Получение обновлений через long polling")
	for {
		select {
		case <-ctx.Done():
			h.bot.StopReceivingUpdates()
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			h.Dispatch(update)
		}
	}
}

// Dispatch queues the update on the sender's worker queue, so messages of one
// user are handled in arrival order.
func (h *Handler) Dispatch(update tgbotapi.Update) {
	msg := update.Message
	if msg == nil || msg.From == nil {
		return
	}
	h.pool.Submit(msg.From.ID, func(ctx context.Context) {
		h.handleUpdate(ctx, update)
	})
}

func (h *Handler) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	msg := update.Message
	if msg == nil || msg.From == nil {
		return
	}
	log := logrus.WithField("user_id", msg.From.ID)

	if err := h.users.Touch(ctx, msg.From.ID, msg.From.UserName, msg.From.FirstName); err != nil {
		log.Errorf("Ошибка при сохранении пользователя: %v", err)
	}

	switch {
	case msg.Voice != nil || msg.Audio != nil:
		h.handleVoice(ctx, msg)
	case msg.IsCommand() && msg.Command() == "start":
		h.send(msg.Chat.ID, welcomeText, mainKeyboard())
	case msg.IsCommand() && msg.Command() == "timezone":
		h.handleTimezone(ctx, msg)
	case strings.TrimSpace(msg.Text) != "":
		h.handleText(ctx, msg, models.SourceText, msg.Text)
	}
}

func (h *Handler) handleText(ctx context.Context, msg *tgbotapi.Message, source, text string) dispatcher.Result {
	zone := h.users.Location(ctx, msg.From.ID)
	res := h.dispatcher.HandleInbound(ctx, msg.From.ID, source, text, zone)
	h.reply(msg.Chat.ID, res)
	return res
}

func (h *Handler) handleVoice(ctx context.Context, msg *tgbotapi.Message) {
	if h.transcriber == nil {
		h.send(msg.Chat.ID, voiceUnavailable, nil)
		return
	}

	fileID := ""
	if msg.Voice != nil {
		fileID = msg.Voice.FileID
	} else {
		fileID = msg.Audio.FileID
	}

	log := logrus.WithField("user_id", msg.From.ID)
	audio, err := h.download(ctx, fileID)
	if err != nil {
		log.Errorf("Ошибка при загрузке голосового сообщения: %v", err)
		h.send(msg.Chat.ID, voiceFailed, nil)
		return
	}

	text, err := h.transcriber.TranscribeAudio(ctx, audio)
	if err == nil {
		text = textnorm.SanitizeVoice(text)
	}
	if err != nil || text == "" {
		if err != nil {
			log.Errorf("Ошибка при распознавании голоса: %v", err)
		}
		h.send(msg.Chat.ID, voiceFailed, nil)
		return
	}

	log.Infof("Распознан голос: %q", text)
	h.handleText(ctx, msg, models.SourceVoice, text)
}

func (h *Handler) download(ctx context.Context, fileID string) ([]byte, error) {
	fileURL, err := h.bot.GetFileDirectURL(fileID)
	if err != nil {
		return nil, fmt.Errorf("ошибка при получении URL файла: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fileURL, nil)
	if err != nil {
		return nil, fmt.Errorf("ошибка при создании запроса: %w", err)
	}
	resp, err := h.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ошибка при загрузке файла: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("ошибка при загрузке файла: статус %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

func (h *Handler) handleTimezone(ctx context.Context, msg *tgbotapi.Message) {
	zone := strings.TrimSpace(msg.CommandArguments())
	if zone == "" {
		current := h.users.Location(ctx, msg.From.ID)
		h.send(msg.Chat.ID, fmt.Sprintf("🕒 Ваш часовой пояс: %s\nЧтобы сменить, отправьте /timezone Europe/Moscow", current), nil)
		return
	}

	err := h.users.SetTimezone(ctx, msg.From.ID, zone)
	switch {
	case errors.Is(err, users.ErrUnknownTimezone):
		h.send(msg.Chat.ID, fmt.Sprintf("Не знаю часовой пояс «%s». Пример: Europe/Moscow, Asia/Yekaterinburg.", zone), nil)
	case err != nil:
		logrus.WithField("user_id", msg.From.ID).Errorf("Ошибка при смене часового пояса: %v", err)
		h.send(msg.Chat.ID, "⚠️ Не удалось сменить часовой пояс. Попробуйте позже.", nil)
	default:
		h.send(msg.Chat.ID, fmt.Sprintf("🕒 Часовой пояс обновлён: %s", zone), nil)
	}
}

func (h *Handler) reply(chatID int64, res dispatcher.Result) {
	keyboard := mainKeyboard()
	if res.InFlow {
		keyboard = cancelKeyboard()
	}
	h.send(chatID, res.Reply, keyboard)
}

// send delivers text in chunks Telegram accepts. The keyboard goes with the
// last chunk.
func (h *Handler) send(chatID int64, text string, keyboard any) {
	chunks := splitMessage(text, maxMessageRunes)
	for i, chunk := range chunks {
		msg := tgbotapi.NewMessage(chatID, chunk)
		if i == len(chunks)-1 && keyboard != nil {
			msg.ReplyMarkup = keyboard
		}
		if _, err := h.bot.Send(msg); err != nil {
			logrus.WithField("chat_id", chatID).Errorf("Ошибка при отправке сообщения: %v", err)
			return
		}
	}
}

func (h *Handler) SendMessage(chatID int64, text string) error {
	for _, chunk := range splitMessage(text, maxMessageRunes) {
		if _, err := h.bot.Send(tgbotapi.NewMessage(chatID, chunk)); err != nil {
			return fmt.Errorf("ошибка при отправке сообщения: %w", err)
		}
	}
	return nil
}

// SendReminder delivers a meeting reminder to the user's private chat.
func (h *Handler) SendReminder(_ context.Context, userID int64, text string) error {
	return h.SendMessage(userID, text)
}

// NotifyGoogleConnected tells the user the OAuth flow has finished.
func (h *Handler) NotifyGoogleConnected(userID int64) {
	if err := h.SendMessage(userID, googleConnected); err != nil {
		logrus.WithField("user_id", userID).Warnf("Не удалось отправить уведомление о подключении Google: %v", err)
	}
}

func (h *Handler) GetBotInfo() *tgbotapi.User {
	if h.self.ID == 0 {
		return nil
	}
	return &h.self
}
