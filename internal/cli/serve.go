package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"assistantbot/internal/api"
	"assistantbot/internal/auth"
	"assistantbot/internal/calendar"
	"assistantbot/internal/dispatcher"
	"assistantbot/internal/intent"
	"assistantbot/internal/linking"
	"assistantbot/internal/meetings"
	"assistantbot/internal/messagestore"
	"assistantbot/internal/metrics"
	"assistantbot/internal/middleware"
	"assistantbot/internal/notes"
	"assistantbot/internal/sessions"
	"assistantbot/internal/telegram"
	"assistantbot/internal/users"
	"assistantbot/internal/wizard"
	"assistantbot/internal/workers"
	"assistantbot/pkg/config"
	"assistantbot/pkg/db"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Запустить Telegram-бота и HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.LoadConfig()
		setupLogging(cfg, "json")

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		return serve(ctx, cfg)
	},
}

func serve(ctx context.Context, cfg *config.Config) error {
	if cfg.TelegramToken == "" {
		return errors.New("не задан TELEGRAM_TOKEN")
	}
	if err := metrics.Register(nil); err != nil {
		return err
	}

	database, err := db.NewPostgresDB(cfg)
	if err != nil {
		return fmt.Errorf("ошибка при подключении к базе данных: %w", err)
	}
	defer database.Close()

	userRepo := users.NewRepository(database)
	noteRepo := notes.NewRepository(database)
	meetingRepo := meetings.NewRepository(database)
	eventSessions := sessions.NewEventRepository(database)
	noteSessions := sessions.NewNoteRepository(database)
	journal := messagestore.NewRepository(database)
	tokens := calendar.NewTokenRepository(database)

	if err := db.EnsureSchemas(ctx, userRepo, noteRepo, meetingRepo, eventSessions, noteSessions, journal, tokens); err != nil {
		return fmt.Errorf("ошибка при создании схемы: %w", err)
	}

	phrases, err := loadPhrases(cfg.PhrasesFile)
	if err != nil {
		return err
	}

	userService := users.NewService(userRepo, cfg.Location(), cfg.UserCacheSize)
	states := linking.NewService()
	states.StartCleanup(ctx.Done())
	calendarService := calendar.NewService(cfg, tokens, states)

	llmService := newLLM(cfg)
	extractor := extractorOf(llmService)

	disp := dispatcher.New(dispatcher.Deps{
		Engine:   intent.NewEngine(extractor, cfg.AITimeout, phrases),
		Wizard:   wizard.New(eventSessions, noteSessions, noteRepo, extractor, cfg.AITimeout),
		Notes:    noteRepo,
		Meetings: meetingRepo,
		Calendar: calendarService,
		Journal:  journal,
	})

	pool := workers.New(ctx, cfg.WorkerCount)
	deps := telegram.Deps{Dispatcher: disp, Users: userService, Pool: pool}
	if llmService != nil {
		deps.Transcriber = llmService
	}
	telegramHandler, err := telegram.NewHandler(cfg, deps)
	if err != nil {
		return err
	}

	meetings.NewReminder(meetingRepo, userService, telegramHandler.SendReminder, cfg.ReminderLead).Start(ctx)

	apiHandler := api.NewHandler(api.Deps{
		Calendar:      calendarService,
		Users:         userService,
		Notes:         noteRepo,
		Meetings:      meetingRepo,
		Notifier:      telegramHandler,
		JWTSigningKey: cfg.JWTSigningKey,
		BotToken:      cfg.TelegramToken,
	})

	mux := http.NewServeMux()
	mux.HandleFunc("/webhook", telegramHandler.HandleWebhook)
	mux.HandleFunc("/healthz", api.HealthHandler)
	mux.Handle("/metrics", metrics.Handler())

	mux.Handle("/api/calendar/google/callback", middleware.CORSMiddleware(http.HandlerFunc(apiHandler.HandleGoogleCallbackHandler)))
	mux.Handle("/api/miniapp/auth", middleware.CORSMiddleware(http.HandlerFunc(apiHandler.MiniAppAuthHandler)))

	notesHandler := http.HandlerFunc(apiHandler.NotesHandler)
	mux.Handle("/api/miniapp/notes", middleware.CORSMiddleware(auth.JWTMiddleware(notesHandler, cfg.JWTSigningKey)))

	meetingsHandler := http.HandlerFunc(apiHandler.MeetingsHandler)
	mux.Handle("/api/miniapp/meetings", middleware.CORSMiddleware(auth.JWTMiddleware(meetingsHandler, cfg.JWTSigningKey)))

	server := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           middleware.LoggingMiddleware(mux),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logrus.Infof("Сервер запущен на порту %s", cfg.ServerPort)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	if cfg.WebhookURL != "" {
		if err := telegramHandler.SetupWebhook(); err != nil {
			return err
		}
	} else {
		go telegramHandler.Poll(ctx)
	}

	select {
	case <-ctx.Done():
	case err := <-serverErr:
		return fmt.Errorf("ошибка при запуске сервера: %w", err)
	}

	logrus.Info("Завершение работы сервера...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("ошибка при остановке сервера: %w", err)
	}
	pool.Wait()

	logrus.Info("Сервер остановлен")
	return nil
}
