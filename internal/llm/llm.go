package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"assistantbot/internal/extraction"
	"assistantbot/internal/temporal"
	"assistantbot/internal/title"
	"assistantbot/pkg/config"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/kaptinlin/jsonrepair"
	"github.com/sashabaranov/go-openai"
	"github.com/sirupsen/logrus"
)

const extractionPrompt = `Извлеки структуру календарного запроса.
Верни строго JSON, без markdown и комментариев.
Сегодня: %s
Схема:
{
  "intent": "create_meeting|create_task|other",
  "title": "string|null",
  "date": "YYYY-MM-DD|null",
  "time": "HH:mm|null",
  "duration_minutes": integer|null
}
Правила:
- "двенадцать часов дня" => "12:00"
- title это только название события без даты, времени, длительности и без командных слов ("создай событие", "добавь встречу").
- Если нет данных, ставь null.`

var ErrEmptyResponse = errors.New("нет ответа от модели")

type chatClient interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
	CreateTranscription(ctx context.Context, req openai.AudioRequest) (openai.AudioResponse, error)
}

type Service struct {
	client          chatClient
	model           string
	transcribeModel string
	cache           *lru.Cache[string, extraction.Result]
}

func NewService(cfg *config.Config) *Service {
	clientCfg := openai.DefaultConfig(cfg.OpenAIKey)
	if cfg.AIBaseURL != "" {
		clientCfg.BaseURL = cfg.AIBaseURL
	}
	return newService(openai.NewClientWithConfig(clientCfg), cfg.AIModel, cfg.TranscribeModel, cfg.ExtractionCacheSize)
}

func newService(client chatClient, model, transcribeModel string, cacheSize int) *Service {
	if model == "" {
		model = openai.GPT4Dot1Mini
	}
	if transcribeModel == "" {
		transcribeModel = openai.Whisper1
	}
	s := &Service{client: client, model: model, transcribeModel: transcribeModel}
	if cacheSize > 0 {
		cache, err := lru.New[string, extraction.Result](cacheSize)
		if err != nil {
			logrus.Warnf("Кэш извлечения отключен: %v", err)
		} else {
			s.cache = cache
		}
	}
	return s
}

var _ extraction.Extractor = (*Service)(nil)

// Extract asks the model for a calendar structure. Failures are returned as
// a failed result, never as a panic or an error.
func (s *Service) Extract(ctx context.Context, text string, now time.Time) extraction.Result {
	text = strings.TrimSpace(text)
	if text == "" {
		return extraction.Absent()
	}
	today := temporal.DateOf(now).String()
	key := today + "\x00" + text
	if s.cache != nil {
		if res, ok := s.cache.Get(key); ok {
			return res
		}
	}

	resp, err := s.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: s.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: fmt.Sprintf(extractionPrompt, today)},
			{Role: openai.ChatMessageRoleUser, Content: text},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Temperature: 0,
	})
	if err != nil {
		return extraction.Failed(fmt.Errorf("ошибка при запросе к модели: %w", err))
	}
	if len(resp.Choices) == 0 {
		return extraction.Failed(ErrEmptyResponse)
	}

	res := ParseResponse(resp.Choices[0].Message.Content)
	if s.cache != nil && res.Status != extraction.StatusFailed {
		s.cache.Add(key, res)
	}
	return res
}

type rawExtraction struct {
	Intent   json.RawMessage `json:"intent"`
	Title    json.RawMessage `json:"title"`
	Date     json.RawMessage `json:"date"`
	Time     json.RawMessage `json:"time"`
	Duration json.RawMessage `json:"duration_minutes"`
}

// ParseResponse decodes the model's JSON, repairing it first when it is
// malformed. Unknown or "null" strings count as missing.
func ParseResponse(content string) extraction.Result {
	content = stripFences(content)
	if content == "" {
		return extraction.Failed(ErrEmptyResponse)
	}

	var raw rawExtraction
	if err := json.Unmarshal([]byte(content), &raw); err != nil {
		repaired, repairErr := jsonrepair.JSONRepair(content)
		if repairErr != nil {
			return extraction.Failed(fmt.Errorf("ошибка при разборе ответа модели: %w", err))
		}
		if err := json.Unmarshal([]byte(repaired), &raw); err != nil {
			return extraction.Failed(fmt.Errorf("ошибка при разборе исправленного ответа модели: %w", err))
		}
	}

	var f temporal.Fragment
	if v, ok := stringValue(raw.Title); ok {
		if t := title.StripCommandPhrases(v); t != "" {
			f.Title = &t
		}
	}
	if v, ok := stringValue(raw.Date); ok {
		if d, ok := temporal.ParseISODate(v); ok {
			f.Date = &d
		}
	}
	if v, ok := stringValue(raw.Time); ok {
		if t, ok := temporal.ParseClock(v); ok {
			f.Time = &t
		}
	}
	if n, ok := intValue(raw.Duration); ok && n > 0 {
		f.DurationMinutes = &n
	}

	intent := extraction.IntentOther
	if v, ok := stringValue(raw.Intent); ok {
		switch extraction.Intent(strings.ToLower(v)) {
		case extraction.IntentCreateMeeting:
			intent = extraction.IntentCreateMeeting
		case extraction.IntentCreateTask:
			intent = extraction.IntentCreateTask
		}
	}

	if f.Empty() && intent == extraction.IntentOther {
		return extraction.Absent()
	}
	return extraction.Found(intent, f)
}

func (s *Service) TranscribeAudio(ctx context.Context, audioData []byte) (string, error) {
	tempFile, err := os.CreateTemp("", "audio-*.ogg")
	if err != nil {
		return "", fmt.Errorf("ошибка создания временного файла: %w", err)
	}
	defer os.Remove(tempFile.Name())
	defer tempFile.Close()

	if _, err = tempFile.Write(audioData); err != nil {
		return "", fmt.Errorf("ошибка записи аудиоданных: %w", err)
	}

	resp, err := s.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    s.transcribeModel,
		FilePath: tempFile.Name(),
		Language: "ru",
	})
	if err != nil {
		return "", fmt.Errorf("ошибка при транскрибации аудио: %w", err)
	}

	return strings.TrimSpace(resp.Text), nil
}

func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	}
	return strings.TrimSpace(s)
}

func stringValue(raw json.RawMessage) (string, bool) {
	if len(raw) == 0 {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", false
	}
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, "null") {
		return "", false
	}
	return s, true
}

func intValue(raw json.RawMessage) (int, bool) {
	if len(raw) == 0 {
		return 0, false
	}
	var n float64
	if err := json.Unmarshal(raw, &n); err == nil {
		return int(n), true
	}
	if s, ok := stringValue(raw); ok {
		if v, err := strconv.Atoi(s); err == nil {
			return v, true
		}
	}
	return 0, false
}
