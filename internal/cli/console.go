package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"assistantbot/internal/dispatcher"
	"assistantbot/internal/intent"
	"assistantbot/internal/meetings"
	"assistantbot/internal/messagestore"
	"assistantbot/internal/notes"
	"assistantbot/internal/sessions"
	"assistantbot/internal/wizard"
	"assistantbot/pkg/config"

	"github.com/spf13/cobra"
)

var (
	consoleUser int64
	consoleZone string
)

var consoleCmd = &cobra.Command{
	Use:   "console",
	Short: "Диалог с ассистентом в терминале, без Telegram и базы данных",
	Long: `Читает сообщения из stdin построчно и печатает ответы.
Все данные хранятся в памяти процесса.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.LoadConfig()
		setupLogging(cfg, "text")

		zone := cfg.Location()
		if consoleZone != "" {
			loc, err := time.LoadLocation(consoleZone)
			if err != nil {
				return fmt.Errorf("неизвестный часовой пояс %q: %w", consoleZone, err)
			}
			zone = loc
		}

		phrases, err := loadPhrases(cfg.PhrasesFile)
		if err != nil {
			return err
		}
		extractor := extractorOf(newLLM(cfg))

		noteStore := notes.NewMemory()
		d := dispatcher.New(dispatcher.Deps{
			Engine:   intent.NewEngine(extractor, cfg.AITimeout, phrases),
			Wizard:   wizard.New(sessions.NewMemory[wizard.EventSession](), sessions.NewMemory[wizard.NoteSession](), noteStore, extractor, cfg.AITimeout),
			Notes:    noteStore,
			Meetings: meetings.NewMemory(),
			Journal:  messagestore.NewMemory(),
		})
		return runConsole(cmd.Context(), d, consoleUser, zone, os.Stdin, os.Stdout)
	},
}

func init() {
	consoleCmd.Flags().Int64Var(&consoleUser, "user", 1, "id пользователя")
	consoleCmd.Flags().StringVar(&consoleZone, "tz", "", "часовой пояс (по умолчанию DEFAULT_TIMEZONE)")
}

func runConsole(ctx context.Context, d *dispatcher.Dispatcher, userID int64, zone *time.Location, in io.Reader, out io.Writer) error {
	scanner := bufio.NewScanner(in)
	fmt.Fprint(out, "> ")
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			fmt.Fprint(out, "> ")
			continue
		}
		if line == "/quit" || line == "/exit" {
			return nil
		}

		res := d.HandleInboundText(ctx, userID, line, zone)
		fmt.Fprintln(out, res.Reply)
		if res.Committed != nil {
			fmt.Fprintf(out, "  [%s]\n", res.Committed.Action)
		}
		fmt.Fprint(out, "> ")
	}
	return scanner.Err()
}
