package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/spf13/cobra"

	"chatterapi/config"
	"chatterapi/internal/chat"
	"chatterapi/internal/instruct"
	"chatterapi/internal/notify"
	"chatterapi/internal/stream"
)

func init() {
	rootCmd.AddCommand(sendCmd)
}

// streamPrinter writes a growing reply to w. The last holdback bytes stay
// unwritten until Flush, since a stop string completed by a later chunk
// removes text from the end of the buffer.
type streamPrinter struct {
	mu       sync.Mutex
	w        io.Writer
	holdback int
	printed  int
}

func newStreamPrinter(w io.Writer, stops []string) *streamPrinter {
	holdback := 0
	for _, s := range stops {
		if len(s) > holdback {
			holdback = len(s)
		}
	}
	return &streamPrinter{w: w, holdback: holdback}
}

// Update receives the whole buffer
func (p *streamPrinter) Update(text string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	safe := len(text) - p.holdback
	for safe > p.printed && safe < len(text) && !utf8.RuneStart(text[safe]) {
		safe--
	}
	if safe > p.printed {
		io.WriteString(p.w, text[p.printed:safe])
		p.printed = safe
	}
}

// Flush writes whatever is left of the final text
func (p *streamPrinter) Flush(text string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.printed < len(text) {
		io.WriteString(p.w, text[p.printed:])
		p.printed = len(text)
	}
}

var sendCmd = &cobra.Command{
	Use:   "send <message>",
	Short: "Send a message with the active connection and stream the reply",
	Long: `Send a message with the active connection and stream the reply to stdout.
Press Ctrl-C to stop the generation.

Example:
  chatterapi send "Write a haiku about the sea"`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := loadEnvironment(os.Stderr)
		if err != nil {
			return err
		}

		inst, err := instruct.Load(env.settings.Path(config.InstructFile))
		if err != nil {
			return err
		}
		printer := newStreamPrinter(os.Stdout, instruct.ConstructReplaceStrings(inst, env.identity()))

		buffer := chat.NewBuffer()
		buffer.OnUpdate(printer.Update)

		notifier := notify.New(env.logger, notify.DefaultBuffer)
		service := env.newService(notifier)

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()

		history := []instruct.Turn{{Role: instruct.RoleUser, Content: strings.Join(args, " ")}}
		g, err := service.SendRequest(ctx, buffer, history)
		if err != nil {
			return err
		}

		err = g.Wait()
		printer.Flush(buffer.Buffer())
		fmt.Println()

		switch g.Reason() {
		case stream.ReasonCanceled, stream.ReasonAborted:
			fmt.Fprintln(os.Stderr, warnStyle.Render("⏹  Generation stopped"))
			return nil
		}
		var te *stream.TransportError
		if errors.As(err, &te) {
			return errors.New(te.UserMessage())
		}
		return err
	},
}
