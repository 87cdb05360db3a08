package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"chatterapi/config/models"
	"chatterapi/internal/chat"
	"chatterapi/internal/generation"
	"chatterapi/internal/instruct"
	"chatterapi/internal/modellist"
	"chatterapi/internal/stream"
	"chatterapi/internal/templates"
)

var (
	outputJSON  bool
	pingTimeout time.Duration
	testRealAPI bool
	pingPrompt  string
)

var pingCmd = &cobra.Command{
	Use:   "ping [connection]",
	Short: "Test connection connectivity",
	Long: `Test a connection (the active one by default):

1. Fetch the model list, when the template supports it:
   chatterapi ping
   chatterapi ping work

2. Also stream a short real generation and time it:
   chatterapi ping -T work
   chatterapi ping -T --json`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := loadEnvironment(os.Stderr)
		if err != nil {
			return err
		}
		arg := ""
		if len(args) == 1 {
			arg = args[0]
		}
		c, _, err := env.resolveConnection(arg)
		if err != nil {
			return err
		}
		t, ok := env.registry.Get(c.ConfigName)
		if !ok {
			return fmt.Errorf("connection '%s': %w: %s", c.FriendlyName, templates.ErrTemplateNotFound, c.ConfigName)
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), pingTimeout)
		defer cancel()

		if !outputJSON {
			fmt.Printf("Testing connection: %s\n", c.FriendlyName)
		}
		result := runPing(ctx, env, c, t, testRealAPI)
		if err := reportPing(os.Stdout, result, outputJSON); err != nil {
			return err
		}
		if !result.Success {
			return errors.New("connection test failed")
		}
		return nil
	},
}

// pingResult is the outcome of a connection test
type pingResult struct {
	Connection  string `json:"connection"`
	Template    string `json:"template"`
	ModelStatus string `json:"modelStatus"`
	ModelCount  int    `json:"modelCount,omitempty"`
	ModelsMs    int64  `json:"modelsMs"`

	Generated    bool   `json:"generated"`
	Reason       string `json:"reason,omitempty"`
	FirstTokenMs int64  `json:"firstTokenMs,omitempty"`
	TotalMs      int64  `json:"totalMs,omitempty"`
	Reply        string `json:"reply,omitempty"`
	Category     string `json:"category,omitempty"`
	Error        string `json:"error,omitempty"`

	Success bool `json:"success"`
}

// fixedConnection serves one connection as the active one
type fixedConnection struct {
	c models.Connection
}

func (f fixedConnection) GetActive() (models.Connection, int, error) {
	return f.c, 0, nil
}

// fixedTemplate serves one template
type fixedTemplate struct {
	t templates.Template
}

func (f fixedTemplate) Get(name string) (templates.Template, bool) {
	return f.t, name == f.t.Name
}

func runPing(ctx context.Context, env *environment, c models.Connection, t templates.Template, generate bool) pingResult {
	result := pingResult{Connection: c.FriendlyName, Template: t.Name}

	start := time.Now()
	list := modellist.NewFetcher(nil, env.logger).Fetch(ctx, t, c)
	result.ModelsMs = time.Since(start).Milliseconds()
	result.ModelStatus = list.Status.String()
	result.ModelCount = len(list.Models)
	result.Success = list.OK() || list.Status == modellist.StatusUnsupported
	if list.Err != nil {
		result.Error = list.Err.Error()
	}
	if !generate {
		return result
	}

	result.Generated = true
	result.Error = ""
	pingGeneration(ctx, env, c, t, &result)
	return result
}

// pingGeneration streams one short reply from c into result
func pingGeneration(ctx context.Context, env *environment, c models.Connection, t templates.Template, result *pingResult) {
	var once sync.Once
	var firstToken time.Duration
	start := time.Now()

	buffer := chat.NewBuffer()
	buffer.OnUpdate(func(string) {
		once.Do(func() { firstToken = time.Since(start) })
	})

	service := generation.NewService(generation.Options{
		Connections: fixedConnection{c},
		Templates:   fixedTemplate{t},
		Samplers:    env.samplers,
		Identity:    env.identity,
		Engine:      stream.NewEngine(nil, env.logger),
		Logger:      zerolog.Nop(),
	})

	history := []instruct.Turn{{Role: instruct.RoleUser, Content: pingPrompt}}
	g, err := service.SendRequest(ctx, buffer, history)
	if err != nil {
		result.Success = false
		result.Error = err.Error()
		return
	}
	err = g.Wait()

	result.Reason = string(g.Reason())
	result.TotalMs = time.Since(start).Milliseconds()
	result.FirstTokenMs = firstToken.Milliseconds()
	result.Reply = buffer.Buffer()

	var te *stream.TransportError
	switch {
	case errors.As(err, &te):
		result.Success = false
		result.Category = te.Category
		result.Error = te.UserMessage()
	case err != nil:
		result.Success = false
		result.Error = err.Error()
	case g.Reason() == stream.ReasonCanceled:
		result.Success = false
		result.Error = fmt.Sprintf("no complete reply within %s", pingTimeout)
	default:
		result.Success = result.Reply != ""
		if !result.Success {
			result.Error = "the stream ended without any text"
		}
	}
}

func reportPing(w io.Writer, r pingResult, asJSON bool) error {
	if asJSON {
		data, err := json.MarshalIndent(r, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(w, string(data))
		return nil
	}

	switch r.ModelStatus {
	case modellist.StatusOK.String():
		fmt.Fprintf(w, "✅ Model list: %d models (%dms)\n", r.ModelCount, r.ModelsMs)
	case modellist.StatusUnsupported.String():
		fmt.Fprintln(w, dimStyle.Render("   Model list: not supported by "+r.Template))
	default:
		fmt.Fprintf(w, "❌ Model list: %s (%dms)\n", r.ModelStatus, r.ModelsMs)
	}

	if r.Generated {
		if r.Error == "" {
			fmt.Fprintf(w, "✅ Generation: %s\n", r.Reason)
			fmt.Fprintf(w, "   First token: %dms\n", r.FirstTokenMs)
			fmt.Fprintf(w, "   Total: %dms\n", r.TotalMs)
			fmt.Fprintf(w, "   Reply: %q\n", r.Reply)
		} else {
			fmt.Fprintf(w, "❌ Generation failed: %s\n", r.Error)
		}
	} else if r.Error != "" {
		fmt.Fprintf(w, "   %s\n", r.Error)
	}
	return nil
}

func init() {
	rootCmd.AddCommand(pingCmd)
	pingCmd.Flags().BoolVarP(&outputJSON, "json", "j", false, "JSON format output")
	pingCmd.Flags().DurationVarP(&pingTimeout, "timeout", "t", 30*time.Second, "Overall timeout")
	pingCmd.Flags().BoolVarP(&testRealAPI, "test", "T", false, "Also stream a short generation")
	pingCmd.Flags().StringVar(&pingPrompt, "prompt", "Reply with the single word: pong", "Message sent with -T")
}
