// Package chatcmd provides the interactive chat command.
package chatcmd

import (
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/shoal-chat/shoal/internal/chat"
	"github.com/shoal-chat/shoal/internal/cli/chat/ui"
	"github.com/shoal-chat/shoal/internal/config"
	"github.com/shoal-chat/shoal/internal/llm"
	"github.com/shoal-chat/shoal/internal/logging"
	"github.com/shoal-chat/shoal/internal/store"
)

// chatFlags holds the chat command's flag values.
type chatFlags struct {
	model         string
	resume        string
	plain         bool
	listProviders bool
}

func (f *chatFlags) register(fs *pflag.FlagSet) {
	fs.StringVarP(&f.model, "model", "m", "", "Model as provider:model-id (overrides config)")
	fs.StringVarP(&f.resume, "resume", "r", "", "Resume a stored conversation by ID")
	fs.BoolVar(&f.plain, "plain", false, "Line-based mode without the full-screen UI")
	fs.BoolVar(&f.listProviders, "list-providers", false, "List available providers and models, then exit")
}

// NewChatCmd creates the chat command.
func NewChatCmd() *cobra.Command {
	var flags chatFlags

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Start an interactive chat session",
		Long: `Start an interactive chat session with a language model.

Conversations are saved to the configured store as you go: the first
exchange creates the record, later exchanges update it, and a short
title is generated in the background.

Examples:
  shoal chat
  shoal chat --model google:gemini-2.0-flash
  shoal chat --resume 3f6c0b2a
  shoal chat --model mock:echo --plain`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runChat(cmd, flags)
		},
	}

	flags.register(cmd.Flags())
	return cmd
}

func runChat(cmd *cobra.Command, flags chatFlags) error {
	if flags.listProviders {
		printProviders(cmd)
		return nil
	}

	loader := config.NewLoader()
	cfg, err := loader.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if flags.model != "" {
		cfg.Chat.DefaultModel = flags.model
	}
	if err := config.Validate(cfg); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	providerName, modelID, err := config.SplitModel(cfg.Chat.DefaultModel)
	if err != nil {
		return err
	}
	// Custom endpoints serve arbitrary model IDs, so only validate against
	// the registry when talking to a provider's public API.
	if cfg.Chat.BaseURL == "" {
		if err := llm.Get().ValidateModel(providerName, modelID); err != nil {
			return err
		}
	}

	interactive := !flags.plain && isatty.IsTerminal(os.Stdout.Fd())

	// The full-screen UI owns the terminal, so logs go to a file there;
	// plain mode logs to stderr like everything else.
	var logger zerolog.Logger
	logCfg := logging.Config{Level: cfg.Log.Level}
	if interactive {
		fileLogger, closeLog, err := logging.NewFileLogger(logCfg, loader.LogPath())
		if err != nil {
			return fmt.Errorf("failed to open log file: %w", err)
		}
		defer func() { _ = closeLog() }()
		logger = fileLogger
	} else {
		logger = logging.New(logCfg)
	}

	provider, err := llm.Get().GetProvider(cmd.Context(), providerName, modelID, cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize provider: %w", err)
	}

	client := store.NewClient(cfg.Store.BaseURL, cfg.StoreTimeout(), logger)

	session := chat.NewSession(provider, client, chat.Options{
		MaxTokens:     cfg.Chat.MaxTokens,
		StreamTimeout: cfg.StreamTimeout(),
		StoreTimeout:  cfg.StoreTimeout(),
		TitleTimeout:  cfg.TitleTimeout(),
		Debounce:      cfg.DebounceWindow(),
		Logger:        logger,
	})
	defer session.Close()

	if flags.resume != "" {
		id, err := client.ResolveID(cmd.Context(), flags.resume)
		if err != nil {
			return err
		}
		if err := session.Load(cmd.Context(), id); err != nil {
			return err
		}
	}

	if !interactive {
		return runPlain(cmd, session, cfg.Chat.DefaultModel)
	}

	model, err := ui.NewModel(session, cfg.Chat.DefaultModel)
	if err != nil {
		return fmt.Errorf("failed to create UI: %w", err)
	}
	p := tea.NewProgram(model, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("chat session failed: %w", err)
	}
	return nil
}

// printProviders writes the registry contents in provider:model form so the
// output can be pasted straight into --model.
func printProviders(cmd *cobra.Command) {
	for _, p := range llm.Get().ListProviders() {
		cmd.Printf("%s - %s\n", p.DisplayName, p.Description)
		for _, model := range p.SupportedModels {
			if model.Deprecated {
				continue
			}
			cmd.Printf("  %s:%s\t%s\n", p.Name, model.ID, model.DisplayName)
		}
	}
}
