// Package status implements the status command, a quick health view of
// the configuration, the conversation store, and the provider registry.
package status

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/shoal-chat/shoal/internal/config"
	"github.com/shoal-chat/shoal/internal/llm"
	"github.com/shoal-chat/shoal/internal/logging"
	"github.com/shoal-chat/shoal/internal/store"
)

// NewStatusCmd creates the status command: configuration summary, store
// reachability, and the available providers.
func NewStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show configuration and store connectivity",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			loader := config.NewLoader()
			cfg, err := loader.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			cmd.Printf("Config:  %s\n", loader.Path())
			cmd.Printf("Model:   %s\n", cfg.Chat.DefaultModel)
			cmd.Printf("Store:   %s\n", cfg.Store.BaseURL)

			logger := logging.New(logging.Config{Level: cfg.Log.Level})
			client := store.NewClient(cfg.Store.BaseURL, cfg.StoreTimeout(), logger)

			probeCtx, cancel := context.WithTimeout(cmd.Context(), 5*time.Second)
			defer cancel()

			start := time.Now()
			conversations, err := client.List(probeCtx)
			if err != nil {
				cmd.Printf("Status:  unreachable (%v)\n", err)
			} else {
				cmd.Printf("Status:  ok (%d conversations, %s)\n",
					len(conversations), time.Since(start).Round(time.Millisecond))
			}

			cmd.Println("\nProviders:")
			for _, p := range llm.Get().ListProviders() {
				key := "no API key needed"
				if p.RequiresAPIKey {
					key = fmt.Sprintf("API key via %s", p.DefaultEnvVar)
				}
				cmd.Printf("  %-10s %s (%s)\n", p.Name, p.Description, key)
				for _, model := range p.SupportedModels {
					if model.Deprecated {
						continue
					}
					cmd.Printf("             %s:%s\n", p.Name, model.ID)
				}
			}
			return nil
		},
	}
}
