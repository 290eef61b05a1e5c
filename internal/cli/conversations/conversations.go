// Package conversations provides commands for managing stored
// conversations from the command line.
package conversations

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/shoal-chat/shoal/internal/config"
	"github.com/shoal-chat/shoal/internal/logging"
	"github.com/shoal-chat/shoal/internal/store"
)

// NewConversationsCmd creates the conversations command group.
func NewConversationsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "conversations",
		Aliases: []string{"convs"},
		Short:   "Manage stored conversations",
	}

	cmd.AddCommand(newListCmd())
	cmd.AddCommand(newShowCmd())
	cmd.AddCommand(newRenameCmd())
	cmd.AddCommand(newDeleteCmd())
	return cmd
}

// newStoreClient loads config and builds a store client for one command
// invocation.
func newStoreClient() (*store.Client, error) {
	cfg, err := config.NewLoader().Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	logger := logging.New(logging.Config{Level: cfg.Log.Level})
	return store.NewClient(cfg.Store.BaseURL, cfg.StoreTimeout(), logger), nil
}

func newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List stored conversations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := newStoreClient()
			if err != nil {
				return err
			}

			conversations, err := client.List(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to list conversations: %w", err)
			}
			if len(conversations) == 0 {
				cmd.Println("No conversations yet.")
				return nil
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tTITLE\tMESSAGES\tUPDATED")
			for _, conv := range conversations {
				fmt.Fprintf(w, "%s\t%s\t%d\t%s\n",
					shortID(conv.ID), conv.Title, len(conv.Messages), formatAge(conv.UpdatedAt))
			}
			return w.Flush()
		},
	}
}

func newShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Print a conversation transcript",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := newStoreClient()
			if err != nil {
				return err
			}

			id, err := client.ResolveID(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			conv, err := client.Get(cmd.Context(), id)
			if err != nil {
				return fmt.Errorf("failed to load conversation: %w", err)
			}

			cmd.Printf("%s (%s)\n\n", conv.Title, conv.ID)
			for _, msg := range conv.Messages {
				switch msg.Role {
				case store.RoleUser:
					cmd.Printf("> %s\n\n", msg.Content)
				case store.RoleAssistant:
					cmd.Printf("%s\n\n", msg.Content)
				}
			}
			return nil
		},
	}
}

func newRenameCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rename <id> <title>",
		Short: "Rename a conversation",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := newStoreClient()
			if err != nil {
				return err
			}

			id, err := client.ResolveID(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			conv, err := client.Get(cmd.Context(), id)
			if err != nil {
				return fmt.Errorf("failed to load conversation: %w", err)
			}

			title := args[1]
			if _, err := client.Update(cmd.Context(), id, store.UpdateRequest{
				Title:    &title,
				Messages: conv.Messages,
			}); err != nil {
				return fmt.Errorf("failed to rename conversation: %w", err)
			}

			cmd.Printf("Renamed %s to %q\n", shortID(id), title)
			return nil
		},
	}
}

func newDeleteCmd() *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a conversation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := newStoreClient()
			if err != nil {
				return err
			}

			id, err := client.ResolveID(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			if !yes {
				cmd.Printf("Delete conversation %s? Re-run with --yes to confirm.\n", shortID(id))
				return nil
			}

			if _, err := client.Delete(cmd.Context(), id); err != nil {
				return fmt.Errorf("failed to delete conversation: %w", err)
			}
			cmd.Printf("Deleted %s\n", shortID(id))
			return nil
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Skip the confirmation prompt")
	return cmd
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// formatAge renders a timestamp as a relative age for the list view.
func formatAge(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	d := time.Since(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	default:
		return fmt.Sprintf("%dd ago", int(d.Hours()/24))
	}
}
