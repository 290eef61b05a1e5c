// Package cli assembles the shoal command tree.
package cli

import (
	"github.com/spf13/cobra"

	chatcmd "github.com/shoal-chat/shoal/internal/cli/chat"
	"github.com/shoal-chat/shoal/internal/cli/conversations"
	"github.com/shoal-chat/shoal/internal/cli/status"
	"github.com/shoal-chat/shoal/pkg/version"
)

var rootCmd = &cobra.Command{
	Use:   "shoal",
	Short: "Shoal - terminal chat with persistent conversations",
	Long: `Chat with a language model from your terminal.

Conversations are streamed token by token and saved to a conversation
store in the background: the first exchange creates the record, later
exchanges coalesce into debounced updates, and a short title is
generated automatically.

Common commands:
  shoal chat                   Start chatting (full-screen UI on a TTY)
  shoal chat --resume <id>     Pick up a stored conversation
  shoal conversations list     Browse what has been saved
  shoal status                 Check configuration and store connectivity`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.AddCommand(chatcmd.NewChatCmd())
	rootCmd.AddCommand(conversations.NewConversationsCmd())
	rootCmd.AddCommand(status.NewStatusCmd())
	rootCmd.AddCommand(newVersionCmd())
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Printf("Shoal version %s\n", version.Version)
			cmd.Printf("Git commit: %s\n", version.GitCommit)
			cmd.Printf("Build date: %s\n", version.BuildDate)
			cmd.Printf("Go version: %s\n", version.GoVersion)
		},
	}
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
