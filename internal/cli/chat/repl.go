package chatcmd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"sync"

	"github.com/atotto/clipboard"
	"github.com/chzyer/readline"
	"github.com/spf13/cobra"

	"github.com/shoal-chat/shoal/internal/chat"
	"github.com/shoal-chat/shoal/internal/store"
)

// runPlain drives the session as a line-based REPL for pipes, dumb
// terminals, and --plain.
func runPlain(cmd *cobra.Command, session *chat.Session, modelName string) error {
	rl, err := readline.New("> ")
	if err != nil {
		return fmt.Errorf("failed to initialize input: %w", err)
	}
	defer func() { _ = rl.Close() }()

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "shoal %s (/help for commands, Ctrl+D to quit)\n\n", modelName)

	// Print streaming deltas as they accumulate. Callbacks fire on the
	// streaming goroutine, strictly before Send returns.
	var printMu sync.Mutex
	var printed int
	unsubscribe := session.Subscribe(func(snap chat.Snapshot) {
		printMu.Lock()
		defer printMu.Unlock()
		if snap.Streaming && len(snap.Partial) > printed {
			fmt.Fprint(out, snap.Partial[printed:])
			printed = len(snap.Partial)
		}
	})
	defer unsubscribe()

	// Ctrl+C during a response stops the stream, not the program.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt)
	defer signal.Stop(sigCh)
	go func() {
		for range sigCh {
			session.CancelStream()
		}
	}()

	for {
		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			if len(line) == 0 {
				return nil
			}
			continue
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}

		text := strings.TrimSpace(line)
		if text == "" {
			continue
		}
		if strings.HasPrefix(text, "/") {
			if quit := handlePlainCommand(out, session, text); quit {
				return nil
			}
			continue
		}

		printMu.Lock()
		printed = 0
		printMu.Unlock()

		res := session.Send(cmd.Context(), text)
		switch res.Outcome {
		case chat.StreamCompleted:
			printMu.Lock()
			if printed == 0 {
				fmt.Fprint(out, res.Text)
			}
			printMu.Unlock()
		case chat.StreamInterrupted:
			fmt.Fprint(out, chat.InterruptedMarker)
		case chat.StreamFailed:
			fmt.Fprint(out, res.Text)
		}
		fmt.Fprint(out, "\n\n")
	}
}

func handlePlainCommand(out io.Writer, session *chat.Session, cmd string) (quit bool) {
	fields := strings.Fields(cmd)

	switch strings.ToLower(fields[0]) {
	case "/help":
		fmt.Fprintln(out, "Commands: /new  /rename <title>  /copy  /id  /exit")

	case "/new":
		session.Reset()
		fmt.Fprintln(out, "Started a new conversation.")

	case "/rename":
		title := strings.TrimSpace(strings.TrimPrefix(cmd, fields[0]))
		if title == "" {
			fmt.Fprintln(out, "usage: /rename <new title>")
			return false
		}
		session.Rename(title)
		fmt.Fprintf(out, "Renamed to %q.\n", title)

	case "/copy":
		snap := session.Snapshot()
		reply := ""
		for i := len(snap.Messages) - 1; i >= 0; i-- {
			if snap.Messages[i].Role == store.RoleAssistant {
				reply = snap.Messages[i].Content
				break
			}
		}
		if reply == "" {
			fmt.Fprintln(out, "Nothing to copy yet.")
			return false
		}
		if err := clipboard.WriteAll(reply); err != nil {
			fmt.Fprintf(out, "Copy failed: %v\n", err)
			return false
		}
		fmt.Fprintln(out, "Copied last reply to clipboard.")

	case "/id":
		id := session.ConversationID()
		if id == "" {
			fmt.Fprintln(out, "Not saved yet.")
			return false
		}
		fmt.Fprintln(out, id)

	case "/exit", "/quit":
		return true

	default:
		fmt.Fprintf(out, "Unknown command %s (try /help).\n", fields[0])
	}
	return false
}
