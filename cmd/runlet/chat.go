package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/chzyer/readline"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/michaelbrown/runlet/internal/config"
	"github.com/michaelbrown/runlet/internal/engine"
	"github.com/michaelbrown/runlet/internal/session"
	"github.com/michaelbrown/runlet/internal/storage/sqlite"
)

var noHistoryFlag bool

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start an interactive local run session",
	Long: `Talk to runlet from the terminal: submit a script with /run, answer its
input prompts, and see the bounded output.

Examples:
  runlet chat
  runlet chat --no-history`,
	RunE: runChat,
}

func init() {
	chatCmd.Flags().BoolVar(&noHistoryFlag, "no-history", false, "Do not record runs in the history database")
	rootCmd.AddCommand(chatCmd)
}

func runChat(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	profile, err := cfg.Profile()
	if err != nil {
		return err
	}

	var recorder session.Recorder
	if !noHistoryFlag {
		store, err := sqlite.Open(cfg.Storage.DBPath)
		if err != nil {
			return fmt.Errorf("opening storage: %w", err)
		}
		defer store.Close()
		recorder = store
	}

	coord := session.NewCoordinator(engine.New(profile), recorder)

	// One local requester per chat process.
	requesterID := "local-" + uuid.New().String()[:8]

	fmt.Printf("runlet - Interactive Script Runner\n")
	fmt.Printf("Interpreter: %s\n", profile.Name)
	fmt.Printf("Type /run to submit a script, /help for commands, /quit to exit\n\n")

	// Set up readline for input with history
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "\033[36myou>\033[0m ",
		HistoryFile:     "/tmp/runlet_history",
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return fmt.Errorf("readline: %w", err)
	}
	defer rl.Close()

	ctx := context.Background()

	for {
		input, err := rl.Readline()
		if err != nil {
			if err == readline.ErrInterrupt || err == io.EOF {
				fmt.Println("\nGoodbye!")
				return nil
			}
			return err
		}

		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}

		var replies []session.Reply
		if strings.HasPrefix(input, "/") {
			switch strings.ToLower(strings.Fields(input)[0]) {
			case "/quit", "/exit", "/q":
				fmt.Println("Goodbye!")
				return nil
			case "/start":
				replies = coord.Greet(requesterID)
			case "/help":
				replies = coord.Help(requesterID)
			case "/run":
				replies = coord.StartRun(requesterID)
			case "/cancel":
				replies = coord.Cancel(requesterID)
			default:
				fmt.Printf("Unknown command: %s (try /help)\n\n", input)
				continue
			}
		} else {
			replies = coord.HandleText(ctx, requesterID, input)
		}

		for _, reply := range replies {
			printReply(reply)
		}
	}
}

func printReply(reply session.Reply) {
	switch reply.Kind {
	case session.KindOutput:
		fmt.Printf("\033[32mrunlet>\033[0m\n%s\n\n", reply.Text)
	case session.KindError:
		fmt.Printf("\033[31mrunlet>\033[0m %s\n\n", reply.Text)
	default:
		fmt.Printf("\033[32mrunlet>\033[0m %s\n\n", reply.Text)
	}
}
