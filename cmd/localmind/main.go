package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"localmind-client/internal/bootstrap"
	"localmind-client/internal/config"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	// Global flags
	verbose     bool
	instruction string
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "localmind",
	Short: "LocalMIND - terminal client for a local LLM backend",
	Long: `LocalMIND is a terminal client for a locally hosted LLM backend.

Messages are staged before they are sent: the backend assembles the full
prompt (system, identity, memories, documents, history), you review and
edit it section by section, preview the draft response, and only commit
when satisfied. Nothing reaches conversation history until you commit.

Run without arguments to start the interactive chat interface.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		container := bootstrap.NewContainer(config.Load(), verbose)
		defer container.Close()
		return runChat(container)
	},
}

// analyzeCmd runs a one-off snippet analysis with no session effect
var analyzeCmd = &cobra.Command{
	Use:   "analyze [file]",
	Short: "Analyze a text snippet without touching conversation history",
	Long: `Sends a free-standing snippet to the backend for analysis. Reads from
the given file, or from stdin when no file is passed.

Example:
  localmind analyze main.go --instruction "explain this code"
  cat error.log | localmind analyze --instruction "what went wrong?"`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var snippet []byte
		var err error
		if len(args) == 1 {
			snippet, err = os.ReadFile(args[0])
		} else {
			snippet, err = readStdin()
		}
		if err != nil {
			return fmt.Errorf("failed to read snippet: %w", err)
		}

		container := bootstrap.NewContainer(config.Load(), verbose)
		defer container.Close()

		ctx, cancel := context.WithTimeout(cmd.Context(), 2*time.Minute)
		defer cancel()

		result, err := container.ChatService.Analyze(ctx, string(snippet), instruction)
		if err != nil {
			return err
		}
		fmt.Println(result)
		return nil
	},
}

// modelsCmd lists models installed on the backend
var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "List models available on the backend",
	RunE: func(cmd *cobra.Command, args []string) error {
		container := bootstrap.NewContainer(config.Load(), verbose)
		defer container.Close()

		models, err := container.ChatService.Models(cmd.Context())
		if err != nil {
			return err
		}
		if len(models) == 0 {
			fmt.Println("No models installed.")
			return nil
		}
		for _, m := range models {
			if m.Name == container.Config.Chat.Model {
				color.Green("* %s (active)", m.Name)
			} else {
				fmt.Printf("  %s\n", m.Name)
			}
		}
		return nil
	},
}

// memoriesCmd lists long-term memories
var memoriesCmd = &cobra.Command{
	Use:   "memories",
	Short: "List long-term memories stored by the backend",
	RunE: func(cmd *cobra.Command, args []string) error {
		container := bootstrap.NewContainer(config.Load(), verbose)
		defer container.Close()

		notes, err := container.ChatService.Memories(cmd.Context())
		if err != nil {
			return err
		}
		if len(notes) == 0 {
			fmt.Println("No memories stored yet.")
			return nil
		}
		for _, note := range notes {
			color.Cyan("[%s]", note.ID)
			fmt.Println(note.Content)
		}
		return nil
	},
}

// memoriesUpdateCmd rewrites one memory entry
var memoriesUpdateCmd = &cobra.Command{
	Use:   "update [id] [content]",
	Short: "Rewrite one memory entry (the backend re-embeds it)",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		container := bootstrap.NewContainer(config.Load(), verbose)
		defer container.Close()

		id := args[0]
		content := strings.Join(args[1:], " ")
		if err := container.ChatService.UpdateMemory(cmd.Context(), id, content); err != nil {
			return err
		}
		color.Green("Memory %s updated.", id)
		return nil
	},
}

// historyCmd prints the committed conversation transcript
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show committed conversation history",
	RunE: func(cmd *cobra.Command, args []string) error {
		container := bootstrap.NewContainer(config.Load(), verbose)
		defer container.Close()

		messages, err := container.ChatService.History(cmd.Context())
		if err != nil {
			return err
		}
		if len(messages) == 0 {
			fmt.Println("History is empty.")
			return nil
		}
		for _, m := range messages {
			printTurn(m.Role, m.Content)
		}
		return nil
	},
}

// summarizersCmd reports summarizer model availability
var summarizersCmd = &cobra.Command{
	Use:   "summarizers",
	Short: "Check which summarizer models are installed",
	RunE: func(cmd *cobra.Command, args []string) error {
		container := bootstrap.NewContainer(config.Load(), verbose)
		defer container.Close()

		status, err := container.ChatService.Summarizers(cmd.Context())
		if err != nil {
			return err
		}
		for _, name := range status.Available {
			color.Green("ok      %s", name)
		}
		for _, name := range status.Missing {
			color.Yellow("missing %s", name)
		}
		if len(status.Missing) > 0 {
			fmt.Println("\nMissing models can be pulled with: ollama pull <model>")
		}
		return nil
	},
}

func printTurn(role, content string) {
	switch role {
	case "user":
		color.New(color.FgHiBlue, color.Bold).Println("You:")
	case "assistant":
		color.New(color.FgHiGreen, color.Bold).Println("Assistant:")
	default:
		color.New(color.Bold).Printf("%s:\n", role)
	}
	fmt.Println(content)
	fmt.Println()
}

func readStdin() ([]byte, error) {
	info, err := os.Stdin.Stat()
	if err != nil {
		return nil, err
	}
	if info.Mode()&os.ModeCharDevice != 0 {
		return nil, fmt.Errorf("no file given and stdin is a terminal")
	}
	return io.ReadAll(os.Stdin)
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "echo log output to the terminal")
	analyzeCmd.Flags().StringVarP(&instruction, "instruction", "i", "", "what to do with the snippet")

	memoriesCmd.AddCommand(memoriesUpdateCmd)
	rootCmd.AddCommand(analyzeCmd, modelsCmd, memoriesCmd, historyCmd, summarizersCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		color.Red("Error: %v", err)
		os.Exit(1)
	}
}
