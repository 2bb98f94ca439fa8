package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"localmind-client/internal/bootstrap"
	"localmind-client/pkg/events"
	"localmind-client/pkg/staging"
	"localmind-client/pkg/store"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/fatih/color"
)

var replHelp = `Commands:
  /sections          list the staged prompt's sections
  /show [n]          print the full prompt, or section n
  /edit <n> <text>   replace the content of section n
  /rerun             re-run inference on the current prompt
  /commit            accept the preview and commit the turn
  /discard           throw the staged turn away
  /cancel            cancel an in-flight build or inference
  /status            show the staging session state
  /direct <message>  send immediately, bypassing staging
  /help              show this help
  /quit              exit

Anything else is staged as a new message.`

// runChat drives the interactive staging REPL. Phase transitions and
// previews arrive asynchronously on the event bus and are rendered as
// they land.
func runChat(c *bootstrap.Container) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		fmt.Println("\nInterrupted")
		cancel()
	}()

	messages, err := c.Subscriber.Subscribe(ctx, events.TopicStaging)
	if err != nil {
		return fmt.Errorf("failed to subscribe to staging events: %w", err)
	}
	go renderEvents(messages)

	color.New(color.FgHiWhite, color.Bold).Println("LocalMIND")
	fmt.Printf("backend %s | model %s | staging %v\n",
		c.Config.Backend.BaseURL, c.Config.Chat.Model, c.Config.Chat.StagingEnabled)
	fmt.Println(strings.Repeat("─", 60))
	fmt.Println("Type a message to stage it, /help for commands.")

	reader := bufio.NewReader(os.Stdin)
	for {
		fmt.Print("> ")
		line, err := reader.ReadString('\n')
		if err != nil {
			fmt.Println()
			return nil
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, "/") {
			if quit := runMetaCommand(ctx, c, line); quit {
				return nil
			}
			continue
		}

		if !c.Config.Chat.StagingEnabled {
			sendDirect(ctx, c, line)
			continue
		}

		if err := c.Staging.Submit(ctx, line); err != nil {
			printActionError(err)
		}
	}
}

// runMetaCommand handles one slash command. Returns true on /quit.
func runMetaCommand(ctx context.Context, c *bootstrap.Container, line string) bool {
	cmd, arg, _ := strings.Cut(line, " ")
	arg = strings.TrimSpace(arg)

	switch cmd {
	case "/quit", "/q", "/exit":
		fmt.Println("Bye.")
		return true

	case "/help":
		fmt.Println(replHelp)

	case "/sections":
		listSections(c)

	case "/show":
		showPrompt(c, arg)

	case "/edit":
		editSection(c, arg)

	case "/rerun":
		if err := c.Staging.Rerun(ctx); err != nil {
			printActionError(err)
		}

	case "/commit":
		if err := c.Staging.Commit(); err != nil {
			printActionError(err)
		} else {
			color.Green("Committed.")
		}

	case "/discard":
		if err := c.Staging.Discard(); err != nil {
			printActionError(err)
		} else {
			fmt.Println("Discarded.")
		}

	case "/cancel":
		if err := c.Staging.Cancel(); err != nil {
			printActionError(err)
		}

	case "/status":
		printStatus(c.Staging.Session())

	case "/direct":
		if arg == "" {
			color.Yellow("Usage: /direct <message>")
			break
		}
		sendDirect(ctx, c, arg)

	default:
		color.Yellow("Unknown command %s, try /help", cmd)
	}
	return false
}

func sendDirect(ctx context.Context, c *bootstrap.Container, message string) {
	fmt.Println("Sending...")
	response, err := c.ChatService.SendDirect(ctx, message)
	if err != nil {
		printActionError(err)
		return
	}
	printTurn("assistant", response)
}

func listSections(c *bootstrap.Container) {
	sections := c.Staging.Sections()
	if sections == nil {
		color.Yellow("Nothing staged.")
		return
	}
	for i, s := range sections {
		lines := strings.Count(s.Content, "\n") + 1
		fmt.Printf("%2d) %-28s %d line(s)\n", i+1, s.Header, lines)
	}
}

func showPrompt(c *bootstrap.Container, arg string) {
	sess := c.Staging.Session()
	if sess == nil {
		color.Yellow("Nothing staged.")
		return
	}
	if arg == "" {
		fmt.Println(strings.Repeat("─", 60))
		fmt.Println(sess.PromptText)
		fmt.Println(strings.Repeat("─", 60))
		return
	}
	n, err := strconv.Atoi(arg)
	sections := c.Staging.Sections()
	if err != nil || n < 1 || n > len(sections) {
		color.Yellow("Usage: /show [n]  (1-%d)", len(sections))
		return
	}
	s := sections[n-1]
	color.Cyan("=== %s ===", s.Header)
	fmt.Println(s.Content)
}

func editSection(c *bootstrap.Container, arg string) {
	numStr, content, ok := strings.Cut(arg, " ")
	n, err := strconv.Atoi(numStr)
	if !ok || err != nil {
		color.Yellow("Usage: /edit <n> <new content>")
		return
	}
	if err := c.Staging.EditSection(n-1, content); err != nil {
		printActionError(err)
		return
	}
	fmt.Printf("Section %d updated. Preview invalidated, /rerun to regenerate.\n", n)
}

func printStatus(sess *store.StagingSession) {
	if sess == nil {
		fmt.Println("Idle, no staged turn.")
		return
	}
	fmt.Printf("session %s\n", sess.ID)
	fmt.Printf("phase   %s\n", sess.Phase)
	fmt.Printf("model   %s\n", sess.Model)
	if sess.LastError != "" {
		color.Yellow("warning %s", sess.LastError)
	}
	if sess.PreviewText != nil {
		fmt.Println("preview ready, /commit to accept")
	}
}

// renderEvents prints bus events as they arrive. It runs until the
// subscription channel closes.
func renderEvents(messages <-chan *message.Message) {
	for msg := range messages {
		var env events.Envelope
		if err := json.Unmarshal(msg.Payload, &env); err != nil {
			msg.Ack()
			continue
		}
		renderEvent(env)
		msg.Ack()
	}
}

func renderEvent(env events.Envelope) {
	switch env.Type {
	case events.TypePhaseChanged:
		from, _ := env.Data["from"].(string)
		to, _ := env.Data["to"].(string)
		renderPhase(from, to)

	case events.TypePreviewReady:
		preview, _ := env.Data["preview"].(string)
		fmt.Println()
		color.New(color.FgHiGreen, color.Bold).Println("Preview:")
		fmt.Println(preview)
		fmt.Println("/commit to accept, /edit or /rerun to revise, /discard to drop")
		fmt.Print("> ")

	case events.TypeBuildDegraded:
		reason, _ := env.Data["reason"].(string)
		fmt.Println()
		color.Yellow("Build degraded: %s", reason)
		color.Yellow("A partial prompt is staged, check /show before /rerun.")
		fmt.Print("> ")

	case events.TypeMemoryProposed:
		content, _ := env.Data["content"].(string)
		fmt.Println()
		color.Cyan("New memory proposed: %s", content)
		fmt.Print("> ")
	}
}

func renderPhase(from, to string) {
	switch to {
	case store.PhaseBuilding:
		fmt.Println("Building prompt...")
	case store.PhaseInferring:
		fmt.Println("Generating draft...")
	case store.PhaseReadyForReview:
		if from == store.PhaseBuilding {
			fmt.Println("Prompt staged, /show to inspect.")
		}
	}
}

func printActionError(err error) {
	switch {
	case err == staging.ErrSessionActive:
		color.Yellow("A turn is already staged, /commit or /discard it first.")
	case err == staging.ErrBusy:
		color.Yellow("Busy, wait for the current step or /cancel it.")
	case err == staging.ErrNoSession:
		color.Yellow("Nothing staged.")
	case err == staging.ErrNoPreview:
		color.Yellow("No preview yet, /rerun to generate one.")
	default:
		color.Red("Error: %v", err)
	}
}
