package cli

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/Abdulb7772/mini-ERP-admin-side/internal/domain"
)

// InteractiveCLI handles interactive command-line interface
type InteractiveCLI struct {
	handler *CommandHandler
	reader  *bufio.Reader
	writer  io.Writer
}

// NewInteractiveCLI creates a new interactive CLI
func NewInteractiveCLI(handler *CommandHandler) *InteractiveCLI {
	return &InteractiveCLI{
		handler: handler,
		reader:  bufio.NewReader(os.Stdin),
		writer:  os.Stdout,
	}
}

// Run starts the interactive CLI loop
func (cli *InteractiveCLI) Run(ctx context.Context) error {
	cli.printWelcome()

	// Subscribe to events in background
	eventChan := cli.handler.SubscribeEvents([]domain.EventType{
		domain.EventTypeMessageReceived,
		domain.EventTypeTypingChanged,
		domain.EventTypeConnectionStatus,
	})

	go cli.handleEvents(eventChan)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
			cli.print("\n> ")
			line, err := cli.reader.ReadString('\n')
			if err != nil {
				if err == io.EOF {
					return nil
				}
				return err
			}

			line = strings.TrimSpace(line)
			if line == "" {
				continue
			}

			if err := cli.processCommand(ctx, line); err != nil {
				if err.Error() == "quit" {
					cli.println("Goodbye!")
					return nil
				}
				cli.printf("Error: %s\n", err)
			}
		}
	}
}

func (cli *InteractiveCLI) printWelcome() {
	cli.println("===========================================")
	cli.println("  ERP Chat CLI")
	cli.println("===========================================")
	cli.println("Type /help for available commands")
	cli.println("")

	status, _ := cli.handler.cmdStatus()
	if s, ok := status.(ConnectionStatus); ok {
		cli.printf("Signed in as: %s\n", s.Self)
		cli.printf("Status: %s\n", s.Status)
	}
}

func (cli *InteractiveCLI) processCommand(ctx context.Context, input string) error {
	cmd, err := ParseCommand(input)
	if err != nil {
		return err
	}

	result, err := cli.handler.Execute(ctx, cmd)
	if err != nil {
		return err
	}

	// Check for quit command
	if m, ok := result.(map[string]bool); ok && m["quit"] {
		return fmt.Errorf("quit")
	}

	cli.displayResult(cmd.Name, result)
	return nil
}

func (cli *InteractiveCLI) displayResult(cmdName string, result interface{}) {
	switch cmdName {
	case "help", "h":
		if m, ok := result.(map[string]string); ok {
			cli.println(m["help"])
		}

	case "status", "s":
		if s, ok := result.(ConnectionStatus); ok {
			cli.printf("Connection Status: %s\n", s.Status)
			cli.printf("  Signed in as: %s\n", s.Self)
			if s.OpenChat != "" {
				cli.printf("  Open chat: %s\n", s.OpenChat)
			}
		}

	case "chats", "ls", "refresh":
		if m, ok := result.(map[string]interface{}); ok {
			chats, _ := m["chats"].([]ChatInfo)
			cli.printf("Found %d chat(s):\n\n", len(chats))
			for i, chat := range chats {
				unread := ""
				if chat.UnreadCount > 0 {
					unread = fmt.Sprintf(" [%d unread]", chat.UnreadCount)
				}
				kind := chat.Kind
				if chat.IsGroup {
					kind += ", group"
				}
				cli.printf("%d. %s (%s)%s\n", i+1, chat.Title, kind, unread)
				cli.printf("   ID: %s\n", chat.ID)
				if chat.Context != "" {
					cli.printf("   Linked: %s\n", chat.Context)
				}
				if chat.LastMessage != "" {
					preview := chat.LastMessage
					if len(preview) > 50 {
						preview = preview[:50] + "..."
					}
					cli.printf("   Last: %s\n", preview)
				}
			}
		}

	case "staff", "teams":
		if m, ok := result.(map[string]interface{}); ok {
			key := cmdName
			entries, _ := m[key].([]TargetInfo)
			cli.printf("Found %d %s entr(ies):\n\n", len(entries), key)
			for i, entry := range entries {
				marker := "new"
				if entry.Existing {
					marker = "chat"
					if entry.UnreadCount > 0 {
						marker = fmt.Sprintf("chat, %d unread", entry.UnreadCount)
					}
				}
				online := ""
				if entry.Online {
					online = " *online*"
				}
				cli.printf("%d. %s (%s)%s\n", i+1, entry.Title, marker, online)
				cli.printf("   ID: %s\n", entry.ID)
			}
		}

	case "open", "o":
		if m, ok := result.(map[string]interface{}); ok {
			if chat, ok := m["chat"].(ChatInfo); ok {
				cli.printf("Opened: %s\n", chat.Title)
				if chat.Context != "" {
					cli.printf("  Linked: %s\n", chat.Context)
				}
				cli.printf("  %v message(s) loaded, use /messages to view\n", m["messages"])
			}
		}

	case "messages", "msg":
		if m, ok := result.(map[string]interface{}); ok {
			messages, _ := m["messages"].([]MessageInfo)
			cli.printf("Showing %d message(s):\n\n", len(messages))
			for _, msg := range messages {
				sender := "Me"
				if !msg.IsFromMe {
					sender = msg.SenderName
					if sender == "" {
						sender = msg.SenderID
					}
				}
				timestamp := msg.Timestamp.Format("2006-01-02 15:04")
				status := ""
				if msg.IsFromMe {
					status = fmt.Sprintf(" (%s)", msg.Status)
				}
				cli.printf("[%s] %s:%s\n", timestamp, sender, status)
				cli.printf("  %s\n", msg.Text)
				if msg.Context != "" {
					cli.printf("  Linked: %s\n", msg.Context)
				}
				cli.printf("  ID: %s\n\n", msg.ID)
			}
		}

	case "context":
		if info, ok := result.(ContextInfo); ok {
			cli.printf("Linked %s: %s\n", info.Type, info.Label)
		} else if m, ok := result.(map[string]string); ok {
			cli.println(m["message"])
		}

	case "online":
		if m, ok := result.(map[string]interface{}); ok {
			users, _ := m["online"].([]string)
			cli.printf("%d user(s) online:\n", len(users))
			for _, id := range users {
				cli.printf("  %s\n", id)
			}
		}

	default:
		if m, ok := result.(map[string]string); ok {
			if msg, exists := m["message"]; exists {
				cli.println(msg)
				return
			}
		}
		// Pretty print JSON
		data, _ := json.MarshalIndent(result, "", "  ")
		cli.println(string(data))
	}
}

func (cli *InteractiveCLI) handleEvents(eventChan <-chan Event) {
	for event := range eventChan {
		switch event.Type {
		case "message_received":
			if msg, ok := event.Data.(MessageInfo); ok {
				if msg.IsFromMe {
					continue
				}
				sender := msg.SenderName
				if sender == "" {
					sender = msg.SenderID
				}
				cli.printf("\n[New Message] From %s:\n", sender)
				cli.printf("  %s\n", msg.Text)
				cli.print("> ")
			}
		case "typing_changed":
			if data, ok := event.Data.(map[string]interface{}); ok {
				peers, _ := data["peers"].([]string)
				if len(peers) > 0 {
					cli.printf("\n[%s typing...]\n> ", strings.Join(peers, ", "))
				}
			}
		case "connection_status":
			if data, ok := event.Data.(map[string]interface{}); ok {
				connected, _ := data["connected"].(bool)
				if connected {
					cli.println("\n[Connected]")
				} else {
					reason, _ := data["reason"].(string)
					cli.printf("\n[Disconnected: %s]\n", reason)
				}
				cli.print("> ")
			}
		}
	}
}

func (cli *InteractiveCLI) print(s string) {
	fmt.Fprint(cli.writer, s)
}

func (cli *InteractiveCLI) println(s string) {
	fmt.Fprintln(cli.writer, s)
}

func (cli *InteractiveCLI) printf(format string, args ...interface{}) {
	fmt.Fprintf(cli.writer, format, args...)
}
