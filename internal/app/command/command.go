/*
Package command decodes the relay's textual command lines.

A line is split on whitespace and tried against each grammar in order; the
first grammar that structurally matches produces the Command. Lines that are too
short for their keyword's grammar do not match at all.
*/
package command

import (
	"strings"
)

// Command is a decoded command line. The concrete types below are the only implementations.
type Command interface {
	// Keyword returns the leading token that selected the grammar.
	Keyword() string

	// RequiresLogin reports whether the command is only valid on an authenticated session.
	RequiresLogin() bool
}

// Register is "reg -u <name> -p <secret>".
type Register struct {
	Name   string
	Secret string
}

// Login is "login -u <name> -p <secret>".
type Login struct {
	Name   string
	Secret string
}

// DirectMessage is "text -u <name> <content...>".
type DirectMessage struct {
	Recipient string
	Content   string
}

// MultiMessage is "textMultiple -u <name>... -t <content...>".
type MultiMessage struct {
	Recipients []string
	Content    string
}

// StartChat is "startchat <chatName>".
type StartChat struct {
	Chat string
}

// JoinChat is "joinchat <chatName>".
type JoinChat struct {
	Chat string
}

// ChatMessage is "message <content...>", broadcast to the sender's current chat.
type ChatMessage struct {
	Content string
}

// QuitChat is "quitchat <chatName>".
type QuitChat struct {
	Chat string
}

// FileTransfer is "file -u <recipient> <path...>".
type FileTransfer struct {
	Recipient string
	Path      string
}

// Quit is "quit".
type Quit struct{}

func (Register) Keyword() string      { return "reg" }
func (Login) Keyword() string         { return "login" }
func (DirectMessage) Keyword() string { return "text" }
func (MultiMessage) Keyword() string  { return "textMultiple" }
func (StartChat) Keyword() string     { return "startchat" }
func (JoinChat) Keyword() string      { return "joinchat" }
func (ChatMessage) Keyword() string   { return "message" }
func (QuitChat) Keyword() string      { return "quitchat" }
func (FileTransfer) Keyword() string  { return "file" }
func (Quit) Keyword() string          { return "quit" }

func (Register) RequiresLogin() bool      { return false }
func (Login) RequiresLogin() bool         { return false }
func (DirectMessage) RequiresLogin() bool { return true }
func (MultiMessage) RequiresLogin() bool  { return true }
func (StartChat) RequiresLogin() bool     { return true }
func (JoinChat) RequiresLogin() bool      { return true }
func (ChatMessage) RequiresLogin() bool   { return true }
func (QuitChat) RequiresLogin() bool      { return true }
func (FileTransfer) RequiresLogin() bool  { return true }
func (Quit) RequiresLogin() bool          { return false }

type grammar func(args []string) (Command, bool)

// grammars are tried in order. Each is keyed by its leading keyword, so at most one can match.
var grammars = []grammar{
	parseRegister,
	parseQuit,
	parseLogin,
	parseText,
	parseTextMultiple,
	parseStartChat,
	parseJoinChat,
	parseMessage,
	parseQuitChat,
	parseFile,
}

// Parse decodes line. It reports false when no grammar matches.
func Parse(line string) (Command, bool) {
	args := strings.Fields(line)

	for _, g := range grammars {
		if cmd, ok := g(args); ok {
			return cmd, true
		}
	}
	return nil, false
}

func parseRegister(args []string) (Command, bool) {
	if len(args) >= 5 && args[0] == "reg" && args[1] == "-u" && args[3] == "-p" {
		return Register{Name: args[2], Secret: args[4]}, true
	}
	return nil, false
}

func parseQuit(args []string) (Command, bool) {
	if len(args) >= 1 && args[0] == "quit" {
		return Quit{}, true
	}
	return nil, false
}

func parseLogin(args []string) (Command, bool) {
	if len(args) >= 5 && args[0] == "login" && args[1] == "-u" && args[3] == "-p" {
		return Login{Name: args[2], Secret: args[4]}, true
	}
	return nil, false
}

func parseText(args []string) (Command, bool) {
	if len(args) >= 4 && args[0] == "text" && args[1] == "-u" {
		return DirectMessage{Recipient: args[2], Content: strings.Join(args[3:], " ")}, true
	}
	return nil, false
}

func parseTextMultiple(args []string) (Command, bool) {
	if len(args) < 4 || args[0] != "textMultiple" || args[1] != "-u" {
		return nil, false
	}

	for i := 2; i < len(args); i++ {
		if args[i] == "-t" {
			recipients := make([]string, i-2)
			copy(recipients, args[2:i])
			return MultiMessage{Recipients: recipients, Content: strings.Join(args[i+1:], " ")}, true
		}
	}
	return nil, false
}

func parseStartChat(args []string) (Command, bool) {
	if len(args) >= 2 && args[0] == "startchat" {
		return StartChat{Chat: args[1]}, true
	}
	return nil, false
}

func parseJoinChat(args []string) (Command, bool) {
	if len(args) >= 2 && args[0] == "joinchat" {
		return JoinChat{Chat: args[1]}, true
	}
	return nil, false
}

func parseMessage(args []string) (Command, bool) {
	if len(args) >= 2 && args[0] == "message" {
		return ChatMessage{Content: strings.Join(args[1:], " ")}, true
	}
	return nil, false
}

func parseQuitChat(args []string) (Command, bool) {
	if len(args) >= 2 && args[0] == "quitchat" {
		return QuitChat{Chat: args[1]}, true
	}
	return nil, false
}

func parseFile(args []string) (Command, bool) {
	if len(args) >= 4 && args[0] == "file" && args[1] == "-u" {
		return FileTransfer{Recipient: args[2], Path: strings.Join(args[3:], " ")}, true
	}
	return nil, false
}
