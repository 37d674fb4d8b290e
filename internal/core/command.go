package core

import (
	"regexp"
	"strings"
)

// CommandKind describes what the client wants to do.
type CommandKind int

const (
	// CommandChat is any line that is not a known verb; it goes to the current channel.
	CommandChat CommandKind = iota
	// CommandNick sets the session nickname.
	CommandNick
	// CommandJoin moves the session into a channel.
	CommandJoin
	// CommandPart leaves the current channel.
	CommandPart
	// CommandPrivmsg whispers to another nickname.
	CommandPrivmsg
	// CommandList enumerates channels.
	CommandList
	// CommandUser reports the session's nickname and channel.
	CommandUser
	// CommandHelp prints the command list.
	CommandHelp
	// CommandPing asks for a PONG with the server time.
	CommandPing
	// CommandQuit ends the session.
	CommandQuit
)

var commandNames = map[CommandKind]string{
	CommandChat:    "CHAT",
	CommandNick:    "NICK",
	CommandJoin:    "JOIN",
	CommandPart:    "PART",
	CommandPrivmsg: "PRIVMSG",
	CommandList:    "LIST",
	CommandUser:    "USER",
	CommandHelp:    "HELP",
	CommandPing:    "PING",
	CommandQuit:    "QUIT",
}

var verbs = map[string]CommandKind{
	"NICK":    CommandNick,
	"JOIN":    CommandJoin,
	"PART":    CommandPart,
	"PRIVMSG": CommandPrivmsg,
	"LIST":    CommandList,
	"USER":    CommandUser,
	"HELP":    CommandHelp,
	"PING":    CommandPing,
	"QUIT":    CommandQuit,
}

func (k CommandKind) String() string {
	if name, ok := commandNames[k]; ok {
		return name
	}
	return "UNKNOWN"
}

// Command is one decoded client line.
//
// Arg holds the trimmed argument of NICK and JOIN. Target and Text hold the
// PRIVMSG recipient and body. Text holds the untouched line for chat.
type Command struct {
	Kind   CommandKind
	Arg    string
	Target string
	Text   string
}

var nicknamePattern = regexp.MustCompile(`^[A-Za-z0-9가-힣]{2,12}$`)

// ValidNickname reports whether name has an acceptable shape.
func ValidNickname(name string) bool {
	return nicknamePattern.MatchString(name)
}

// ParseCommand decodes a line. The verb is case-insensitive and separated
// from its argument by the first space. Precondition checks that depend on
// session state are left to the caller.
func ParseCommand(line string) (Command, error) {
	if strings.TrimSpace(line) == "" {
		return Command{}, ErrInvalidCommand
	}

	verb, rest, _ := strings.Cut(line, " ")
	kind, known := verbs[strings.ToUpper(verb)]
	if !known {
		return Command{Kind: CommandChat, Text: line}, nil
	}

	cmd := Command{Kind: kind}
	switch kind {
	case CommandNick, CommandJoin:
		cmd.Arg = strings.TrimSpace(rest)
	case CommandPrivmsg:
		target, text, ok := strings.Cut(rest, " ")
		if ok {
			cmd.Target = target
			cmd.Text = text
		}
	}
	return cmd, nil
}

// Validate reports missing or malformed arguments. Callers check state
// preconditions (nickname set) before calling it.
func (c Command) Validate() error {
	switch c.Kind {
	case CommandNick:
		if c.Arg == "" {
			return ErrNickUsage
		}
		if !ValidNickname(c.Arg) {
			return ErrInvalidNickname
		}
	case CommandJoin:
		if c.Arg == "" {
			return ErrJoinUsage
		}
	case CommandPrivmsg:
		if c.Target == "" || strings.TrimSpace(c.Text) == "" {
			return ErrPrivmsgUsage
		}
	}
	return nil
}
