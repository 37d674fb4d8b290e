package session

import (
	"fmt"

	"github.com/vovakirdan/wirerelay/internal/core"
	"github.com/vovakirdan/wirerelay/internal/proto"
)

const separator = "========================================="

var helpLines = []string{
	"===============<Command List>===============",
	"0. HELP: Display available commands",
	"1. LIST: Display channel list",
	"2. JOIN <channel>: Join a channel",
	"3. PART: Leave current channel",
	"4. QUIT: Disconnect from server",
	"5. PING: Test connection",
	"6. NICK <nickname>: Set nickname",
	"7. PRIVMSG <user> <message>: Send private message",
	"8. USER: Display user information",
	separator,
}

// handle dispatches one inbound line and reports whether the session should end.
func (s *Session) handle(line string) bool {
	cmd, err := core.ParseCommand(line)
	if err != nil {
		s.replyErr(err)
		return false
	}
	s.metrics.Command(cmd.Kind.String())

	switch cmd.Kind {
	case core.CommandNick:
		s.nick(cmd)
	case core.CommandJoin:
		s.join(cmd)
	case core.CommandPart:
		s.part()
	case core.CommandPrivmsg:
		s.privmsg(cmd)
	case core.CommandList:
		s.list()
	case core.CommandUser:
		s.userInfo()
	case core.CommandHelp:
		s.help()
	case core.CommandPing:
		s.reply(proto.FormatPong(s.now()))
	case core.CommandQuit:
		s.quit()
		return true
	case core.CommandChat:
		s.chat(cmd)
	}
	return false
}

func (s *Session) greet() {
	s.reply(separator)
	s.reply(s.now().Format("2006-01-02 15:04:05"))
	s.reply("Welcome to the IRC Server!")
	s.userInfo()
	s.reply("")
	s.help()
}

func (s *Session) nick(cmd core.Command) {
	if err := cmd.Validate(); err != nil {
		s.replyErr(err)
		return
	}

	previous := s.Nickname()
	if !s.registry.ClaimNickname(cmd.Arg, previous, s.outbox) {
		s.replyErr(core.NicknameInUse(cmd.Arg))
		return
	}

	s.mu.Lock()
	s.nickname = cmd.Arg
	if s.state == StateUnnamed {
		s.state = StateNamed
	}
	s.mu.Unlock()

	s.log.Info().Str("previous", previous).Str("nickname", cmd.Arg).Msg("nickname set")
	s.reply(fmt.Sprintf("Nickname set to '%s'", cmd.Arg))
}

func (s *Session) join(cmd core.Command) {
	if s.Nickname() == "" {
		s.replyErr(core.ErrJoinWithoutNick)
		return
	}
	if err := cmd.Validate(); err != nil {
		s.replyErr(err)
		return
	}

	current := s.Channel()
	if cmd.Arg == current {
		s.replyErr(core.AlreadyInChannel(current))
		return
	}

	s.registry.Leave(current, s.outbox)

	s.mu.Lock()
	s.channel = cmd.Arg
	s.state = StateInChannel
	s.mu.Unlock()

	s.registry.Join(cmd.Arg, s.outbox)
	s.log.Info().Str("from", current).Str("channel", cmd.Arg).Msg("joined channel")
	s.reply(fmt.Sprintf("Joined channel: '%s'", cmd.Arg))
}

func (s *Session) part() {
	current := s.Channel()
	if current == "" {
		s.replyErr(core.ErrNotInChannel)
		return
	}

	s.registry.Leave(current, s.outbox)

	s.mu.Lock()
	s.channel = ""
	s.state = StateNamed
	s.mu.Unlock()

	s.log.Info().Str("channel", current).Msg("left channel")
	s.reply("Left channel: " + current)
}

func (s *Session) privmsg(cmd core.Command) {
	nickname := s.Nickname()
	if nickname == "" {
		s.replyErr(core.ErrWhisperNoNick)
		return
	}
	if err := cmd.Validate(); err != nil {
		s.replyErr(err)
		return
	}
	if !fitsFrame(core.WhisperLine(nickname, cmd.Text)) {
		s.replyErr(core.ErrMessageTooLong)
		return
	}
	s.registry.Whisper(nickname, cmd.Target, cmd.Text, directReply{s})
}

func (s *Session) list() {
	channels := s.registry.ListChannels()
	s.reply("<Channel List>")
	if len(channels) == 0 {
		s.reply("No channels available.")
		s.reply("Create a channel using the 'JOIN <channel>' command.")
		return
	}
	for i, name := range channels {
		s.reply(fmt.Sprintf("%d. %s", i+1, name))
	}
}

func (s *Session) userInfo() {
	nickname, channel := s.Nickname(), s.Channel()
	if nickname == "" {
		nickname = unnamedNickname
	}
	if channel == "" {
		channel = "none"
	}
	s.reply("* Current nickname: " + nickname)
	s.reply("* Current channel: " + channel)
}

func (s *Session) help() {
	for _, line := range helpLines {
		s.reply(line)
	}
}

func (s *Session) quit() {
	s.reply("See you later!")
	s.release()
}

func (s *Session) chat(cmd core.Command) {
	channel := s.Channel()
	if channel == "" {
		s.replyErr(core.ErrChatNotInChannel)
		return
	}
	line := core.ChatLine(s.Nickname(), cmd.Text)
	if !fitsFrame(line) {
		s.replyErr(core.ErrMessageTooLong)
		return
	}
	s.registry.Broadcast(channel, line)
}

// fitsFrame reports whether a relayed line still fits one frame once the
// sender prefix has been added.
func fitsFrame(line string) bool {
	return proto.EncodedLen(line) <= proto.MaxFrameBytes
}

// directReply hands registry replies to the blocking Send, so whisper
// outcomes wait for queue space like any other reply.
type directReply struct {
	s *Session
}

func (d directReply) ID() string {
	return d.s.id
}

func (d directReply) Deliver(line string) error {
	return d.s.outbox.Send(d.s.ctx, line)
}
