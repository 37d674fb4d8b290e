package core

import "errors"

// Error codes for usage and state errors reported back to a session.
const (
	ErrCodeBadRequest      = "bad_request"
	ErrCodeInvalidNickname = "invalid_nickname"
	ErrCodeNicknameInUse   = "nickname_in_use"
	ErrCodeNoNickname      = "no_nickname"
	ErrCodeNotInChannel    = "not_in_channel"
	ErrCodeAlreadyJoined   = "already_joined"
	ErrCodeRateLimited     = "rate_limited"
	ErrCodeTooLong         = "message_too_long"
)

var (
	ErrEndpointClosed = errors.New("endpoint closed")
	ErrQueueFull      = errors.New("outbound queue full")
)

// CoreError wraps a code and the human-readable line sent to the client.
type CoreError struct {
	Code    string
	Message string
}

func (e *CoreError) Error() string {
	return e.Message
}

func coreError(code, msg string) *CoreError {
	return &CoreError{Code: code, Message: msg}
}

// Replies for usage and state errors.
var (
	ErrInvalidCommand   = coreError(ErrCodeBadRequest, "Invalid command")
	ErrNickUsage        = coreError(ErrCodeBadRequest, "Usage: NICK <nickname>")
	ErrJoinUsage        = coreError(ErrCodeBadRequest, "Usage: JOIN <channel>")
	ErrPrivmsgUsage     = coreError(ErrCodeBadRequest, "Usage: PRIVMSG <user> <message>")
	ErrInvalidNickname  = coreError(ErrCodeInvalidNickname, "Invalid nickname (alphanumeric, 2-12 characters)")
	ErrJoinWithoutNick  = coreError(ErrCodeNoNickname, "Please set your nickname before joining a channel. (Command: NICK <nickname>)")
	ErrWhisperNoNick    = coreError(ErrCodeNoNickname, "Please set your nickname before sending private messages")
	ErrNotInChannel     = coreError(ErrCodeNotInChannel, "You are not in any channel.")
	ErrChatNotInChannel = coreError(ErrCodeNotInChannel, "You are not in any channel. Please join a channel first.")
	ErrRateLimited      = coreError(ErrCodeRateLimited, "Rate limit exceeded, slow down")
	ErrMessageTooLong   = coreError(ErrCodeTooLong, "Error: Message too long")
)

// NicknameInUse reports a taken nickname.
func NicknameInUse(nick string) *CoreError {
	return coreError(ErrCodeNicknameInUse, "Nickname '"+nick+"' is already in use")
}

// AlreadyInChannel reports a JOIN of the current channel.
func AlreadyInChannel(channel string) *CoreError {
	return coreError(ErrCodeAlreadyJoined, "Already in channel '"+channel+"'")
}
