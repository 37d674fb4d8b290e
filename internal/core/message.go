package core

import "fmt"

// ChatLine formats a channel message tagged with its sender.
func ChatLine(from, text string) string {
	return fmt.Sprintf("[%s] %s", from, text)
}

// WhisperLine formats a private message as seen by its recipient.
func WhisperLine(from, text string) string {
	return fmt.Sprintf("[Whisper from %s] %s", from, text)
}

// Whisper outcome lines reported to the sender.
func whisperSent(to string) string {
	return "Message sent to " + to
}

func userNotFound(nick string) string {
	return "Error: User '" + nick + "' not found"
}

func whisperFailed(err error) string {
	return "Error: Failed to send message - " + err.Error()
}
