package chat

import (
	"fmt"
	"strings"
)

// Status lines sent to the originator of a command.
const (
	statusRegistered     = "Registration successful"
	statusLoggedIn       = "Login Successful"
	statusWrongPassword  = "Wrong Password"
	statusSent           = "Successfully Sent"
	statusFileSent       = "File sent successfully"
	statusNoCurrentChat  = "Join or start a chat first"
	statusUnknownCommand = "Unknown command"
)

// Markers of the file relay sub-protocol, as seen by the recipient.
const (
	fileAnnouncePrefix = "Filename: "
	fileEndMarker      = "EOF"

	// senderEndPrefix starts the line a sending client writes after its last chunk.
	senderEndPrefix = "EOF: "
)

func statusSentWithOffline(offline []string) string {
	if len(offline) == 0 {
		return statusSent
	}
	return fmt.Sprintf("%s (not online: %s)", statusSent, strings.Join(offline, ", "))
}

func statusChatStarted(chat string) string {
	return fmt.Sprintf("Chat '%s' started successfully", chat)
}

func statusStartFailed(chat string) string {
	return fmt.Sprintf("Failed to start chat '%s'", chat)
}

func statusChatJoined(chat string) string {
	return fmt.Sprintf("Joined chat '%s'", chat)
}

func statusJoinFailed(chat string) string {
	return fmt.Sprintf("Failed to join chat '%s'", chat)
}

func statusChatMessageSent(chat string) string {
	return fmt.Sprintf("Message sent to chat '%s'", chat)
}

func statusChatLeft(chat string) string {
	return fmt.Sprintf("You have left the chat '%s'", chat)
}

func statusFileFailed(err error) string {
	return fmt.Sprintf("Error receiving file: %v", err)
}

func noteDirect(sender, content string) string {
	return fmt.Sprintf("from %s: %s", sender, content)
}

func noteJoined(member, chat string) string {
	return fmt.Sprintf("User '%s' has joined the chat '%s'", member, chat)
}

func noteChat(sender, content string) string {
	return fmt.Sprintf("%s: %s", sender, content)
}

func noteLeft(member string) string {
	return fmt.Sprintf("User '%s' has left the chat", member)
}

func noteFileAnnounce(name string) string {
	return fileAnnouncePrefix + name
}
