package registry

import (
	"sort"

	"relaychat/internal/pkg/errs"
)

// Tx is the view of the registry handed to Update.
// It is only valid inside the function it was passed to.
type Tx struct {
	r *Registry
}

// UserExists reports whether a record exists for name.
func (tx *Tx) UserExists(name string) bool {
	_, ok := tx.r.users[name]
	return ok
}

// SetOnline unconditionally inserts or overwrites the presence entry for name.
func (tx *Tx) SetOnline(name string, sink Sink) {
	if current, replaced := tx.r.online[name]; replaced && current != sink {
		tx.r.logger.Warn().Str("user", name).Msg("Presence entry replaced by a newer login")
	}
	tx.r.online[name] = sink
}

// SetOffline removes the presence entry for name. It is a no-op when none exists.
func (tx *Tx) SetOffline(name string) {
	delete(tx.r.online, name)
}

// Release removes the presence entry for name if it is still sink.
func (tx *Tx) Release(name string, sink Sink) bool {
	current, ok := tx.r.online[name]
	if !ok || current != sink {
		return false
	}
	delete(tx.r.online, name)
	return true
}

// Lookup returns the sink registered for name.
func (tx *Tx) Lookup(name string) (Sink, bool) {
	sink, ok := tx.r.online[name]
	return sink, ok
}

// SetCurrentChat sets (or, with nil, clears) the current chat of name.
func (tx *Tx) SetCurrentChat(name string, chat *string) error {
	rec, ok := tx.r.users[name]
	if !ok {
		return errs.NewError(errs.ErrUserNotFound)
	}

	if chat == nil {
		rec.CurrentChat = nil
		return nil
	}

	c := *chat
	rec.CurrentChat = &c
	return nil
}

// GetCurrentChat returns the current chat of name.
func (tx *Tx) GetCurrentChat(name string) (string, bool) {
	rec, ok := tx.r.users[name]
	if !ok {
		return "", false
	}
	return rec.ChatName()
}

// CreateChat inserts chat with founder as its only member.
// An existing chat of the same name has its membership reset.
func (tx *Tx) CreateChat(chat, founder string) {
	if _, exists := tx.r.chats[chat]; exists {
		tx.r.logger.Warn().Str("chat", chat).Str("founder", founder).Msg("Existing chat re-created, membership reset")
	}
	tx.r.chats[chat] = map[string]struct{}{founder: {}}
}

// ChatExists reports whether chat exists.
func (tx *Tx) ChatExists(chat string) bool {
	_, ok := tx.r.chats[chat]
	return ok
}

// Members returns the sorted member names of chat.
func (tx *Tx) Members(chat string) ([]string, error) {
	members, ok := tx.r.chats[chat]
	if !ok {
		return nil, errs.NewError(errs.ErrChatNotFound)
	}
	return sortedMembers(members), nil
}

// IsMember reports whether name belongs to chat.
func (tx *Tx) IsMember(chat, name string) bool {
	_, ok := tx.r.chats[chat][name]
	return ok
}

// JoinChat adds member to chat and returns the member set after the join.
func (tx *Tx) JoinChat(chat, member string) ([]string, error) {
	members, ok := tx.r.chats[chat]
	if !ok {
		return nil, errs.NewError(errs.ErrChatNotFound)
	}
	members[member] = struct{}{}
	return sortedMembers(members), nil
}

// QuitChat removes member from chat and returns the member set before the removal.
func (tx *Tx) QuitChat(chat, member string) ([]string, error) {
	members, ok := tx.r.chats[chat]
	if !ok {
		return nil, errs.NewError(errs.ErrChatNotFound)
	}
	if _, isMember := members[member]; !isMember {
		return nil, errs.NewError(errs.ErrNotChatMember)
	}

	prior := sortedMembers(members)
	delete(members, member)
	return prior, nil
}

// Sinks resolves names to the sinks of those currently online, skipping except.
func (tx *Tx) Sinks(names []string, except string) []Sink {
	sinks := make([]Sink, 0, len(names))
	for _, name := range names {
		if name == except {
			continue
		}
		if sink, ok := tx.r.online[name]; ok {
			sinks = append(sinks, sink)
		}
	}
	return sinks
}

func sortedMembers(members map[string]struct{}) []string {
	names := make([]string, 0, len(members))
	for name := range members {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
