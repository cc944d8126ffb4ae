package chat

import (
	"context"

	"relaychat/internal/app/command"
	"relaychat/internal/app/registry"
	"relaychat/internal/pkg/errs"
)

// outgoing is a notification computed inside a registry transaction and
// delivered after the transaction has released the lock.
type outgoing struct {
	sinks []registry.Sink
	msg   string
}

func (o outgoing) deliverFrom(s *Session) {
	for _, sink := range o.sinks {
		s.deliver(sink, o.msg)
	}
}

// dispatch executes cmd and answers with exactly one status line.
// Only stream failures and quit are returned as errors.
func (s *Session) dispatch(ctx context.Context, cmd command.Command) error {
	switch c := cmd.(type) {
	case command.Register:
		return s.respond(s.handleRegister(ctx, c))
	case command.Login:
		return s.respond(s.handleLogin(c))
	case command.DirectMessage:
		return s.respond(s.handleDirectMessage(c))
	case command.MultiMessage:
		return s.respond(s.handleMultiMessage(c))
	case command.StartChat:
		return s.respond(s.handleStartChat(c))
	case command.JoinChat:
		return s.respond(s.handleJoinChat(c))
	case command.ChatMessage:
		return s.respond(s.handleChatMessage(c))
	case command.QuitChat:
		return s.respond(s.handleQuitChat(c))
	case command.FileTransfer:
		return s.handleFileTransfer(ctx, c)
	case command.Quit:
		s.logger.Info().Msg("Peer sent quit")
		return errSessionQuit
	default:
		s.logger.Error().Str("command", cmd.Keyword()).Msg("Parsed command has no handler")
		return s.respond(statusUnknownCommand)
	}
}

func (s *Session) handleRegister(ctx context.Context, c command.Register) string {
	err := s.registry.Register(ctx, c.Name, c.Secret)
	switch {
	case err == nil:
		return statusRegistered
	case errs.HasCode(err, errs.ErrUserAlreadyExists):
		return errs.NewError(errs.ErrUserAlreadyExists).Message
	default:
		s.logger.Error().Err(err).Str("name", c.Name).Msg("Registration failed")
		return errs.NewError(errs.ErrPersistenceFailure).Message
	}
}

func (s *Session) handleLogin(c command.Login) string {
	ok, err := s.registry.Authenticate(c.Name, c.Secret)
	if err != nil {
		return errs.Message(err)
	}
	if !ok {
		s.logger.Info().Str("name", c.Name).Msg("Login with wrong secret")
		return statusWrongPassword
	}

	previous := s.user
	_ = s.registry.Update(func(tx *registry.Tx) error {
		if previous != "" && previous != c.Name {
			tx.Release(previous, s.outbox)
		}
		tx.SetOnline(c.Name, s.outbox)
		return nil
	})

	s.becomeAuthenticated(c.Name)
	return statusLoggedIn
}

func (s *Session) handleDirectMessage(c command.DirectMessage) string {
	var note outgoing
	_ = s.registry.Update(func(tx *registry.Tx) error {
		if sink, ok := tx.Lookup(c.Recipient); ok {
			note = outgoing{sinks: []registry.Sink{sink}, msg: noteDirect(s.user, c.Content)}
		}
		return nil
	})

	if len(note.sinks) == 0 {
		return errs.NewError(errs.ErrRecipientOffline).Message
	}

	note.deliverFrom(s)
	return statusSent
}

func (s *Session) handleMultiMessage(c command.MultiMessage) string {
	var (
		note    = outgoing{msg: noteDirect(s.user, c.Content)}
		offline []string
	)
	_ = s.registry.Update(func(tx *registry.Tx) error {
		for _, name := range c.Recipients {
			sink, ok := tx.Lookup(name)
			if !ok {
				offline = append(offline, name)
				continue
			}
			note.sinks = append(note.sinks, sink)
		}
		return nil
	})

	note.deliverFrom(s)
	return statusSentWithOffline(offline)
}

func (s *Session) handleStartChat(c command.StartChat) string {
	err := s.registry.Update(func(tx *registry.Tx) error {
		tx.CreateChat(c.Chat, s.user)
		return tx.SetCurrentChat(s.user, &c.Chat)
	})
	if err != nil {
		s.logger.Error().Err(err).Str("chat", c.Chat).Msg("Failed to set current chat")
		return statusStartFailed(c.Chat)
	}

	s.logger.Info().Str("chat", c.Chat).Msg("Chat started")
	return statusChatStarted(c.Chat)
}

func (s *Session) handleJoinChat(c command.JoinChat) string {
	var note outgoing
	err := s.registry.Update(func(tx *registry.Tx) error {
		members, err := tx.JoinChat(c.Chat, s.user)
		if err != nil {
			return err
		}
		if err := tx.SetCurrentChat(s.user, &c.Chat); err != nil {
			return err
		}
		note = outgoing{sinks: tx.Sinks(members, s.user), msg: noteJoined(s.user, c.Chat)}
		return nil
	})

	switch {
	case errs.HasCode(err, errs.ErrChatNotFound):
		return errs.NewError(errs.ErrChatNotFound).Message
	case err != nil:
		s.logger.Error().Err(err).Str("chat", c.Chat).Msg("Failed to join chat")
		return statusJoinFailed(c.Chat)
	}

	note.deliverFrom(s)
	return statusChatJoined(c.Chat)
}

func (s *Session) handleChatMessage(c command.ChatMessage) string {
	var (
		chat    string
		hasChat bool
		note    outgoing
	)
	err := s.registry.Update(func(tx *registry.Tx) error {
		chat, hasChat = tx.GetCurrentChat(s.user)
		if !hasChat {
			return nil
		}
		members, err := tx.Members(chat)
		if err != nil {
			return err
		}
		note = outgoing{sinks: tx.Sinks(members, s.user), msg: noteChat(s.user, c.Content)}
		return nil
	})

	switch {
	case err != nil:
		return errs.Message(err)
	case !hasChat:
		return statusNoCurrentChat
	}

	note.deliverFrom(s)
	return statusChatMessageSent(chat)
}

func (s *Session) handleQuitChat(c command.QuitChat) string {
	var note outgoing
	err := s.registry.Update(func(tx *registry.Tx) error {
		prior, err := tx.QuitChat(c.Chat, s.user)
		if err != nil {
			return err
		}
		if current, ok := tx.GetCurrentChat(s.user); ok && current == c.Chat {
			if err := tx.SetCurrentChat(s.user, nil); err != nil {
				return err
			}
		}
		note = outgoing{sinks: tx.Sinks(prior, s.user), msg: noteLeft(s.user)}
		return nil
	})
	if err != nil {
		return errs.Message(err)
	}

	note.deliverFrom(s)
	return statusChatLeft(c.Chat)
}
