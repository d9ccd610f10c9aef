package message

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"relaychat/internal/domain"
)

const (
	msgSent         = "Message sent"
	msgUserNotFound = "User not found"
)

// Directory resolves a username to its online session.
type Directory interface {
	FindByUsername(username domain.Username) (domain.Session, bool)
}

// Service relays messages to online users.
type Service struct {
	sessions Directory
	notifier domain.Notifier
}

// New returns a router over the given directory and notifier.
func New(sessions Directory, notifier domain.Notifier) *Service {
	return &Service{sessions: sessions, notifier: notifier}
}

// Relay delivers payload from one user to target as a loadMessage event.
//
// An offline target, or one whose session disappears during delivery,
// yields an unsuccessful result rather than an error. Errors are reserved for
// failures that are not the target's absence.
func (s *Service) Relay(
	ctx context.Context,
	from, target domain.Username,
	payload json.RawMessage,
	id string,
) (domain.RelayResult, error) {
	peer, ok := s.sessions.FindByUsername(target)
	if !ok {
		return domain.RelayResult{Success: false, Message: msgUserNotFound, ID: id}, nil
	}

	err := s.notifier.Notify(ctx, peer.ID, domain.EventLoadMessage, domain.LoadMessage{
		Message: payload,
		From:    from,
	})
	if errors.Is(err, domain.ErrSessionGone) {
		return domain.RelayResult{Success: false, Message: msgUserNotFound, ID: id}, nil
	}
	if err != nil {
		return domain.RelayResult{}, fmt.Errorf("notify %s: %w", target, err)
	}
	return domain.RelayResult{Success: true, Message: msgSent, ID: id}, nil
}
