package services

import (
	"chat-presence/contract"
	"chat-presence/domain"
	"log/slog"
)

type IPresenceService interface {
	Online(user domain.UserID) domain.Presence
	Notify(user domain.UserID, evt domain.OutboundEvent) int
}

type connectionsSource interface {
	ConnectionsFor(user domain.UserID) []contract.Connection
}

type PresenceService struct {
	log         *slog.Logger
	connections connectionsSource
}

func NewPresenceService(log *slog.Logger, connections connectionsSource) *PresenceService {
	return &PresenceService{log: log, connections: connections}
}

func (s *PresenceService) Online(user domain.UserID) domain.Presence {
	count := len(s.connections.ConnectionsFor(user))
	return domain.Presence{UserID: user, Online: count > 0, Connections: count}
}

// Notify sends evt to every device of user, best-effort, and returns how many accepted it.
func (s *PresenceService) Notify(user domain.UserID, evt domain.OutboundEvent) int {
	delivered := 0
	for _, conn := range s.connections.ConnectionsFor(user) {
		if err := conn.Send(evt); err != nil {
			s.log.Debug("Direct notification not delivered", "connection", conn.ID(), "error", err)
			continue
		}
		delivered++
	}
	return delivered
}
