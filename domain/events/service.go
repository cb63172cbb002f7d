package events

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/emergent-company/codeforge/domain/workflow"
	"github.com/emergent-company/codeforge/pkg/logger"
)

// Service is domain/events' implementation of workflow.EventPublisher:
// every Publish call fans the event out to connected SSE subscribers and
// appends it to the durable SessionEvent log. A repository write failure
// is logged and swallowed — observability must never be a reason the
// workflow engine's own control flow fails, the same fail-safe contract
// domain/workflow's Engine.ingestFailure follows for learning-store writes.
type Service struct {
	log  *slog.Logger
	repo *Repository

	mu          sync.RWMutex
	subscribers map[string][]chan workflow.Event
}

// NewService constructs a Service.
func NewService(repo *Repository, log *slog.Logger) *Service {
	return &Service{
		log:         log.With(logger.Scope("events")),
		repo:        repo,
		subscribers: make(map[string][]chan workflow.Event),
	}
}

// Publish implements workflow.EventPublisher.
func (s *Service) Publish(sessionID string, event workflow.Event) {
	s.persist(sessionID, event)
	s.fanOut(sessionID, event)
}

func (s *Service) persist(sessionID string, event workflow.Event) {
	payload, err := json.Marshal(event)
	if err != nil {
		s.log.Warn("failed to marshal event for persistence, continuing",
			"session_id", sessionID, "kind", event.Kind, "error", err)
		return
	}
	if err := s.repo.Append(context.Background(), sessionID, event.Kind, string(payload)); err != nil {
		s.log.Warn("failed to persist session event, continuing",
			"session_id", sessionID, "kind", event.Kind, "error", err)
	}
}

func (s *Service) fanOut(sessionID string, event workflow.Event) {
	s.mu.RLock()
	subs := append([]chan workflow.Event(nil), s.subscribers[sessionID]...)
	s.mu.RUnlock()

	for _, ch := range subs {
		select {
		case ch <- event:
		default:
			// A slow SSE client drops live events rather than blocking the
			// engine; it still has the durable log to replay from on
			// reconnect.
		}
	}
}

// Subscribe registers a channel that receives every event published for
// sessionID from this point forward. The returned func unsubscribes and
// closes the channel.
func (s *Service) Subscribe(sessionID string) (<-chan workflow.Event, func()) {
	ch := make(chan workflow.Event, 32)

	s.mu.Lock()
	s.subscribers[sessionID] = append(s.subscribers[sessionID], ch)
	s.mu.Unlock()

	unsubscribe := func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		subs := s.subscribers[sessionID]
		for i, c := range subs {
			if c == ch {
				s.subscribers[sessionID] = append(subs[:i], subs[i+1:]...)
				break
			}
		}
		if len(s.subscribers[sessionID]) == 0 {
			delete(s.subscribers, sessionID)
		}
		close(ch)
	}
	return ch, unsubscribe
}

// Replay returns every event recorded for sessionID after afterSeq, for
// an SSE client's reconnect-and-catch-up path.
func (s *Service) Replay(ctx context.Context, sessionID string, afterSeq int64) ([]SessionEvent, error) {
	return s.repo.ListSince(ctx, sessionID, afterSeq)
}

// SubscriberCount reports how many live SSE connections are watching
// sessionID, for /api/events/connections/count-style monitoring.
func (s *Service) SubscriberCount(sessionID string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.subscribers[sessionID])
}
