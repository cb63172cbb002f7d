package events

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/emergent-company/codeforge/domain/workflow"
)

func testService() *Service {
	return NewService(&Repository{db: nil}, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestService_FanOutDeliversToSubscriber(t *testing.T) {
	svc := testService()
	ch, unsubscribe := svc.Subscribe("session-1")
	defer unsubscribe()

	svc.fanOut("session-1", workflow.Event{Kind: workflow.EventWorkflowUpdate, Step: "plan", Turn: 1})

	select {
	case got := <-ch:
		require.Equal(t, workflow.EventWorkflowUpdate, got.Kind)
		require.Equal(t, "plan", got.Step)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for fanned-out event")
	}
}

func TestService_FanOutIgnoresOtherSessions(t *testing.T) {
	svc := testService()
	ch, unsubscribe := svc.Subscribe("session-1")
	defer unsubscribe()

	svc.fanOut("session-2", workflow.Event{Kind: workflow.EventAgentMessage})

	select {
	case <-ch:
		t.Fatal("subscriber for session-1 should not receive session-2 events")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestService_UnsubscribeStopsDelivery(t *testing.T) {
	svc := testService()
	ch, unsubscribe := svc.Subscribe("session-1")
	unsubscribe()

	svc.fanOut("session-1", workflow.Event{Kind: workflow.EventWorkflowComplete})

	_, ok := <-ch
	require.False(t, ok, "channel should be closed after unsubscribe")
}

func TestService_SubscriberCount(t *testing.T) {
	svc := testService()
	require.Equal(t, 0, svc.SubscriberCount("session-1"))

	_, unsubscribe := svc.Subscribe("session-1")
	require.Equal(t, 1, svc.SubscriberCount("session-1"))

	unsubscribe()
	require.Equal(t, 0, svc.SubscriberCount("session-1"))
}

func TestService_FanOutDropsWhenSubscriberFull(t *testing.T) {
	svc := testService()
	ch, unsubscribe := svc.Subscribe("session-1")
	defer unsubscribe()

	for i := 0; i < cap(ch)+5; i++ {
		svc.fanOut("session-1", workflow.Event{Kind: workflow.EventWorkflowUpdate, Turn: i})
	}

	require.Len(t, ch, cap(ch), "a slow subscriber should not block publishing")
}
