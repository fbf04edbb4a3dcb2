package shopping

import "context"

type Topic string

const (
	TopicListUpdated    Topic = "list-updated"
	TopicHistoryUpdated Topic = "history-updated"
)

// ListUpdated is the payload of TopicListUpdated: the full active list.
type ListUpdated struct {
	ActiveList ActiveList `json:"activeList"`
}

// HistoryUpdated is the payload of TopicHistoryUpdated: every history entry.
type HistoryUpdated struct {
	History []HistoryEntry `json:"history"`
}

// Publisher delivers full-state change notifications to connected clients.
// Delivery is best effort.
type Publisher interface {
	Publish(ctx context.Context, topic Topic, payload any) error
}

type noopPublisher struct{}

func (noopPublisher) Publish(context.Context, Topic, any) error { return nil }

// Metrics receives workflow observations. The zero implementation drops them.
type Metrics interface {
	ObserveArchive(decision GuardDecision)
	ObserveMutation(op string)
	ObserveVersionConflict(op string)
}

type noopMetrics struct{}

func (noopMetrics) ObserveArchive(GuardDecision) {}

func (noopMetrics) ObserveMutation(string) {}

func (noopMetrics) ObserveVersionConflict(string) {}
