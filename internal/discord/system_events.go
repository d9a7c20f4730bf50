package discord

type SystemEventType string

const (
	SystemEventRefreshCommands SystemEventType = "refresh_commands"
)

// SystemEvent is a request from outside the gateway loop, e.g. the dashboard.
type SystemEvent struct {
	Type    SystemEventType
	GuildID string
}

// EventBus is a small buffered queue of system events. Publishers never
// block.
type EventBus struct {
	ch chan SystemEvent
}

func NewEventBus(size int) *EventBus {
	if size <= 0 {
		size = 16
	}
	return &EventBus{ch: make(chan SystemEvent, size)}
}

// Publish enqueues evt and reports whether it was accepted. Events are
// dropped when the queue is full.
func (b *EventBus) Publish(evt SystemEvent) bool {
	select {
	case b.ch <- evt:
		return true
	default:
		return false
	}
}

func (b *EventBus) Events() <-chan SystemEvent {
	return b.ch
}
