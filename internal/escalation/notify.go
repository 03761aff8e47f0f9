package escalation

import "github.com/Lexicoding-systems/Lexecon-sub000/internal/domain"

// notificationBufferSize bounds the in-process notification channel
// (spec §9 redesign note: "bounded channel with backpressure, never
// block the decision path").
const notificationBufferSize = 256

// Notifier delivers Notification events to whatever external transport
// subscribes, dropping the oldest buffered notification rather than
// blocking the caller when the channel is full.
type Notifier struct {
	ch chan domain.Notification
}

func newNotifier() *Notifier {
	return &Notifier{ch: make(chan domain.Notification, notificationBufferSize)}
}

// Subscribe returns the channel external transports read from.
func (n *Notifier) Subscribe() <-chan domain.Notification {
	return n.ch
}

// publish delivers note, dropping the single oldest buffered
// notification to make room rather than blocking if the channel is
// full (drop-oldest backpressure).
func (n *Notifier) publish(note domain.Notification) {
	select {
	case n.ch <- note:
		return
	default:
	}
	select {
	case <-n.ch:
	default:
	}
	select {
	case n.ch <- note:
	default:
	}
}
