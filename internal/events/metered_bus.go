package events

import "context"

// MeteredBus wraps a Bus and reports each successful emit to a counter
// callback.
type MeteredBus struct {
	next    Bus
	observe func(name string)
}

// NewMeteredBus decorates the given bus. A nil observe callback makes the
// wrapper a pass-through.
func NewMeteredBus(next Bus, observe func(name string)) *MeteredBus {
	return &MeteredBus{next: next, observe: observe}
}

// Emit publishes through the wrapped bus and counts the event on success.
func (b *MeteredBus) Emit(ctx context.Context, name string, payload interface{}) error {
	if err := b.next.Emit(ctx, name, payload); err != nil {
		return err
	}
	if b.observe != nil {
		b.observe(name)
	}
	return nil
}
