// Package events carries post-write notifications between the record store
// adapter and the components that derive data from stored records.
package events

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// Op names the kind of write that happened.
type Op string

const (
	OpCreate Op = "create"
	OpUpdate Op = "update"
	OpDelete Op = "delete"
)

// RecordsChanged is published after every successful write.
type RecordsChanged struct {
	Table      string
	Op         Op
	RecordIDs  []int64
	StudentIDs []int64
}

// AffectsStudent reports whether the change touched the given student.
func (e RecordsChanged) AffectsStudent(id int64) bool {
	for _, sid := range e.StudentIDs {
		if sid == id {
			return true
		}
	}
	return false
}

// Handler reacts to a change.
type Handler func(ctx context.Context, evt RecordsChanged)

// Bus fans events out to subscribers synchronously, in subscription order.
type Bus struct {
	mu       sync.RWMutex
	handlers map[int]Handler
	order    []int
	nextID   int
	logger   *zap.Logger
}

// NewBus creates an empty bus.
func NewBus(logger *zap.Logger) *Bus {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Bus{handlers: make(map[int]Handler), logger: logger}
}

// Subscribe registers h and returns a function that removes it.
func (b *Bus) Subscribe(h Handler) func() {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := b.nextID
	b.nextID++
	b.handlers[id] = h
	b.order = append(b.order, id)

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			delete(b.handlers, id)
			for i, existing := range b.order {
				if existing == id {
					b.order = append(b.order[:i], b.order[i+1:]...)
					break
				}
			}
		})
	}
}

// Publish delivers evt to every subscriber. A panicking handler is logged
// and does not stop delivery to the rest. A nil bus drops the event.
func (b *Bus) Publish(ctx context.Context, evt RecordsChanged) {
	if b == nil {
		return
	}
	b.mu.RLock()
	handlers := make([]Handler, 0, len(b.order))
	for _, id := range b.order {
		handlers = append(handlers, b.handlers[id])
	}
	b.mu.RUnlock()

	for _, h := range handlers {
		b.deliver(ctx, h, evt)
	}
}

func (b *Bus) deliver(ctx context.Context, h Handler, evt RecordsChanged) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("event handler panicked",
				zap.String("table", evt.Table),
				zap.String("op", string(evt.Op)),
				zap.String("panic", fmt.Sprint(r)),
			)
		}
	}()
	h(ctx, evt)
}
