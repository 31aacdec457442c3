package selected

import (
	"errors"
	"sync"

	"github.com/hushwa3/WeatherAppSIA/internal/eventbus"
	"github.com/hushwa3/WeatherAppSIA/internal/models"
)

// Topic is the event bus topic the stream publishes on.
const Topic = "selected-location"

// ErrStreamClosed is returned when subscribing to a closed stream.
var ErrStreamClosed = errors.New("selected-location stream is closed")

// Stream is the observable "currently viewed location". It keeps the latest
// published value and replays it to new subscribers, so a late subscriber sees
// the same state an early one does. After Close no further values are
// emitted or accepted.
type Stream struct {
	bus eventbus.EventBus

	mu     sync.Mutex
	last   *models.Location
	closed bool
}

// NewStream creates a Stream on top of bus.
func NewStream(bus eventbus.EventBus) *Stream {
	return &Stream{bus: bus}
}

// Publish broadcasts loc to all current subscribers synchronously and records
// it as the latest value. Dropped silently once the stream is closed.
func (s *Stream) Publish(loc models.Location) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	l := loc
	s.last = &l
	s.mu.Unlock()

	s.bus.Publish(Topic, loc)
}

// Subscribe registers fn for future publishes and immediately replays the
// latest value when one exists. Returns an error only if the stream is closed.
func (s *Stream) Subscribe(fn func(models.Location)) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrStreamClosed
	}
	last := s.last
	s.mu.Unlock()

	if err := s.bus.Subscribe(Topic, fn); err != nil {
		return err
	}
	if last != nil {
		fn(*last)
	}
	return nil
}

// Unsubscribe removes a previously registered handler.
func (s *Stream) Unsubscribe(fn func(models.Location)) error {
	return s.bus.Unsubscribe(Topic, fn)
}

// Latest returns the most recently published location, if any.
func (s *Stream) Latest() (models.Location, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.last == nil {
		return models.Location{}, false
	}
	return *s.last, true
}

// Close terminates the stream. Subsequent publishes are dropped and new
// subscriptions rejected; the latest value remains readable via Latest.
func (s *Stream) Close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
}
