package display

import (
	"slices"
	"sync"

	"github.com/charmbracelet/log"
)

// LogSink writes events to a logger. Board and timer traffic goes to debug,
// scores and winners to info.
type LogSink struct {
	logger    *log.Logger
	formatter Formatter
}

// NewLogSink creates a sink that logs through logger.
func NewLogSink(logger *log.Logger, formatter Formatter) *LogSink {
	return &LogSink{
		logger:    logger.WithPrefix("display"),
		formatter: formatter,
	}
}

// OnEvent implements Sink.
func (s *LogSink) OnEvent(event Event) {
	line := s.formatter.Format(event)
	switch event.(type) {
	case ScoreChanged, WinnersAnnounced:
		s.logger.Info(line, "event", event.EventType())
	case CountdownChanged, ElapsedChanged, FreezeChanged:
		// Timer updates arrive every tick.
	default:
		s.logger.Debug(line, "event", event.EventType())
	}
}

// Recorder keeps every event it receives. It is safe for concurrent use and
// intended for tests and replays.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

// NewRecorder creates an empty recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// OnEvent implements Sink.
func (r *Recorder) OnEvent(event Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

// Events returns a copy of the recorded events in arrival order.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.events)
}

// OfType returns the recorded events of one type.
func (r *Recorder) OfType(eventType EventType) []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var matched []Event
	for _, event := range r.events {
		if event.EventType() == eventType {
			matched = append(matched, event)
		}
	}
	return matched
}

// Count returns how many events of a type were recorded.
func (r *Recorder) Count(eventType EventType) int {
	return len(r.OfType(eventType))
}

// Contains reports whether an event equal to want was recorded.
func (r *Recorder) Contains(want Event) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, event := range r.events {
		if eventsEqual(event, want) {
			return true
		}
	}
	return false
}

// Reset forgets every recorded event.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = nil
}

func eventsEqual(a, b Event) bool {
	if wa, ok := a.(WinnersAnnounced); ok {
		wb, ok := b.(WinnersAnnounced)
		return ok && slices.Equal(wa.Players, wb.Players)
	}
	if _, ok := b.(WinnersAnnounced); ok {
		return false
	}
	return a == b
}
