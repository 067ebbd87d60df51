package mockinfer

import (
	"sync"
	"time"
)

// State manages the in-memory state for the mock inference server
type State struct {
	mu             sync.Mutex
	requestsServed int

	// Configuration for testing
	ttftDelay   time.Duration
	tokenGap    time.Duration
	failNext    int // Respond with an application error this many times
	malformNext int // Respond with an unparseable body this many times
	failMessage string
}

// NewState creates a new mock inference server state
func NewState() *State {
	return &State{
		ttftDelay:   10 * time.Millisecond,
		tokenGap:    2 * time.Millisecond,
		failMessage: "engine overloaded",
	}
}

// SetLatency configures the simulated first-token delay and per-token gap
func (s *State) SetLatency(ttft, gap time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ttftDelay = ttft
	s.tokenGap = gap
}

// Latency returns the current simulated delays
func (s *State) Latency() (ttft, gap time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ttftDelay, s.tokenGap
}

// FailNext makes the next n generate requests return an application error
func (s *State) FailNext(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failNext = n
}

// MalformNext makes the next n generate requests return an unparseable body
func (s *State) MalformNext(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.malformNext = n
}

// RequestsServed returns the total number of generate requests handled,
// including injected failures
func (s *State) RequestsServed() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.requestsServed
}

// failureMode values returned by takeRequest
const (
	modeOK        = ""
	modeAppError  = "error"
	modeMalformed = "malformed"
)

// takeRequest records one served request and consumes a pending injected
// failure, if any.
func (s *State) takeRequest() (mode string, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requestsServed++
	if s.failNext > 0 {
		s.failNext--
		return modeAppError, s.failMessage
	}
	if s.malformNext > 0 {
		s.malformNext--
		return modeMalformed, ""
	}
	return modeOK, ""
}
