package datesync

import (
	"errors"
	"fmt"
	"slices"
	"sync"
)

// ErrBusy is returned when a batch is started while another is processing
var ErrBusy = errors.New("a sync batch is already processing")

// ErrNotReset is returned when a batch is started before the previous
// complete batch has been reset
var ErrNotReset = errors.New("previous sync batch has not been reset")

// Phase is the lifecycle position of a sync batch
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseProcessing
	PhaseComplete
)

func (p Phase) String() string {
	switch p {
	case PhaseProcessing:
		return "processing"
	case PhaseComplete:
		return "complete"
	default:
		return "idle"
	}
}

// State is a snapshot of batch progress
type State struct {
	Phase     Phase
	Total     int
	Processed int
	Succeeded int
	Failed    int
}

// IsProcessing reports whether a batch is running
func (s State) IsProcessing() bool {
	return s.Phase == PhaseProcessing
}

// Percent returns the processed fraction in [0, 1]
func (s State) Percent() float64 {
	if s.Total == 0 {
		return 0
	}
	return float64(s.Processed) / float64(s.Total)
}

// Summary renders the result line shown after a batch
func (s State) Summary() string {
	return fmt.Sprintf("%d succeeded, %d failed", s.Succeeded, s.Failed)
}

// Reporter tracks progress of the current batch. It moves idle, then
// processing, then complete, and only returns to idle through Reset.
type Reporter struct {
	mu          sync.Mutex
	state       State
	subscribers []chan State
}

// NewReporter creates an idle reporter
func NewReporter() *Reporter {
	return &Reporter{}
}

// Subscribe returns a channel that receives a State after every change and
// a cancel func that detaches and closes it. Sends never block; a slow
// reader misses intermediate states.
func (r *Reporter) Subscribe() (<-chan State, func()) {
	ch := make(chan State, 16)
	r.mu.Lock()
	r.subscribers = append(r.subscribers, ch)
	r.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.subscribers = slices.DeleteFunc(r.subscribers, func(c chan State) bool { return c == ch })
			close(ch)
		})
	}
	return ch, cancel
}

// Start moves an idle reporter to processing with counters at zero
func (r *Reporter) Start(total int) error {
	if total <= 0 {
		return ErrNoFiles
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	switch r.state.Phase {
	case PhaseProcessing:
		return ErrBusy
	case PhaseComplete:
		return ErrNotReset
	}
	r.state = State{Phase: PhaseProcessing, Total: total}
	r.publish()
	return nil
}

// Record adds the outcomes of one chunk and completes the batch once every
// file has been processed
func (r *Reporter) Record(chunk []Outcome) State {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state.Phase != PhaseProcessing {
		return r.state
	}

	r.state.Processed += len(chunk)
	for _, o := range chunk {
		if o.Success {
			r.state.Succeeded++
		} else {
			r.state.Failed++
		}
	}
	if r.state.Processed >= r.state.Total {
		r.state.Phase = PhaseComplete
	}
	r.publish()
	return r.state
}

// Snapshot returns the current state
func (r *Reporter) Snapshot() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Reset returns the reporter to idle from any phase
func (r *Reporter) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.state = State{}
	r.publish()
}

// publish must be called with mu held
func (r *Reporter) publish() {
	for _, ch := range r.subscribers {
		select {
		case ch <- r.state:
		default:
		}
	}
}
