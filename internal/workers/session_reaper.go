// Package workers provides background job processors for the console.
package workers

import (
	"log"
	"sync"
	"time"

	"license-console-service/internal/services"
)

const (
	// DefaultReapInterval is the default interval between reap passes
	DefaultReapInterval = 10 * time.Minute

	// DefaultMaxSessionIdle is how long an untouched wizard session (and
	// its in-memory file bytes) is kept before being discarded
	DefaultMaxSessionIdle = 1 * time.Hour
)

// SessionReaper periodically discards abandoned wizard sessions so
// uploaded file bytes do not accumulate in memory.
type SessionReaper struct {
	wizard   *services.WizardService
	interval time.Duration
	maxIdle  time.Duration
	stopChan chan struct{}
	doneChan chan struct{}
	mu       sync.Mutex
	running  bool
}

// NewSessionReaper creates a new session reaper
func NewSessionReaper(wizard *services.WizardService, interval, maxIdle time.Duration) *SessionReaper {
	if interval == 0 {
		interval = DefaultReapInterval
	}
	if maxIdle == 0 {
		maxIdle = DefaultMaxSessionIdle
	}

	return &SessionReaper{
		wizard:   wizard,
		interval: interval,
		maxIdle:  maxIdle,
		stopChan: make(chan struct{}),
		doneChan: make(chan struct{}),
	}
}

// Start begins the reap loop
func (w *SessionReaper) Start() {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return
	}
	w.running = true
	w.mu.Unlock()

	go w.run()
	log.Printf("Wizard session reaper started with interval: %v", w.interval)
}

// Stop stops the reap loop and waits for it to finish
func (w *SessionReaper) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.running = false
	w.mu.Unlock()

	close(w.stopChan)
	<-w.doneChan
}

func (w *SessionReaper) run() {
	defer close(w.doneChan)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if reaped := w.wizard.ReapIdle(w.maxIdle); reaped > 0 {
				log.Printf("Reaped %d idle wizard sessions", reaped)
			}
		case <-w.stopChan:
			return
		}
	}
}
