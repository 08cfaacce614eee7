package state

import (
	"sync"
	"time"
)

// SessionState names the lifecycle position of a sync session.
type SessionState string

const (
	StateUninitialized  SessionState = "uninitialized"
	StateProbing        SessionState = "probing"
	StateSetupSandboxed SessionState = "setup-sandboxed"
	StateSetupManual    SessionState = "setup-manual"
	StateActive         SessionState = "active"
	StatePaused         SessionState = "paused"
	StateNeedsResetup   SessionState = "needs-resetup"
)

// Phase is the sub-cycle of an active session.
type Phase string

const (
	PhaseIdle    Phase = "idle"
	PhasePending Phase = "pending"
	PhaseWriting Phase = "writing"
)

// SyncStatus is the status surface read by the UI and the control API.
type SyncStatus struct {
	IsEnabled        bool
	IsSetup          bool
	LastSync         time.Time // zero when no pass has completed this session
	Error            string
	SyncCount        int
	LastPassFailures int
	Backend          string
	State            SessionState
	Phase            Phase
}

// HasSynced reports whether LastSync is set.
func (s SyncStatus) HasSynced() bool {
	return !s.LastSync.IsZero()
}

// Active reports whether write passes may run.
func (s SyncStatus) Active() bool {
	return s.IsSetup && s.IsEnabled
}

// DefaultStatus is the status of a fresh session.
func DefaultStatus() SyncStatus {
	return SyncStatus{Backend: "none", State: StateUninitialized, Phase: PhaseIdle}
}

// Store coordinates concurrent updates to the status. Writers are the sync
// session; readers are the UI refresh loop and API subscribers.
type Store struct {
	mu     sync.RWMutex
	status SyncStatus
	init   bool

	subMu  sync.Mutex
	nextID int
	subs   map[int]chan SyncStatus
}

// Update applies fn to the status under the write lock and fans the result
// out to subscribers.
func (s *Store) Update(fn func(*SyncStatus)) SyncStatus {
	s.mu.Lock()
	s.ensureInit()
	fn(&s.status)
	snap := s.status
	s.mu.Unlock()

	s.broadcast(snap)
	return snap
}

// Reset restores DefaultStatus.
func (s *Store) Reset() SyncStatus {
	return s.Update(func(st *SyncStatus) { *st = DefaultStatus() })
}

// Snapshot returns a copy of the current status.
func (s *Store) Snapshot() SyncStatus {
	s.mu.RLock()
	if s.init {
		snap := s.status
		s.mu.RUnlock()
		return snap
	}
	s.mu.RUnlock()
	return DefaultStatus()
}

// Subscribe returns a channel that receives the latest status after every
// update. Slow readers only ever see the newest value. Call cancel to stop.
func (s *Store) Subscribe() (<-chan SyncStatus, func()) {
	ch := make(chan SyncStatus, 1)
	s.subMu.Lock()
	if s.subs == nil {
		s.subs = make(map[int]chan SyncStatus)
	}
	// Seed before registering so broadcast never finds the buffer full.
	ch <- s.Snapshot()
	id := s.nextID
	s.nextID++
	s.subs[id] = ch
	s.subMu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.subMu.Lock()
			delete(s.subs, id)
			s.subMu.Unlock()
			close(ch)
		})
	}
}

func (s *Store) broadcast(snap SyncStatus) {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	for _, ch := range s.subs {
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- snap:
		default:
		}
	}
}

func (s *Store) ensureInit() {
	if !s.init {
		s.status = DefaultStatus()
		s.init = true
	}
}
