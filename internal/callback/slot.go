package callback

import "sync"

// Slot holds the single persistent registration of a callback source.
// Installing a new handle hands back the previous one so the source can
// send its destroy notification.
type Slot struct {
	mu     sync.Mutex
	handle uint64
	set    bool
}

// Replace installs handle and returns the handle it displaced.
func (s *Slot) Replace(handle uint64) (uint64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev, had := s.handle, s.set
	s.handle, s.set = handle, true
	return prev, had
}

// Current returns the installed handle.
func (s *Slot) Current() (uint64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.handle, s.set
}

// Clear empties the slot and returns the handle it held.
func (s *Slot) Clear() (uint64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev, had := s.handle, s.set
	s.handle, s.set = 0, false
	return prev, had
}
