package ratelimit

import (
	"context"
	"sync"
	"time"

	"go-vortexguard/pkg/logger"
	"go-vortexguard/pkg/models"
)

// MemoryStore keeps fixed windows per key in process memory. Counters are
// lost on restart.
type MemoryStore struct {
	mu      sync.Mutex
	records map[string]*models.RateLimitRecord
	now     func() time.Time

	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

var _ Store = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records: make(map[string]*models.RateLimitRecord),
		now:     time.Now,
		stopCh:  make(chan struct{}),
	}
}

// Admit starts a new window when none is live for key, otherwise counts the
// request unless the window is already full.
func (s *MemoryStore) Admit(_ context.Context, key string, limit int, window time.Duration) (bool, error) {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.records[key]
	if !ok || now.After(record.ResetTime) {
		s.records[key] = &models.RateLimitRecord{Count: 1, ResetTime: now.Add(window)}
		return true, nil
	}

	if record.Count >= limit {
		return false, nil
	}

	record.Count++
	return true, nil
}

// Sweep drops records whose window has ended and returns how many were removed.
func (s *MemoryStore) Sweep() int {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for key, record := range s.records {
		if now.After(record.ResetTime) {
			delete(s.records, key)
			removed++
		}
	}
	return removed
}

// Len returns the number of tracked keys.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

// StartSweeper runs Sweep every interval until Stop is called.
func (s *MemoryStore) StartSweeper(interval time.Duration) {
	if interval <= 0 {
		return
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				if removed := s.Sweep(); removed > 0 {
					logger.Log.Debugf("rate limit sweep removed %d expired records, %d remaining", removed, s.Len())
				}
			case <-s.stopCh:
				return
			}
		}
	}()
}

// Stop halts the sweeper. It is safe to call more than once.
func (s *MemoryStore) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopCh)
	})
	s.wg.Wait()
}
