package snapshot

import (
	"context"
	"sync"
	"time"

	"typedkv/internal/logger"
	"typedkv/internal/store"
)

// Saver writes the store to disk on a fixed interval and once more on shutdown
type Saver struct {
	path     string
	interval time.Duration
	db       store.DataStore

	mu       sync.Mutex
	lastSave time.Time
	lastErr  error
}

func NewSaver(path string, interval time.Duration, db store.DataStore) *Saver {
	return &Saver{path: path, interval: interval, db: db}
}

// Save writes a snapshot now. Concurrent calls are serialized.
func (s *Saver) Save() (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := Save(s.path, s.db)
	s.lastErr = err
	if err == nil {
		s.lastSave = time.Now()
	}
	return res, err
}

// LastSave returns the time of the last successful save and the last error
func (s *Saver) LastSave() (time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSave, s.lastErr
}

// Run saves every interval until ctx is done, then saves a final time.
// A non-positive interval only performs the final save.
func (s *Saver) Run(ctx context.Context) error {
	if s.interval > 0 {
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		logger.Infof("Background snapshot started with interval: %v", s.interval)
	loop:
		for {
			select {
			case <-ticker.C:
				if _, err := s.Save(); err != nil {
					logger.Errorf("Background snapshot failed: %v", err)
				}
			case <-ctx.Done():
				break loop
			}
		}
	} else {
		<-ctx.Done()
	}

	logger.Info("Writing final snapshot")
	_, err := s.Save()
	return err
}
