package persist

import (
	"context"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Recorder batches ledger entries off the game loop and flushes them to a
// SessionRepo from a single worker goroutine. A nil *Recorder is valid and
// discards everything, so callers never need to check whether the ledger
// is configured.
type Recorder struct {
	repo    SessionRepo
	entries chan LedgerEntry
	done    chan struct{}
	mu      sync.RWMutex
	closed  bool
	log     *zap.Logger
}

const maxBatch = 64

func NewRecorder(repo SessionRepo, queueSize int, log *zap.Logger) *Recorder {
	if repo == nil {
		return nil
	}
	if queueSize <= 0 {
		queueSize = 256
	}
	r := &Recorder{
		repo:    repo,
		entries: make(chan LedgerEntry, queueSize),
		done:    make(chan struct{}),
		log:     log,
	}
	go r.run()
	return r
}

// Opened records the start of a play session.
func (r *Recorder) Opened(sessionID string, localPort uint16, name string, entity uint64) {
	r.push(LedgerEntry{
		Kind:      EntryOpen,
		SessionID: sessionID,
		LocalPort: localPort,
		Name:      strings.ToValidUTF8(name, "\uFFFD"),
		Entity:    entity,
		At:        time.Now(),
	})
}

// Closed records the end of the newest open session for sessionID.
func (r *Recorder) Closed(sessionID, reason string) {
	r.push(LedgerEntry{
		Kind:      EntryClose,
		SessionID: sessionID,
		Reason:    strings.ToValidUTF8(reason, "\uFFFD"),
		At:        time.Now(),
	})
}

// Recent proxies to the repo. Returns nil when the ledger is disabled.
func (r *Recorder) Recent(ctx context.Context, limit int) ([]SessionRow, error) {
	if r == nil {
		return nil, nil
	}
	return r.repo.Recent(ctx, limit)
}

func (r *Recorder) push(e LedgerEntry) {
	if r == nil {
		return
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		return
	}
	select {
	case r.entries <- e:
	default:
		r.log.Warn("ledger queue full, entry dropped",
			zap.String("session", e.SessionID),
		)
	}
}

func (r *Recorder) run() {
	defer close(r.done)
	batch := make([]LedgerEntry, 0, maxBatch)
	for e := range r.entries {
		batch = append(batch[:0], e)
	fill:
		for len(batch) < maxBatch {
			select {
			case next, ok := <-r.entries:
				if !ok {
					break fill
				}
				batch = append(batch, next)
			default:
				break fill
			}
		}
		r.flush(batch)
	}
}

// flush applies batch in one transaction. If that fails, entries are
// retried one by one so a single bad entry only loses itself.
func (r *Recorder) flush(batch []LedgerEntry) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := r.repo.Apply(ctx, batch)
	if err == nil {
		return
	}
	if len(batch) == 1 {
		r.log.Error("ledger flush failed", zap.String("session", batch[0].SessionID), zap.Error(err))
		return
	}
	r.log.Warn("ledger batch failed, applying entries one by one", zap.Int("entries", len(batch)), zap.Error(err))
	for i := range batch {
		if err := r.repo.Apply(ctx, batch[i:i+1]); err != nil {
			r.log.Error("ledger entry dropped",
				zap.String("session", batch[i].SessionID),
				zap.Error(err),
			)
		}
	}
}

// Close drains pending entries, then closes the repo. Entries pushed after
// Close are dropped.
func (r *Recorder) Close() {
	if r == nil {
		return
	}
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	close(r.entries)
	r.mu.Unlock()

	<-r.done
	r.repo.Close()
}
