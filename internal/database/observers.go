package database

import (
	"context"
	"time"

	"eco-loop-rewards-go/internal/models"
	"eco-loop-rewards-go/internal/store"

	"go.uber.org/zap"
)

const (
	notifyQueueSize = 256
	observerTimeout = 10 * time.Second
)

// commitBatch is one committed unit of work queued for observers. A batch
// with a done channel and no transactions is a flush marker.
type commitBatch struct {
	ctx  context.Context
	txs  []models.Transaction
	done chan struct{}
}

// AddObserver registers o to be told about every committed ledger transaction.
// Observers run on a single background worker in commit order, so a slow
// mirror or broker never holds up the caller that posted the entry.
func (s *Service) AddObserver(o store.CommitObserver) {
	s.observersMu.Lock()
	defer s.observersMu.Unlock()
	s.observers = append(s.observers, o)
}

func (s *Service) startNotifier() {
	s.notify = make(chan commitBatch, notifyQueueSize)
	s.notifyDone = make(chan struct{})
	go s.runNotifier()
}

func (s *Service) runNotifier() {
	defer close(s.notifyDone)
	for batch := range s.notify {
		if batch.done != nil {
			close(batch.done)
			continue
		}

		s.observersMu.RLock()
		observers := append([]store.CommitObserver(nil), s.observers...)
		s.observersMu.RUnlock()

		ctx, cancel := context.WithTimeout(batch.ctx, observerTimeout)
		for _, o := range observers {
			o.TransactionsCommitted(ctx, batch.txs)
		}
		cancel()
	}
}

// notifyCommitted queues txs for the observers. The request context only
// bounds the wait for queue space; delivery runs detached from it.
func (s *Service) notifyCommitted(ctx context.Context, txs ...*models.Transaction) {
	committed := make([]models.Transaction, 0, len(txs))
	for _, tx := range txs {
		if tx != nil {
			committed = append(committed, *tx)
		}
	}
	if len(committed) == 0 {
		return
	}

	s.observersMu.RLock()
	watched := len(s.observers) > 0
	s.observersMu.RUnlock()
	if !watched {
		return
	}

	s.notifyMu.RLock()
	defer s.notifyMu.RUnlock()
	if s.closed {
		return
	}

	select {
	case s.notify <- commitBatch{ctx: context.WithoutCancel(ctx), txs: committed}:
	case <-ctx.Done():
		ids := make([]string, 0, len(committed))
		for _, tx := range committed {
			ids = append(ids, tx.Id)
		}
		zap.L().Warn("Dropped commit notification, observer queue full",
			zap.Strings("transaction_ids", ids),
			zap.Error(ctx.Err()))
	}
}

// flushObservers blocks until everything queued so far has been delivered.
func (s *Service) flushObservers() {
	s.notifyMu.RLock()
	if s.closed {
		s.notifyMu.RUnlock()
		return
	}
	done := make(chan struct{})
	s.notify <- commitBatch{done: done}
	s.notifyMu.RUnlock()
	<-done
}

func (s *Service) stopNotifier() {
	s.notifyMu.Lock()
	if s.closed || s.notify == nil {
		s.closed = true
		s.notifyMu.Unlock()
		return
	}
	s.closed = true
	close(s.notify)
	s.notifyMu.Unlock()
	<-s.notifyDone
}
