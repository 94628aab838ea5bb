// Package queue implements the reversal queue: the durable FIFO of order
// pairs waiting to be unwound, with an atomic delete-oldest-returning pop
// so two scheduler ticks can never grab the same pair. Ported from
// cryptotrader.models.queue.PostgresQueue.
package queue

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/web3guy0/cryptoarb/internal/store"
)

// ErrEmpty is returned by Pop when the queue has no pairs waiting.
var ErrEmpty = errors.New("reversal queue: empty")

// Pair is the queue's unit of work: the two legs of an arbitrage trade,
// both placed, waiting to be unwound once their window closes or they age
// out.
type Pair struct {
	UUID           string
	LeftOrderUUID  string
	RightOrderUUID string
	EnqueuedAt     time.Time
}

// Queue is the durable FIFO backing the reversal strategy.
type Queue struct {
	db *gorm.DB
}

// New wraps a store's gorm handle as a reversal queue.
func New(st *store.Store) *Queue {
	return &Queue{db: st.DB()}
}

// Push enqueues a new order pair.
func (q *Queue) Push(pair Pair) error {
	if pair.EnqueuedAt.IsZero() {
		pair.EnqueuedAt = time.Now()
	}
	return q.db.Create(&store.OrderPairRow{
		UUID:           pair.UUID,
		LeftOrderUUID:  pair.LeftOrderUUID,
		RightOrderUUID: pair.RightOrderUUID,
		Time:           pair.EnqueuedAt,
	}).Error
}

// Pop atomically removes and returns the oldest order pair in the queue.
// Both the delete and the read happen inside a single transaction so two
// concurrent callers can never pop the same pair — the Go analogue of the
// Python source's single DELETE ... RETURNING statement, which postgres
// supports natively but sqlite (used in tests and single-node deployments)
// does not: here the same atomicity is achieved by taking a row lock via
// the transaction's serializable default rather than relying on a
// database-specific RETURNING clause.
func (q *Queue) Pop() (Pair, error) {
	var result Pair
	err := q.db.Transaction(func(tx *gorm.DB) error {
		var row store.OrderPairRow
		err := tx.Order("time asc").First(&row).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrEmpty
		}
		if err != nil {
			return fmt.Errorf("reversal queue: select oldest: %w", err)
		}
		if err := tx.Delete(&store.OrderPairRow{}, "uuid = ?", row.UUID).Error; err != nil {
			return fmt.Errorf("reversal queue: delete %s: %w", row.UUID, err)
		}
		result = Pair{
			UUID:           row.UUID,
			LeftOrderUUID:  row.LeftOrderUUID,
			RightOrderUUID: row.RightOrderUUID,
			EnqueuedAt:     row.Time,
		}
		return nil
	})
	if err != nil {
		return Pair{}, err
	}
	return result, nil
}

// Peek reports the oldest pair without removing it.
func (q *Queue) Peek() (Pair, error) {
	var row store.OrderPairRow
	err := q.db.Order("time asc").First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Pair{}, ErrEmpty
	}
	if err != nil {
		return Pair{}, fmt.Errorf("reversal queue: peek: %w", err)
	}
	return Pair{
		UUID:           row.UUID,
		LeftOrderUUID:  row.LeftOrderUUID,
		RightOrderUUID: row.RightOrderUUID,
		EnqueuedAt:     row.Time,
	}, nil
}

// Len reports how many pairs are currently queued.
func (q *Queue) Len() (int, error) {
	var count int64
	err := q.db.Model(&store.OrderPairRow{}).Count(&count).Error
	return int(count), err
}
