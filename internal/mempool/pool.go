// Package mempool manages pending transactions waiting for block inclusion,
// ordered by per-sender nonce and globally by fee.
package mempool

import (
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/unicriumnetwork/Unicrium-BlockChain/pkg/tx"
	"github.com/unicriumnetwork/Unicrium-BlockChain/pkg/types"
)

// Mempool errors.
var (
	ErrAlreadyExists = errors.New("transaction already in mempool")
	ErrPoolFull      = errors.New("mempool is full")
)

// DefaultMaxSize and DefaultMaxAge mirror core/mempool.py's Mempool.__init__
// defaults (spec.md §4.5).
const (
	DefaultMaxSize = 10_000
	DefaultMaxAge  = time.Hour
)

// entry wraps a pooled transaction with its insertion time.
type entry struct {
	tx         *tx.Transaction
	txID       types.Hash
	insertedAt time.Time
}

// Pool holds unconfirmed transactions, indexed by id and by sender (each
// sender's list kept sorted by nonce).
type Pool struct {
	mu sync.RWMutex

	txs      map[types.Hash]*entry
	bySender map[types.Address][]types.Hash // nonce-sorted

	maxSize int
	maxAge  time.Duration

	newTx chan struct{} // non-blocking wake signal for the block producer
}

// New creates a Pool. maxSize <= 0 and maxAge <= 0 fall back to the
// protocol defaults.
func New(maxSize int, maxAge time.Duration) *Pool {
	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}
	if maxAge <= 0 {
		maxAge = DefaultMaxAge
	}
	return &Pool{
		txs:      make(map[types.Hash]*entry),
		bySender: make(map[types.Address][]types.Hash),
		maxSize:  maxSize,
		maxAge:   maxAge,
		newTx:    make(chan struct{}, 1),
	}
}

// NewTxSignal returns a channel that receives a value shortly after a
// transaction is admitted, so the block producer can wake early instead
// of waiting out its full polling interval.
func (p *Pool) NewTxSignal() <-chan struct{} {
	return p.newTx
}

func (p *Pool) signal() {
	select {
	case p.newTx <- struct{}{}:
	default:
	}
}

// Add admits a transaction: rejects duplicates; if the pool is full,
// evicts entries older than maxAge to make room, otherwise rejects.
func (p *Pool) Add(transaction *tx.Transaction) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	txID := transaction.ID()
	if _, exists := p.txs[txID]; exists {
		return ErrAlreadyExists
	}

	if len(p.txs) >= p.maxSize {
		if p.evictOldLocked() == 0 {
			return ErrPoolFull
		}
	}

	e := &entry{tx: transaction, txID: txID, insertedAt: time.Now()}
	p.txs[txID] = e
	p.insertSenderLocked(transaction.Payload.Sender, txID)

	p.signal()
	return nil
}

// insertSenderLocked inserts txID into the sender's nonce-sorted list.
// Must be called with p.mu held.
func (p *Pool) insertSenderLocked(sender types.Address, txID types.Hash) {
	list := p.bySender[sender]
	list = append(list, txID)
	sort.Slice(list, func(i, j int) bool {
		return p.txs[list[i]].tx.Payload.Nonce < p.txs[list[j]].tx.Payload.Nonce
	})
	p.bySender[sender] = list
}

// Remove removes a transaction by id.
func (p *Pool) Remove(txID types.Hash) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.removeLocked(txID)
}

func (p *Pool) removeLocked(txID types.Hash) {
	e, exists := p.txs[txID]
	if !exists {
		return
	}
	delete(p.txs, txID)

	sender := e.tx.Payload.Sender
	list := p.bySender[sender]
	for i, id := range list {
		if id == txID {
			list = append(list[:i], list[i+1:]...)
			break
		}
	}
	if len(list) == 0 {
		delete(p.bySender, sender)
	} else {
		p.bySender[sender] = list
	}
}

// RemoveConfirmed removes every transaction in txs (e.g. after a block
// commits) by id.
func (p *Pool) RemoveConfirmed(txs []*tx.Transaction) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, t := range txs {
		p.removeLocked(t.ID())
	}
}

// Has reports whether a transaction is already pooled.
func (p *Pool) Has(txID types.Hash) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	_, exists := p.txs[txID]
	return exists
}

// Get returns a pooled transaction by id, or nil.
func (p *Pool) Get(txID types.Hash) *tx.Transaction {
	p.mu.RLock()
	defer p.mu.RUnlock()
	e, exists := p.txs[txID]
	if !exists {
		return nil
	}
	return e.tx
}

// Count returns the number of pooled transactions.
func (p *Pool) Count() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.txs)
}

// BySender returns a sender's pooled transactions in nonce order.
func (p *Pool) BySender(sender types.Address) []*tx.Transaction {
	p.mu.RLock()
	defer p.mu.RUnlock()
	list := p.bySender[sender]
	out := make([]*tx.Transaction, len(list))
	for i, id := range list {
		out[i] = p.txs[id].tx
	}
	return out
}

// Senders returns every address with at least one pooled transaction, in
// no particular order. The block producer uses this to build the
// expectedNonces map GetReady needs without guessing at senders in advance.
func (p *Pool) Senders() []types.Address {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]types.Address, 0, len(p.bySender))
	for sender := range p.bySender {
		out = append(out, sender)
	}
	return out
}

// GetReady walks each sender's nonce-sorted list starting from
// expectedNonces[sender] (default 0), collecting transactions that form a
// contiguous nonce sequence and stopping at the first gap. The harvested
// set is then sorted by descending fee and truncated to max. Gapped-nonce
// transactions remain in the pool untouched (spec.md §4.5).
func (p *Pool) GetReady(expectedNonces map[types.Address]uint64, max int) []*tx.Transaction {
	p.mu.RLock()
	defer p.mu.RUnlock()

	var ready []*tx.Transaction
	for sender, txIDs := range p.bySender {
		expected := expectedNonces[sender]
		for _, id := range txIDs {
			candidate := p.txs[id].tx
			if candidate.Payload.Nonce != expected {
				break
			}
			ready = append(ready, candidate)
			expected++
		}
	}

	sort.Slice(ready, func(i, j int) bool {
		return ready[i].Payload.Fee > ready[j].Payload.Fee
	})

	if max >= 0 && len(ready) > max {
		ready = ready[:max]
	}
	return ready
}

// evictOldLocked removes every entry older than maxAge, returning the
// count evicted. Must be called with p.mu held.
func (p *Pool) evictOldLocked() int {
	now := time.Now()
	var stale []types.Hash
	for id, e := range p.txs {
		if now.Sub(e.insertedAt) > p.maxAge {
			stale = append(stale, id)
		}
	}
	for _, id := range stale {
		p.removeLocked(id)
	}
	return len(stale)
}
