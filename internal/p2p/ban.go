package p2p

import (
	"sync"
	"time"
)

// Misbehavior penalty weights. Grounded on the teacher's
// internal/p2p/banmanager.go scoring scheme, but scoped narrowly: spec.md
// §4.11 only treats a handshake mismatch and an invalid incoming block as
// real misbehavior ("malformed frames are logged and skipped, not grounds
// for banning"), so there is no PenaltyInvalidTx or generic-parse-error
// entry here the way the teacher's banmanager had one.
const (
	penaltyInvalidBlock     = 50
	penaltyHandshakeFailure = 100
	banThreshold            = 100
	banDuration             = 24 * time.Hour
)

type banRecord struct {
	score       int
	bannedUntil time.Time
}

// banTable tracks misbehavior scores per peer address and bans addresses
// that cross banThreshold, for banDuration. Address-keyed rather than the
// teacher's peer.ID-keyed table, since this overlay has no persistent
// cryptographic peer identity — only the "host:port" it was dialed at or
// accepted from.
type banTable struct {
	mu      sync.Mutex
	records map[string]*banRecord
}

func newBanTable() *banTable {
	return &banTable{records: make(map[string]*banRecord)}
}

// recordOffense adds penalty to address's score and bans it once the
// score crosses banThreshold.
func (b *banTable) recordOffense(address string, penalty int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	rec, ok := b.records[address]
	if !ok {
		rec = &banRecord{}
		b.records[address] = rec
	}
	rec.score += penalty
	if rec.score >= banThreshold {
		rec.bannedUntil = time.Now().Add(banDuration)
	}
}

// isBanned reports whether address is currently under an active ban.
func (b *banTable) isBanned(address string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	rec, ok := b.records[address]
	if !ok {
		return false
	}
	if rec.bannedUntil.IsZero() {
		return false
	}
	if time.Now().After(rec.bannedUntil) {
		return false
	}
	return true
}

// prune drops entries whose ban has expired. Entries that were never
// banned are kept.
func (b *banTable) prune() {
	b.mu.Lock()
	defer b.mu.Unlock()
	now := time.Now()
	for addr, rec := range b.records {
		if !rec.bannedUntil.IsZero() && now.After(rec.bannedUntil) {
			delete(b.records, addr)
		}
	}
}
