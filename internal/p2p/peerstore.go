package p2p

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/unicriumnetwork/Unicrium-BlockChain/internal/storage"
)

const (
	peerKeyPrefix     = "peer/"
	maxPersistedPeers = 500
)

// PeerRecord is a persisted, previously-seen peer address — grounded on
// the teacher's internal/p2p.PeerRecord shape, keyed by "host:port" instead
// of a libp2p peer ID since this overlay has no identity layer of its own
// beyond the node_id exchanged at handshake time.
type PeerRecord struct {
	Address  string `json:"address"`
	NodeID   string `json:"node_id"`
	LastSeen int64  `json:"last_seen"`
}

// PeerStore persists known peer addresses in a storage.DB, so a restarted
// node has more to dial than just its configured bootstrap seeds.
type PeerStore struct {
	db storage.DB
}

// NewPeerStore creates a PeerStore backed by db.
func NewPeerStore(db storage.DB) *PeerStore {
	return &PeerStore{db: db}
}

func peerStoreKey(address string) []byte {
	return []byte(peerKeyPrefix + address)
}

// Save persists rec, skipping silently once the store is at capacity for a
// genuinely new address (existing addresses are always refreshed).
func (ps *PeerStore) Save(rec PeerRecord) error {
	key := peerStoreKey(rec.Address)
	exists, err := ps.db.Has(key)
	if err != nil {
		return fmt.Errorf("p2p: check peer record: %w", err)
	}
	if !exists {
		count, err := ps.Count()
		if err != nil {
			return fmt.Errorf("p2p: count peer records: %w", err)
		}
		if count >= maxPersistedPeers {
			return nil
		}
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("p2p: marshal peer record: %w", err)
	}
	return ps.db.Put(key, data)
}

// LoadAll returns every persisted peer record.
func (ps *PeerStore) LoadAll() ([]PeerRecord, error) {
	var records []PeerRecord
	err := ps.db.ForEach([]byte(peerKeyPrefix), func(key, value []byte) error {
		var rec PeerRecord
		if err := json.Unmarshal(value, &rec); err != nil {
			return nil // corrupt record, skip
		}
		records = append(records, rec)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("p2p: iterate peer records: %w", err)
	}
	return records, nil
}

// Delete removes a persisted peer record.
func (ps *PeerStore) Delete(address string) error {
	return ps.db.Delete(peerStoreKey(address))
}

// PruneStale removes records not seen within threshold, returning the count pruned.
func (ps *PeerStore) PruneStale(threshold time.Duration) (int, error) {
	cutoff := time.Now().Add(-threshold).Unix()
	var stale []string
	err := ps.db.ForEach([]byte(peerKeyPrefix), func(key, value []byte) error {
		var rec PeerRecord
		if err := json.Unmarshal(value, &rec); err != nil || rec.LastSeen < cutoff {
			stale = append(stale, string(key))
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("p2p: iterate for prune: %w", err)
	}
	for _, k := range stale {
		if err := ps.db.Delete([]byte(k)); err != nil {
			return 0, fmt.Errorf("p2p: delete stale peer: %w", err)
		}
	}
	return len(stale), nil
}

// Count returns the number of persisted peer records.
func (ps *PeerStore) Count() (int, error) {
	count := 0
	err := ps.db.ForEach([]byte(peerKeyPrefix), func(key, value []byte) error {
		count++
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("p2p: count peer records: %w", err)
	}
	return count, nil
}
