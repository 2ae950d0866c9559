package p2p

import (
	"time"

	"github.com/unicriumnetwork/Unicrium-BlockChain/internal/log"
)

const (
	syncStartupDelay = 5 * time.Second
	syncPollInterval = 30 * time.Second
	syncRequestPace  = 100 * time.Millisecond
)

// syncLoop periodically compares this node's height against its peers'
// advertised heights and backfills missing blocks sequentially from the
// most-advanced peer, grounded on original_source/core/p2p.py's
// start_sync_loop/sync_blockchain (30s poll, 5s startup delay, ~100ms
// pacing between get_block requests).
func (n *Node) syncLoop() {
	defer n.wg.Done()

	select {
	case <-n.stopCh:
		return
	case <-time.After(syncStartupDelay):
	}

	ticker := time.NewTicker(syncPollInterval)
	defer ticker.Stop()

	n.syncOnce()
	for {
		select {
		case <-n.stopCh:
			return
		case <-ticker.C:
			n.syncOnce()
		}
	}
}

// syncOnce finds the furthest-ahead handshaked peer and, if it is ahead of
// our own tip, requests the missing blocks one height at a time.
func (n *Node) syncOnce() {
	localHeight, _, _ := n.store.Tip()

	n.mu.Lock()
	var best *peer
	var bestHeight uint64
	for _, p := range n.conns {
		_, height, _, handshaked := p.snapshot()
		if handshaked && height > bestHeight {
			best = p
			bestHeight = height
		}
	}
	n.mu.Unlock()

	if best == nil || bestHeight <= localHeight {
		return
	}

	log.P2P.Info().Uint64("local_height", localHeight).Uint64("peer_height", bestHeight).Msg("syncing blocks")
	for h := localHeight + 1; h <= bestHeight; h++ {
		select {
		case <-n.stopCh:
			return
		default:
		}
		if err := best.send(n.nodeID, MsgGetBlock, GetBlockData{Height: h}); err != nil {
			return
		}
		time.Sleep(syncRequestPace)
	}
}
