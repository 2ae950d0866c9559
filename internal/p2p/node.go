package p2p

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/unicriumnetwork/Unicrium-BlockChain/config"
	"github.com/unicriumnetwork/Unicrium-BlockChain/internal/log"
	"github.com/unicriumnetwork/Unicrium-BlockChain/internal/mempool"
	"github.com/unicriumnetwork/Unicrium-BlockChain/internal/producer"
	"github.com/unicriumnetwork/Unicrium-BlockChain/internal/storage"
	"github.com/unicriumnetwork/Unicrium-BlockChain/pkg/block"
	"github.com/unicriumnetwork/Unicrium-BlockChain/pkg/tx"
)

const protocolVersion = "1"

// Node is the node's P2P overlay: a TCP listener/dialer exchanging
// newline-delimited JSON envelopes with peers (spec.md §4.11). Grounded
// structurally on the teacher's internal/p2p.Node (an RWMutex-guarded peer
// table, one accept loop, one reader goroutine per connection) but built
// over raw net.Conn instead of libp2p streams, since spec.md's handshake
// and message set are a bespoke protocol no libp2p transport speaks.
type Node struct {
	nodeID   string
	cfg      config.P2PConfig
	producer *producer.Producer
	store    *producer.Store
	pool     *mempool.Pool
	peers    *PeerStore
	bans     *banTable

	mu          sync.Mutex
	conns       map[string]*peer // address -> live connection
	seenPending map[string]bool  // allocated but never read or written; relays are not de-duplicated

	listener net.Listener
	stopCh   chan struct{}
	wg       sync.WaitGroup
}

// NewNode creates a P2P overlay node. db backs the peer address cache.
func NewNode(cfg config.P2PConfig, prod *producer.Producer, store *producer.Store, pool *mempool.Pool, db storage.DB) *Node {
	if cfg.MaxPeers <= 0 {
		cfg.MaxPeers = DefaultMaxPeers
	}
	return &Node{
		nodeID:      generateNodeID(),
		cfg:         cfg,
		producer:    prod,
		store:       store,
		pool:        pool,
		peers:       NewPeerStore(db),
		bans:        newBanTable(),
		conns:       make(map[string]*peer),
		seenPending: make(map[string]bool),
		stopCh:      make(chan struct{}),
	}
}

// generateNodeID derives a short session identity from the host and
// current time (spec.md §4.11: "node_id (first 16 hex chars of
// sha256(hostname + time))"), mirroring original_source/core/p2p.py's
// _generate_node_id.
func generateNodeID() string {
	host, _ := os.Hostname()
	sum := sha256.Sum256([]byte(host + strconv.FormatInt(time.Now().UnixNano(), 10)))
	return hex.EncodeToString(sum[:])[:16]
}

// NodeID returns this node's session identity.
func (n *Node) NodeID() string {
	return n.nodeID
}

// Start opens the listener, dials the configured seeds (plus any
// previously-persisted peers), and launches the maintenance and sync
// loops. The bootstrap policy (dial seeds unconditionally vs. wait for
// inbound only) is left to the caller via cfg.Seeds: a node with a
// populated local chain passes no seeds and only accepts inbound dials,
// per spec.md §4.11's "genesis/bootstrap nodes listen only" rule.
func (n *Node) Start() error {
	addr := fmt.Sprintf("%s:%d", n.cfg.ListenAddr, n.cfg.Port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("p2p: listen on %s: %w", addr, err)
	}
	n.listener = ln
	log.P2P.Info().Str("node_id", n.nodeID).Str("addr", addr).Msg("p2p listening")

	n.wg.Add(1)
	go n.acceptLoop()

	for _, seed := range n.cfg.Seeds {
		seed := seed
		go n.dial(seed)
	}
	if persisted, err := n.peers.LoadAll(); err == nil {
		for _, rec := range persisted {
			rec := rec
			go n.dial(rec.Address)
		}
	}

	n.wg.Add(2)
	go n.maintenanceLoop()
	go n.syncLoop()

	return nil
}

// Stop closes the listener and every live connection.
func (n *Node) Stop() {
	close(n.stopCh)
	if n.listener != nil {
		n.listener.Close()
	}
	n.mu.Lock()
	for _, p := range n.conns {
		p.close()
	}
	n.mu.Unlock()
	n.wg.Wait()
}

func (n *Node) acceptLoop() {
	defer n.wg.Done()
	for {
		conn, err := n.listener.Accept()
		if err != nil {
			select {
			case <-n.stopCh:
				return
			default:
				log.P2P.Warn().Err(err).Msg("accept failed")
				continue
			}
		}
		n.wg.Add(1)
		go n.handleConnection(conn, conn.RemoteAddr().String())
	}
}

// dial connects out to address if room remains in the peer table and a
// connection isn't already open, then performs the handshake.
func (n *Node) dial(address string) {
	if n.bans.isBanned(address) {
		return
	}
	n.mu.Lock()
	_, already := n.conns[address]
	full := len(n.conns) >= n.cfg.MaxPeers
	n.mu.Unlock()
	if already || full {
		return
	}

	conn, err := net.DialTimeout("tcp", address, 5*time.Second)
	if err != nil {
		log.P2P.Debug().Err(err).Str("addr", address).Msg("dial failed")
		return
	}

	n.wg.Add(1)
	go n.handleConnection(conn, address)
}

// handleConnection registers the peer, performs the handshake, then reads
// frames until the connection drops. Runs as both the "reader" for this
// connection and its implicit writer driver.
func (n *Node) handleConnection(conn net.Conn, address string) {
	defer n.wg.Done()
	defer conn.Close()

	p := newPeer(conn, address)

	n.mu.Lock()
	if len(n.conns) >= n.cfg.MaxPeers {
		n.mu.Unlock()
		return
	}
	n.conns[address] = p
	n.mu.Unlock()

	defer func() {
		n.mu.Lock()
		delete(n.conns, address)
		n.mu.Unlock()
	}()

	height, _, _ := n.store.Tip()
	if err := p.send(n.nodeID, MsgHandshake, HandshakeData{NodeID: n.nodeID, ChainHeight: height, Version: protocolVersion}); err != nil {
		return
	}

	scanner := frameScanner(conn)
	for scanner.Scan() {
		select {
		case <-n.stopCh:
			return
		default:
		}
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var env Envelope
		if err := json.Unmarshal(line, &env); err != nil {
			// Malformed frame: logged and skipped, never grounds for
			// disconnecting or banning (spec.md §4.11).
			log.P2P.Debug().Err(err).Str("addr", address).Msg("malformed frame")
			continue
		}
		if env.SenderID == n.nodeID {
			// Self-handshake: we dialed back into ourselves through a seed
			// or NAT loopback (original_source/core/p2p.py rejects this
			// the same way).
			return
		}
		n.dispatch(p, address, env)
	}
}

func (n *Node) dispatch(p *peer, address string, env Envelope) {
	raw, err := json.Marshal(env.Data)
	if err != nil {
		return
	}

	switch env.Type {
	case MsgHandshake:
		var hs HandshakeData
		if err := json.Unmarshal(raw, &hs); err != nil {
			n.bans.recordOffense(address, penaltyHandshakeFailure)
			return
		}
		p.touch(hs.ChainHeight, hs.NodeID)
		n.peers.Save(PeerRecord{Address: address, NodeID: hs.NodeID, LastSeen: time.Now().Unix()})
		n.sendPeers(p)

	case MsgPeers:
		var pd PeersData
		if err := json.Unmarshal(raw, &pd); err != nil {
			return
		}
		n.mu.Lock()
		room := n.cfg.MaxPeers - len(n.conns)
		n.mu.Unlock()
		for i, info := range pd.Peers {
			if i >= room {
				break
			}
			if info.Address == "" {
				continue
			}
			go n.dial(info.Address)
		}

	case MsgPing:
		height, _, _ := n.store.Tip()
		p.send(n.nodeID, MsgPong, HandshakeData{NodeID: n.nodeID, ChainHeight: height, Version: protocolVersion})

	case MsgPong:
		var hs HandshakeData
		if err := json.Unmarshal(raw, &hs); err == nil {
			p.touch(hs.ChainHeight, hs.NodeID)
		}

	case MsgGetBlock:
		var req GetBlockData
		if err := json.Unmarshal(raw, &req); err != nil {
			return
		}
		blk, err := n.store.GetBlockByHeight(req.Height)
		if err != nil || blk == nil {
			return
		}
		p.send(n.nodeID, MsgBlock, blk)

	case MsgBlock:
		var blk block.Block
		if err := json.Unmarshal(raw, &blk); err != nil {
			log.P2P.Debug().Err(err).Str("addr", address).Msg("malformed block frame")
			return
		}
		if err := n.producer.CommitIncoming(&blk); err != nil {
			log.P2P.Warn().Err(err).Str("addr", address).Uint64("height", blk.Height()).Msg("rejected incoming block")
			n.bans.recordOffense(address, penaltyInvalidBlock)
			return
		}
		log.P2P.Info().Uint64("height", blk.Height()).Msg("committed block from peer")
		height, _, _ := n.store.Tip()
		existingNodeID, _, _, _ := p.snapshot()
		p.touch(height, existingNodeID)

	case MsgTx:
		var t tx.Transaction
		if err := json.Unmarshal(raw, &t); err != nil {
			return
		}
		if err := n.pool.Add(&t); err != nil {
			log.P2P.Debug().Err(err).Msg("rejected relayed tx")
		}
	}
}

func (n *Node) sendPeers(p *peer) {
	n.mu.Lock()
	infos := make([]PeerInfo, 0, len(n.conns))
	for addr, peerConn := range n.conns {
		if addr == p.address {
			continue
		}
		nodeID, height, _, handshaked := peerConn.snapshot()
		if !handshaked {
			continue
		}
		infos = append(infos, PeerInfo{Address: addr, NodeID: nodeID, ChainHeight: height})
		if len(infos) >= 20 {
			break
		}
	}
	n.mu.Unlock()
	p.send(n.nodeID, MsgPeers, PeersData{Peers: infos})
}

// BroadcastBlock relays a freshly-produced block to every connected peer.
func (n *Node) BroadcastBlock(blk *block.Block) {
	n.mu.Lock()
	peers := make([]*peer, 0, len(n.conns))
	for _, p := range n.conns {
		peers = append(peers, p)
	}
	n.mu.Unlock()
	for _, p := range peers {
		p.send(n.nodeID, MsgBlock, blk)
	}
}

// BroadcastTx relays a freshly-accepted transaction to every connected peer.
func (n *Node) BroadcastTx(t *tx.Transaction) {
	n.mu.Lock()
	peers := make([]*peer, 0, len(n.conns))
	for _, p := range n.conns {
		peers = append(peers, p)
	}
	n.mu.Unlock()
	for _, p := range peers {
		p.send(n.nodeID, MsgTx, t)
	}
}

// PeerCount returns the number of live connections.
func (n *Node) PeerCount() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.conns)
}

// maintenanceLoop evicts stale peers every 300s and pings every 60s
// (spec.md §4.11's "peer_maintenance": eviction threshold 300s, ping
// interval 60s).
func (n *Node) maintenanceLoop() {
	defer n.wg.Done()
	evictTicker := time.NewTicker(300 * time.Second)
	pingTicker := time.NewTicker(60 * time.Second)
	defer evictTicker.Stop()
	defer pingTicker.Stop()

	for {
		select {
		case <-n.stopCh:
			return
		case <-evictTicker.C:
			n.evictStale()
		case <-pingTicker.C:
			n.pingAll()
		}
	}
}

func (n *Node) evictStale() {
	cutoff := time.Now().Add(-300 * time.Second)
	n.mu.Lock()
	var stale []*peer
	for addr, p := range n.conns {
		_, _, lastSeen, _ := p.snapshot()
		if lastSeen.Before(cutoff) {
			stale = append(stale, p)
			delete(n.conns, addr)
		}
	}
	n.mu.Unlock()
	for _, p := range stale {
		p.close()
	}
	n.bans.prune()
}

func (n *Node) pingAll() {
	n.mu.Lock()
	peers := make([]*peer, 0, len(n.conns))
	for _, p := range n.conns {
		peers = append(peers, p)
	}
	n.mu.Unlock()
	for _, p := range peers {
		p.send(n.nodeID, MsgPing, struct{}{})
	}
}
