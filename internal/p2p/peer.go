package p2p

import (
	"bufio"
	"encoding/json"
	"fmt"
	"net"
	"sync"
	"time"
)

// peer is a connected remote node: one underlying net.Conn, shared by a
// dedicated reader goroutine and a mutex-guarded writer (spec.md §4.11's
// "one reader task per inbound connection, one writer per outbound
// connection" — here unified per-connection since every connection is
// both read and written).
type peer struct {
	conn    net.Conn
	address string // dial address if we dialed out, else the remote's ephemeral addr

	mu          sync.Mutex
	nodeID      string
	chainHeight uint64
	lastSeen    time.Time
	handshaked  bool

	writeMu sync.Mutex
	enc     *json.Encoder
}

func newPeer(conn net.Conn, address string) *peer {
	return &peer{
		conn:     conn,
		address:  address,
		lastSeen: time.Now(),
		enc:      json.NewEncoder(conn),
	}
}

// send writes one newline-terminated JSON envelope. Safe for concurrent use.
func (p *peer) send(senderID string, msgType MessageType, data any) error {
	p.writeMu.Lock()
	defer p.writeMu.Unlock()
	env := Envelope{Type: msgType, Data: data, SenderID: senderID, Timestamp: time.Now().Unix()}
	if err := p.enc.Encode(env); err != nil {
		return fmt.Errorf("p2p: send %s to %s: %w", msgType, p.address, err)
	}
	return nil
}

func (p *peer) touch(height uint64, nodeID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.lastSeen = time.Now()
	p.chainHeight = height
	if nodeID != "" {
		p.nodeID = nodeID
	}
	p.handshaked = true
}

func (p *peer) snapshot() (nodeID string, height uint64, lastSeen time.Time, handshaked bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.nodeID, p.chainHeight, p.lastSeen, p.handshaked
}

func (p *peer) close() {
	p.conn.Close()
}

// frameScanner wraps a bufio.Scanner sized for newline-delimited JSON
// frames up to 4MB (generous headroom over config.ConsensusRules.MaxBlockSize).
func frameScanner(conn net.Conn) *bufio.Scanner {
	s := bufio.NewScanner(conn)
	s.Buffer(make([]byte, 0, 64*1024), 4<<20)
	return s
}
