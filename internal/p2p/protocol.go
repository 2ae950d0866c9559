// Package p2p implements the node's peer-to-peer overlay: a raw-TCP,
// newline-delimited JSON wire protocol for identity handshakes, peer-list
// gossip, and block/transaction relay (spec.md §4.11).
package p2p

// DefaultPort is the overlay's default listen/dial port.
const DefaultPort = 26656

// DefaultMaxPeers bounds the peer table (spec.md §4.11's "max_peers (50)").
const DefaultMaxPeers = 50

// MessageType is the closed set of wire message kinds.
type MessageType string

const (
	MsgHandshake MessageType = "handshake"
	MsgPeers     MessageType = "peers"
	MsgPing      MessageType = "ping"
	MsgPong      MessageType = "pong"
	MsgGetBlock  MessageType = "get_block"
	MsgBlock     MessageType = "block"
	MsgTx        MessageType = "tx"
)

// Envelope is the wire frame every message is wrapped in: newline-terminated
// UTF-8 JSON, `{"type": str, "data": obj, "sender_id": str, "timestamp": int}`
// (spec.md §4.11's "P2P wire format").
type Envelope struct {
	Type      MessageType `json:"type"`
	Data      any         `json:"data"`
	SenderID  string      `json:"sender_id"`
	Timestamp int64       `json:"timestamp"`
}

// HandshakeData is the payload of a handshake message.
type HandshakeData struct {
	NodeID      string `json:"node_id"`
	ChainHeight uint64 `json:"chain_height"`
	Version     string `json:"version"`
}

// PeerInfo is one entry in a peers-gossip payload.
type PeerInfo struct {
	Address     string `json:"address"`
	NodeID      string `json:"node_id"`
	ChainHeight uint64 `json:"chain_height"`
}

// PeersData is the payload of a peers message.
type PeersData struct {
	Peers []PeerInfo `json:"peers"`
}

// GetBlockData is the payload of a get_block request.
type GetBlockData struct {
	Height uint64 `json:"height"`
}
