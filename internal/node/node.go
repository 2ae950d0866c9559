// Package node wires every subsystem of a single Unicrium process together:
// storage, ledger, mempool, EVM adapter, PoS selector, slashing detector,
// block producer, and the P2P overlay. It is the explicit top-level value
// the binary constructs and drives — there is no process-wide mutable
// singleton (spec.md §9 "Global blockchain singleton").
package node

import (
	"context"
	"fmt"
	"sync"

	"github.com/unicriumnetwork/Unicrium-BlockChain/config"
	"github.com/unicriumnetwork/Unicrium-BlockChain/internal/consensus"
	"github.com/unicriumnetwork/Unicrium-BlockChain/internal/evm"
	"github.com/unicriumnetwork/Unicrium-BlockChain/internal/gas"
	"github.com/unicriumnetwork/Unicrium-BlockChain/internal/ledger"
	"github.com/unicriumnetwork/Unicrium-BlockChain/internal/log"
	"github.com/unicriumnetwork/Unicrium-BlockChain/internal/mempool"
	"github.com/unicriumnetwork/Unicrium-BlockChain/internal/p2p"
	"github.com/unicriumnetwork/Unicrium-BlockChain/internal/producer"
	"github.com/unicriumnetwork/Unicrium-BlockChain/internal/storage"
	"github.com/unicriumnetwork/Unicrium-BlockChain/pkg/block"
	"github.com/unicriumnetwork/Unicrium-BlockChain/pkg/crypto"
	"github.com/unicriumnetwork/Unicrium-BlockChain/pkg/tx"
	"github.com/unicriumnetwork/Unicrium-BlockChain/pkg/types"
)

// stateSnapshotKey is the state namespace's "state:current" document
// (spec.md §6): the full serialized ledger, replacing the in-memory
// ledger wholesale on restart.
var stateSnapshotKey = []byte("state:current")

// Node is one running process: its storage handles, in-memory ledger and
// mempool, and (if configured) a block producer and a P2P overlay.
// Callers hit the exported query/submission methods; the only mutator of
// committed chain state is the producer, reached either by its own loop or
// by the P2P layer's incoming-block path — both funnel through
// producer.Producer so there is exactly one commit gate (spec.md §5).
type Node struct {
	cfg     *config.Config
	genesis *config.Genesis

	blocksDB storage.DB
	stateDB  storage.DB
	peersDB  storage.DB

	ledger   *ledger.Ledger
	pool     *mempool.Pool
	policy   *mempool.Policy
	selector *consensus.Selector
	slashing *consensus.SlashingDetector
	evmAdap  *evm.EVM

	store    *producer.Store
	prod     *producer.Producer
	p2p      *p2p.Node
	validKey *crypto.PrivateKey

	mu      sync.Mutex
	cancel  context.CancelFunc
	stopped chan struct{}
}

// New opens storage, restores or initializes chain state, and wires every
// subsystem together. It does not start any background goroutine — call
// Start for that.
func New(cfg *config.Config) (*Node, error) {
	if err := log.Init(cfg.Log.Level, cfg.Log.JSON, cfg.Log.File); err != nil {
		return nil, fmt.Errorf("node: init logging: %w", err)
	}
	if err := config.EnsureDataDirs(cfg); err != nil {
		return nil, fmt.Errorf("node: ensure data dirs: %w", err)
	}

	genesis := config.GenesisFor(cfg.Network)

	blocksDB, err := storage.NewBadger(cfg.BlocksDir())
	if err != nil {
		return nil, fmt.Errorf("node: open blocks db: %w", err)
	}
	stateDB, err := storage.NewBadger(cfg.StateDir())
	if err != nil {
		return nil, fmt.Errorf("node: open state db: %w", err)
	}
	peersDB, err := storage.NewBadger(cfg.PeersDir())
	if err != nil {
		return nil, fmt.Errorf("node: open peers db: %w", err)
	}

	ledgerState := ledger.New()
	store := producer.NewStore(blocksDB)

	if _, err := store.GetBlockByHeight(0); err != nil {
		log.Logger.Info().Str("chain_id", genesis.ChainID).Msg("no existing chain, building genesis block")
		genesisBlock, totalMinted, err := producer.BuildGenesisBlock(genesis, ledgerState)
		if err != nil {
			return nil, fmt.Errorf("node: build genesis block: %w", err)
		}
		if err := store.Commit(genesisBlock, totalMinted); err != nil {
			return nil, fmt.Errorf("node: commit genesis block: %w", err)
		}
		if err := persistSnapshot(stateDB, ledgerState); err != nil {
			return nil, fmt.Errorf("node: persist genesis state: %w", err)
		}
	} else {
		tipHeight, _, _ := store.Tip()
		log.Logger.Info().Uint64("height", tipHeight).Msg("restoring chain from storage")
		data, err := stateDB.Get(stateSnapshotKey)
		if err != nil {
			return nil, fmt.Errorf("node: load state snapshot: %w", err)
		}
		if err := ledgerState.LoadSnapshot(data); err != nil {
			return nil, fmt.Errorf("node: restore state snapshot: %w", err)
		}
	}

	gasCfg := gas.DefaultConfig()
	gasCfg.MaxGasPerBlock = genesis.Protocol.Gas.BlockGasLimit
	gasCfg.MinGasPrice = genesis.Protocol.Gas.MinGasPrice
	gasCfg.DefaultGasPrice = genesis.Protocol.Gas.DefaultGasPrice

	n := &Node{
		cfg:      cfg,
		genesis:  genesis,
		blocksDB: blocksDB,
		stateDB:  stateDB,
		peersDB:  peersDB,
		ledger:   ledgerState,
		pool:     mempool.New(mempool.DefaultMaxSize, mempool.DefaultMaxAge),
		policy:   mempool.DefaultPolicy(),
		selector: consensus.NewSelector(genesis.Protocol.Consensus.MinValidatorStake),
		slashing: consensus.NewSlashingDetector(),
		store:    store,
		stopped:  make(chan struct{}),
	}
	n.policy.Gas = gasCfg

	var executor ledger.ContractExecutor
	if genesis.Protocol.Contract.Enabled {
		// Contract code/storage lives under its own key prefix inside the
		// state namespace rather than a fourth physical Badger directory —
		// internal/storage.PrefixDB isolates it the same way it would
		// isolate any other sub-keyspace sharing one underlying database.
		contractsNS := storage.NewPrefixDB(stateDB, []byte("contracts/"))
		interp := evm.NewReferenceInterpreter()
		n.evmAdap = evm.New(contractsNS, interp)
		executor = n.evmAdap
	}

	if cfg.Production.Enabled {
		if cfg.Production.ValidatorKey == "" {
			return nil, fmt.Errorf("node: production.enabled requires production.validatorkey")
		}
		priv, err := loadValidatorKey(cfg.Production.ValidatorKey)
		if err != nil {
			return nil, fmt.Errorf("node: load validator key: %w", err)
		}
		n.validKey = priv
	} else {
		// A non-producing node still needs a keypair to satisfy
		// Producer's constructor; it simply never wins IsMyTurn against
		// a validator set it isn't part of, and Run is never started for it.
		priv, err := crypto.GenerateKeyPair()
		if err != nil {
			return nil, fmt.Errorf("node: generate placeholder key: %w", err)
		}
		n.validKey = priv
	}

	n.prod = producer.New(n.ledger, n.pool, n.selector, n.slashing, executor, n.store,
		genesis.Protocol.Consensus, gasCfg, n.validKey, genesis.Protocol.Contract.VMVersion)
	n.prod.OnBlockProduced = n.onBlockCommitted

	if cfg.P2P.Enabled {
		n.p2p = p2p.NewNode(cfg.P2P, n.prod, n.store, n.pool, n.peersDB)
	}

	return n, nil
}

// onBlockCommitted runs after every durable commit, self-produced or
// received from a peer: it persists the post-commit ledger snapshot (so a
// restart resumes at an identical state_root, spec.md §8) and, if this
// node was the block's proposer, gossips it to peers.
func (n *Node) onBlockCommitted(blk *block.Block) {
	if err := persistSnapshot(n.stateDB, n.ledger); err != nil {
		log.Logger.Error().Err(err).Uint64("height", blk.Height()).Msg("failed to persist state snapshot")
	}
	if n.p2p != nil && blk.Header.Data.Proposer == n.prod.Address() {
		n.p2p.BroadcastBlock(blk)
	}
}

func persistSnapshot(db storage.DB, l *ledger.Ledger) error {
	data, err := l.Snapshot()
	if err != nil {
		return fmt.Errorf("snapshot ledger: %w", err)
	}
	return db.Put(stateSnapshotKey, data)
}

// Start launches the P2P overlay (if enabled) and the block producer loop
// (if this node is configured to produce). It returns once both are
// running; use Stop to shut down.
func (n *Node) Start() error {
	n.mu.Lock()
	defer n.mu.Unlock()

	tipHeight, _, _ := n.store.Tip()
	n.prod.RefreshValidators(tipHeight)

	if n.p2p != nil {
		if err := n.p2p.Start(); err != nil {
			return fmt.Errorf("node: start p2p: %w", err)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	n.cancel = cancel
	if n.cfg.Production.Enabled {
		go func() {
			defer close(n.stopped)
			n.prod.Run(ctx)
		}()
	} else {
		close(n.stopped)
	}

	log.Logger.Info().
		Str("network", string(n.cfg.Network)).
		Str("chain_id", n.genesis.ChainID).
		Bool("producing", n.cfg.Production.Enabled).
		Bool("p2p", n.cfg.P2P.Enabled).
		Msg("node started")
	return nil
}

// Stop signals the producer loop to exit and closes every storage handle.
func (n *Node) Stop() {
	n.mu.Lock()
	cancel := n.cancel
	n.mu.Unlock()
	if cancel != nil {
		cancel()
		<-n.stopped
	}
	if n.p2p != nil {
		n.p2p.Stop()
	}
	for name, db := range map[string]storage.DB{
		"blocks": n.blocksDB, "state": n.stateDB, "peers": n.peersDB,
	} {
		if err := db.Close(); err != nil {
			log.Logger.Error().Err(err).Str("db", name).Msg("error closing database")
		}
	}
}

// Height returns the current chain tip height.
func (n *Node) Height() uint64 {
	height, _, _ := n.store.Tip()
	return height
}

// Balance returns addr's spendable balance.
func (n *Node) Balance(addr types.Address) uint64 {
	return n.ledger.Balance(addr)
}

// Nonce returns addr's next expected transaction nonce.
func (n *Node) Nonce(addr types.Address) uint64 {
	return n.ledger.Nonce(addr)
}

// LoadBlock retrieves a committed block by height.
func (n *Node) LoadBlock(height uint64) (*block.Block, error) {
	return n.store.GetBlockByHeight(height)
}

// SubmitTransaction admits a signed transaction to the mempool: it must
// pass the node's admission policy (structural validation, size, gas
// limit), and carry a nonce no lower than the sender's current ledger
// nonce (spec.md §3's mempool invariant). Accepted transactions are
// gossiped to peers.
func (n *Node) SubmitTransaction(t *tx.Transaction) error {
	if err := n.policy.Check(t); err != nil {
		return err
	}
	if t.Payload.Nonce < n.ledger.Nonce(t.Payload.Sender) {
		return fmt.Errorf("node: tx %s nonce %d below sender's current nonce %d",
			t.ID(), t.Payload.Nonce, n.ledger.Nonce(t.Payload.Sender))
	}
	if err := n.pool.Add(t); err != nil {
		return err
	}
	if n.p2p != nil {
		n.p2p.BroadcastTx(t)
	}
	return nil
}

// PeerCount returns the number of live P2P connections, or 0 if P2P is
// disabled.
func (n *Node) PeerCount() int {
	if n.p2p == nil {
		return 0
	}
	return n.p2p.PeerCount()
}
