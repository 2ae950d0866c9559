// Unicrium full node daemon.
//
// Usage:
//
//	unicriumd [--produce --validator-key=...]   Run node
//	unicriumd --help                            Show help
package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/unicriumnetwork/Unicrium-BlockChain/config"
	"github.com/unicriumnetwork/Unicrium-BlockChain/internal/log"
	"github.com/unicriumnetwork/Unicrium-BlockChain/internal/node"
)

func main() {
	cfg, _, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	n, err := node.New(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if err := n.Start(); err != nil {
		fmt.Fprintf(os.Stderr, "Error starting node: %v\n", err)
		os.Exit(1)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Logger.Info().Msg("shutdown signal received, stopping node")
	n.Stop()
}
