// Command node runs a single Bitcoin P2P protocol-core node: it dials any
// configured seed peers, listens for inbound connections, and drives the
// protocol engine over them until interrupted.
package main

import (
	"fmt"
	"log"
	"net"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/nakamoto-go/nakamoto/internal/chain"
	"github.com/nakamoto-go/nakamoto/internal/chain/boltchain"
	"github.com/nakamoto-go/nakamoto/internal/chain/memchain"
	"github.com/nakamoto-go/nakamoto/internal/clock"
	"github.com/nakamoto-go/nakamoto/internal/engine"
	"github.com/nakamoto-go/nakamoto/internal/reactor"
	"github.com/nakamoto-go/nakamoto/internal/wire"
)

func main() {
	app := &cli.App{
		Name:  "node",
		Usage: "run a Bitcoin P2P protocol-core node",
		Commands: []*cli.Command{
			runCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

// runCommand returns the 'run' command, the only one this CLI needs: the
// full configuration surface is network, listen address, seed peers and an
// optional persistent tree path, per spec.md §1's non-goal of a config-file
// loader.
func runCommand() *cli.Command {
	return &cli.Command{
		Name:  "run",
		Usage: "connect to seed peers and serve inbound connections",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "network", Value: "mainnet", Usage: "mainnet, testnet, regtest or signet"},
			&cli.StringFlag{Name: "listen", Value: ":8333", Usage: "address to accept inbound connections on"},
			&cli.StringFlag{Name: "seeds", Usage: "comma-separated list of host:port peers to dial on startup"},
			&cli.StringFlag{Name: "db", Usage: "bbolt file to persist the reference block tree in (in-memory if empty)"},
			&cli.BoolFlag{Name: "debug", Usage: "enable debug-level logging"},
		},
		Action: runNode,
	}
}

func runNode(c *cli.Context) error {
	network, err := parseNetwork(c.String("network"))
	if err != nil {
		return err
	}

	log, err := newLogger(c.Bool("debug"))
	if err != nil {
		return fmt.Errorf("node: build logger: %w", err)
	}
	defer log.Sync() //nolint:errcheck

	tree, closeTree, err := openTree(c.String("db"))
	if err != nil {
		return fmt.Errorf("node: open block tree: %w", err)
	}
	defer closeTree()

	cfg := engine.DefaultConfig(network)
	eng := engine.New(cfg, tree, clock.SystemSource{}, engine.NewSeededRNG(seedFromPID()), log.With(zap.String("component", "engine")))

	r := reactor.New(eng, network, log.With(zap.String("component", "reactor")), nil)

	listener, err := net.Listen("tcp", c.String("listen"))
	if err != nil {
		return fmt.Errorf("node: listen on %s: %w", c.String("listen"), err)
	}
	defer listener.Close()

	go acceptLoop(listener, r, log)

	for _, addr := range splitSeeds(c.String("seeds")) {
		if err := r.Dial(addr); err != nil {
			log.Warn("failed to dial seed peer", zap.String("addr", addr), zap.Error(err))
		}
	}

	runErr := make(chan error, 1)
	go func() { runErr <- r.Run() }()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-runErr:
		return err
	case <-sig:
		log.Info("shutting down")
		r.Close()
		return nil
	}
}

func acceptLoop(listener net.Listener, r *reactor.Reactor, log *zap.Logger) {
	for {
		conn, err := listener.Accept()
		if err != nil {
			log.Debug("listener closed", zap.Error(err))
			return
		}
		r.Accept(conn)
	}
}

func openTree(path string) (chain.BlockTree, func(), error) {
	genesis := chain.Hash{}
	if path == "" {
		return memchain.New(genesis), func() {}, nil
	}

	tree, err := boltchain.Open(path, genesis)
	if err != nil {
		return nil, nil, err
	}
	return tree, func() { tree.Close() }, nil
}

func newLogger(debug bool) (*zap.Logger, error) {
	cc := zap.NewProductionConfig()
	if debug {
		cc = zap.NewDevelopmentConfig()
		cc.DisableStacktrace = true
	}
	return cc.Build()
}

func parseNetwork(name string) (wire.Network, error) {
	switch strings.ToLower(name) {
	case "mainnet":
		return wire.Mainnet, nil
	case "testnet":
		return wire.Testnet, nil
	case "regtest":
		return wire.Regtest, nil
	case "signet":
		return wire.Signet, nil
	default:
		return 0, fmt.Errorf("node: unknown network %q", name)
	}
}

func splitSeeds(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, addr := range strings.Split(s, ",") {
		addr = strings.TrimSpace(addr)
		if addr != "" {
			out = append(out, addr)
		}
	}
	return out
}

func seedFromPID() int64 {
	return int64(os.Getpid())
}
