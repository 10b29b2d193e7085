package main

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/ardanlabs/conf/v3"
	"github.com/ardanlabs/ledger/app/services/node/handlers"
	v1 "github.com/ardanlabs/ledger/app/services/node/handlers/v1"
	"github.com/ardanlabs/ledger/foundation/blockchain/genesis"
	"github.com/ardanlabs/ledger/foundation/blockchain/gossip"
	"github.com/ardanlabs/ledger/foundation/blockchain/peer"
	"github.com/ardanlabs/ledger/foundation/blockchain/signature"
	"github.com/ardanlabs/ledger/foundation/blockchain/state"
	"github.com/ardanlabs/ledger/foundation/blockchain/wallet"
	"github.com/ardanlabs/ledger/foundation/blockchain/worker"
	"github.com/ardanlabs/ledger/foundation/events"
	"github.com/ardanlabs/ledger/foundation/logger"
	"github.com/ardanlabs/ledger/foundation/nameservice"
	"github.com/ethereum/go-ethereum/crypto"
	"go.uber.org/zap"
)

// build is the git version of this program. It is set using build flags in the makefile.
var build = "develop"

func main() {

	// Construct a logger for startup. The configured logger replaces it once
	// the configuration is known.
	log, err := logger.New("NODE")
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	defer log.Sync()

	// Perform the startup and shutdown sequence.
	if err := run(log); err != nil {
		log.Errorw("startup", "ERROR", err)
		log.Sync()
		os.Exit(1)
	}
}

func run(log *zap.SugaredLogger) error {

	// =========================================================================
	// Configuration

	// This is all the configuration for the application and the default values.
	// Configuration values will be passed through the application as individual
	// values.
	cfg := struct {
		conf.Version
		Web struct {
			ReadTimeout     time.Duration `conf:"default:5s"`
			WriteTimeout    time.Duration `conf:"default:60s"`
			IdleTimeout     time.Duration `conf:"default:120s"`
			ShutdownTimeout time.Duration `conf:"default:20s"`
			DebugHost       string        `conf:"default:0.0.0.0:7080"`
			PublicHost      string        `conf:"default:0.0.0.0:8080"`
			PrivateHost     string        `conf:"default:0.0.0.0:9080"`
		}
		P2P struct {
			KnownPeers    []string      `conf:"default:0.0.0.0:9180"`
			RetryInterval time.Duration `conf:"default:5s"`
		}
		Genesis struct {
			File           string        `conf:"help:optional genesis file in json or yaml"`
			Difficulty     uint          `conf:"default:3"`
			MineRate       time.Duration `conf:"default:3s"`
			InitialBalance uint64        `conf:"default:500"`
			MiningReward   uint64        `conf:"default:10"`
			IssuerAddress  string        `conf:"default:blockchain-wallet"`
		}
		Miner struct {
			Name         string        `conf:"default:miner1"`
			MineInterval time.Duration `conf:"default:0s,help:mine the mempool on this interval when set"`
		}
		NameService struct {
			Folder string `conf:"default:zblock/accounts/"`
		}
		Log struct {
			File       string `conf:"help:optional log file rotated by size"`
			MaxSizeMB  int    `conf:"default:100"`
			MaxAgeDays int    `conf:"default:7"`
			MaxBackups int    `conf:"default:3"`
		}
	}{
		Version: conf.Version{
			Build: build,
			Desc:  "copyright information here",
		},
	}

	// Parse will set the defaults and then look for any overriding values
	// in environment variables and command line flags.
	const prefix = "NODE"
	help, err := conf.Parse(prefix, &cfg)
	if err != nil {
		if errors.Is(err, conf.ErrHelpWanted) {
			fmt.Println(help)
			return nil
		}
		return fmt.Errorf("parsing config: %w", err)
	}

	if cfg.Log.File != "" {
		fileLog, err := logger.NewWithFile(prefix, logger.FileConfig{
			Path:       cfg.Log.File,
			MaxSizeMB:  cfg.Log.MaxSizeMB,
			MaxAgeDays: cfg.Log.MaxAgeDays,
			MaxBackups: cfg.Log.MaxBackups,
		})
		if err != nil {
			return fmt.Errorf("constructing file logger: %w", err)
		}
		defer fileLog.Sync()
		log = fileLog
	}

	// =========================================================================
	// App Starting

	fmt.Println(`  _     _____ ____   ____ _____ ____    _   _  ___  ____  _____ `)
	fmt.Println(` | |   | ____|  _ \ / ___| ____|  _ \  | \ | |/ _ \|  _ \| ____|`)
	fmt.Println(` | |   |  _| | | | | |  _|  _| | |_) | |  \| | | | | | | |  _|  `)
	fmt.Println(` | |___| |___| |_| | |_| | |___|  _ <  | |\  | |_| | |_| | |___ `)
	fmt.Println(` |_____|_____|____/ \____|_____|_| \_\ |_| \_|\___/|____/|_____|`)
	fmt.Print("\n")

	log.Infow("starting service", "version", build)
	defer log.Infow("shutdown complete")

	// Display the current configuration to the logs.
	out, err := conf.String(&cfg)
	if err != nil {
		return fmt.Errorf("generating config for output: %w", err)
	}
	log.Infow("startup", "config", out)

	// =========================================================================
	// Name Service Support

	// The nameservice package provides name resolution for account addresses.
	// The names come from the file names in the zblock/accounts folder.
	ns, err := nameservice.New(cfg.NameService.Folder)
	if err != nil {
		return fmt.Errorf("unable to load account name service: %w", err)
	}

	// Logging the accounts for documentation in the logs.
	for account, name := range ns.Copy() {
		log.Infow("startup", "status", "nameservice", "name", name, "account", account)
	}

	// =========================================================================
	// Blockchain Support

	// The genesis values every node on the network must agree on.
	gen := genesis.Genesis{
		Difficulty:     cfg.Genesis.Difficulty,
		MineRate:       cfg.Genesis.MineRate,
		InitialBalance: cfg.Genesis.InitialBalance,
		MiningReward:   cfg.Genesis.MiningReward,
		IssuerAddress:  cfg.Genesis.IssuerAddress,
	}
	if cfg.Genesis.File != "" {
		if gen, err = genesis.Load(cfg.Genesis.File); err != nil {
			return fmt.Errorf("unable to load genesis file: %w", err)
		}
	}

	// Need to load the private key file for the configured miner so the
	// wallet can sign transactions and get credited with rewards.
	privateKey, err := loadKey(log, cfg.NameService.Folder, cfg.Miner.Name)
	if err != nil {
		return err
	}

	issuer, err := wallet.NewIssuer(gen.IssuerAddress)
	if err != nil {
		return fmt.Errorf("unable to construct issuer: %w", err)
	}

	// A peer set is a collection of known nodes in the network so the chain
	// and transactions can be shared.
	peerSet := peer.NewPeerSet()
	for _, host := range cfg.P2P.KnownPeers {
		peerSet.Add(peer.New(host), gossip.Outbound)
	}

	// The blockchain packages accept a function of this signature to allow the
	// application to log. Messages meant for the viewer are also sent to any
	// websocket client that is connected into the system through the events
	// package.
	evts := events.New("viewer:")
	ev := func(v string, args ...any) {
		s := fmt.Sprintf(v, args...)
		log.Infow(s, "traceid", "00000000-0000-0000-0000-000000000000")
		evts.Send(s)
	}

	// The state value represents the blockchain node and manages the chain,
	// the mempool and the wallet and provides an API for application support.
	st, err := state.New(state.Config{
		Genesis:    gen,
		Wallet:     wallet.New(privateKey, gen.InitialBalance),
		Issuer:     issuer,
		Host:       cfg.Web.PrivateHost,
		KnownPeers: peerSet,
		EvHandler:  ev,
	})
	if err != nil {
		return err
	}
	defer st.Shutdown()

	log.Infow("startup", "status", "wallet", "address", st.RetrievePublicKey(), "name", ns.Lookup(st.RetrievePublicKey()))

	// The worker package runs the mining workflow. The worker will register
	// itself with the state.
	worker.Run(st, cfg.Miner.MineInterval, ev)

	// The gossip package keeps the node in sync with its peers. The sync will
	// register itself with the state.
	sync := gossip.New(gossip.Config{
		State:         st,
		RetryInterval: cfg.P2P.RetryInterval,
		Path:          v1.SyncPath,
		EvHandler:     ev,
	})
	defer sync.Shutdown()

	// =========================================================================
	// Start Debug Service

	log.Infow("startup", "status", "debug v1 router started", "host", cfg.Web.DebugHost)

	// Construct the mux for the debug calls.
	debugMux := handlers.DebugMux(build, log, st)

	// Start the service listening for debug requests.
	// Not concerned with shutting this down with load shedding.
	go func() {
		if err := http.ListenAndServe(cfg.Web.DebugHost, debugMux); err != nil {
			log.Errorw("shutdown", "status", "debug v1 router closed", "host", cfg.Web.DebugHost, "ERROR", err)
		}
	}()

	// =========================================================================
	// Service Start/Stop Support

	// Make a channel to listen for an interrupt or terminate signal from the OS.
	// Use a buffered channel because the signal package requires it.
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	// Make a channel to listen for errors coming from the listener. Use a
	// buffered channel so the goroutine can exit if we don't collect this error.
	serverErrors := make(chan error, 1)

	// =========================================================================
	// Start Public Service

	log.Infow("startup", "status", "initializing V1 public API support")

	// Construct the mux for the public API calls.
	publicMux := handlers.PublicMux(handlers.MuxConfig{
		Shutdown: shutdown,
		Log:      log,
		State:    st,
		NS:       ns,
		Evts:     evts,
	})

	// Construct a server to service the requests against the mux.
	public := http.Server{
		Addr:         cfg.Web.PublicHost,
		Handler:      publicMux,
		ReadTimeout:  cfg.Web.ReadTimeout,
		WriteTimeout: cfg.Web.WriteTimeout,
		IdleTimeout:  cfg.Web.IdleTimeout,
		ErrorLog:     zap.NewStdLog(log.Desugar()),
	}

	// Start the service listening for api requests.
	go func() {
		log.Infow("startup", "status", "public api router started", "host", public.Addr)
		serverErrors <- public.ListenAndServe()
	}()

	// =========================================================================
	// Start Private Service

	log.Infow("startup", "status", "initializing V1 private API support")

	// Construct the mux for the node to node calls.
	privateMux := handlers.PrivateMux(handlers.MuxConfig{
		Shutdown: shutdown,
		Log:      log,
		State:    st,
		Sync:     sync,
	})

	// Construct a server to service the requests against the mux. Gossip
	// connections are long lived so no read or write timeouts are applied.
	private := http.Server{
		Addr:        cfg.Web.PrivateHost,
		Handler:     privateMux,
		IdleTimeout: cfg.Web.IdleTimeout,
		ErrorLog:    zap.NewStdLog(log.Desugar()),
	}

	// Start the service listening for peer requests.
	go func() {
		log.Infow("startup", "status", "private api router started", "host", private.Addr)
		serverErrors <- private.ListenAndServe()
	}()

	// Dial the known peers once the node can accept their connections.
	sync.Connect()

	// =========================================================================
	// Shutdown

	// Blocking main and waiting for shutdown.
	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)

	case sig := <-shutdown:
		log.Infow("shutdown", "status", "shutdown started", "signal", sig)
		defer log.Infow("shutdown", "status", "shutdown complete", "signal", sig)

		// Release any web sockets that are currently active.
		log.Infow("shutdown", "status", "shutdown web socket channels")
		evts.Shutdown()

		// Close the peer connections so the private API can drain.
		log.Infow("shutdown", "status", "shutdown peer sync")
		sync.Shutdown()

		// Give outstanding requests a deadline for completion.
		ctx, cancelPri := context.WithTimeout(context.Background(), cfg.Web.ShutdownTimeout)
		defer cancelPri()

		// Asking listener to shut down and shed load.
		log.Infow("shutdown", "status", "shutdown private API started")
		if err := private.Shutdown(ctx); err != nil {
			private.Close()
			return fmt.Errorf("could not stop private service gracefully: %w", err)
		}

		// Give outstanding requests a deadline for completion.
		ctx, cancelPub := context.WithTimeout(context.Background(), cfg.Web.ShutdownTimeout)
		defer cancelPub()

		// Asking listener to shut down and shed load.
		log.Infow("shutdown", "status", "shutdown public API started")
		if err := public.Shutdown(ctx); err != nil {
			public.Close()
			return fmt.Errorf("could not stop public service gracefully: %w", err)
		}
	}

	return nil
}

// loadKey reads the private key for the named account from the accounts
// folder. A node without a key file gets a new key that lives as long as
// the process.
func loadKey(log *zap.SugaredLogger, folder string, name string) (*ecdsa.PrivateKey, error) {
	path := filepath.Join(folder, name+".ecdsa")

	privateKey, err := crypto.LoadECDSA(path)
	switch {
	case err == nil:
		return privateKey, nil

	case errors.Is(err, fs.ErrNotExist):
		log.Infow("startup", "status", "no key file, generating an ephemeral key", "path", path)

		privateKey, err := signature.GenerateKey()
		if err != nil {
			return nil, fmt.Errorf("unable to generate private key: %w", err)
		}
		return privateKey, nil

	default:
		return nil, fmt.Errorf("unable to load private key for node: %w", err)
	}
}
