package cmd

import (
	"context"
	"encoding/hex"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"meshwallet/client"
	"meshwallet/config"
	"meshwallet/db"
	"meshwallet/events"
	"meshwallet/exception"
	"meshwallet/logx"
	"meshwallet/monitoring"
	"meshwallet/wallet"
)

var (
	startConfigPath string
	startKeysPath   string
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Run the wallet sync daemon",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadWalletConfig(startConfigPath)
		if err != nil {
			return err
		}

		keypairs, err := loadKeypairs(startKeysPath)
		if err != nil {
			return err
		}

		monitoring.InitMetrics()
		if cfg.Metrics.ListenAddr != "" {
			mux := http.NewServeMux()
			monitoring.RegisterMetrics(mux)
			exception.SafeGo("metrics-server", func() {
				if err := http.ListenAndServe(cfg.Metrics.ListenAddr, mux); err != nil {
					logx.Error("METRICS", "Metrics server stopped:", err)
				}
			})
		}

		node, err := client.NewClient(client.Config{
			Endpoint:    cfg.Node.Endpoint,
			DialTimeout: time.Duration(cfg.Node.DialTimeoutSec) * time.Second,
		})
		if err != nil {
			return err
		}
		defer node.Close()

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		genesis, err := node.GenesisID(ctx)
		cancel()
		if err != nil {
			logx.Warn("START", fmt.Sprintf("Could not fetch genesis id: %v", err))
		} else {
			logx.Info("START", fmt.Sprintf("Connected to network genesis=%s", hex.EncodeToString(genesis)))
		}

		provider, err := db.NewProvider(&db.ProviderConfig{
			Type:      cfg.Storage.Backend,
			Directory: cfg.Storage.Directory,
		})
		if err != nil {
			return err
		}
		defer provider.Close()

		bus := events.NewEventBus()
		manager := wallet.NewManager(wallet.Deps{
			Ledger:   node,
			Mesh:     node,
			Streams:  node,
			Provider: provider,
			Bus:      bus,
		}, wallet.Options{
			PageSize:       cfg.Sync.PageSize,
			QueryRetries:   cfg.Sync.QueryRetries,
			RetryDelay:     time.Duration(cfg.Sync.RetryDelaySec) * time.Second,
			DebounceWindow: time.Duration(cfg.Sync.DebounceMs) * time.Millisecond,
		})
		defer manager.Dispose()

		manager.SetAccounts(keypairs)
		logx.Info("START", fmt.Sprintf("Wallet daemon up, tracking %d accounts", manager.AccountCount()))

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		logx.Info("START", "Shutting down")
		return nil
	},
}

func init() {
	startCmd.Flags().StringVar(&startConfigPath, "config", "wallet.yml", "Path to wallet config file")
	startCmd.Flags().StringVar(&startKeysPath, "keys", "keys.txt", "Path to keys file")
	rootCmd.AddCommand(startCmd)
}
