package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"meshwallet/client"
	"meshwallet/config"
	"meshwallet/db"
	"meshwallet/events"
	"meshwallet/utils"
	"meshwallet/wallet"
)

var (
	sendConfigPath string
	sendKeysPath   string
	sendFrom       string
	sendTo         string
	sendAmount     string
	sendGasPrice   uint64
)

var sendCmd = &cobra.Command{
	Use:   "send",
	Short: "Submit a spend transaction",
	RunE: func(cmd *cobra.Command, args []string) error {
		if sendTo == "" {
			return fmt.Errorf("--to is required")
		}
		if sendAmount == "" {
			return fmt.Errorf("--amount is required")
		}

		cfg, err := config.LoadWalletConfig(sendConfigPath)
		if err != nil {
			return err
		}
		keypairs, err := loadKeypairs(sendKeysPath)
		if err != nil {
			return err
		}
		if len(keypairs) == 0 {
			return fmt.Errorf("keys file %s holds no keys", sendKeysPath)
		}

		node, err := client.NewClient(client.Config{
			Endpoint:    cfg.Node.Endpoint,
			DialTimeout: time.Duration(cfg.Node.DialTimeoutSec) * time.Second,
		})
		if err != nil {
			return err
		}
		defer node.Close()

		provider, err := db.NewProvider(&db.ProviderConfig{
			Type:      cfg.Storage.Backend,
			Directory: cfg.Storage.Directory,
		})
		if err != nil {
			return err
		}
		defer provider.Close()

		manager := wallet.NewManager(wallet.Deps{
			Ledger:   node,
			Mesh:     node,
			Streams:  node,
			Provider: provider,
			Bus:      events.NewEventBus(),
		}, wallet.Options{})
		defer manager.Dispose()

		// default to the first key when --from is not given
		from := sendFrom
		if from == "" {
			from, err = utils.DeriveAddress(keypairs[0].PublicKey)
			if err != nil {
				return err
			}
		}

		for _, kp := range keypairs {
			addr, err := utils.DeriveAddress(kp.PublicKey)
			if err != nil {
				return err
			}
			if addr == from {
				if err := manager.AddAccount(kp); err != nil {
					return err
				}
			}
		}

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		tx, err := manager.PublishSpend(ctx, from, sendTo, utils.Uint256FromString(sendAmount), sendGasPrice)
		if err != nil {
			return err
		}

		fmt.Printf("submitted %s (%s)\n", tx.ID, tx.Status)
		return nil
	},
}

func init() {
	sendCmd.Flags().StringVar(&sendConfigPath, "config", "wallet.yml", "Path to wallet config file")
	sendCmd.Flags().StringVar(&sendKeysPath, "keys", "keys.txt", "Path to keys file")
	sendCmd.Flags().StringVar(&sendFrom, "from", "", "Sender address (defaults to the first key)")
	sendCmd.Flags().StringVar(&sendTo, "to", "", "Recipient address")
	sendCmd.Flags().StringVar(&sendAmount, "amount", "", "Amount to send (decimal)")
	sendCmd.Flags().Uint64Var(&sendGasPrice, "gas-price", 1, "Gas price")
	rootCmd.AddCommand(sendCmd)
}
