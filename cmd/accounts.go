package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"meshwallet/utils"
)

var accountsKeysPath string

var accountsCmd = &cobra.Command{
	Use:   "accounts",
	Short: "List the accounts derived from a keys file",
	RunE: func(cmd *cobra.Command, args []string) error {
		keypairs, err := loadKeypairs(accountsKeysPath)
		if err != nil {
			return err
		}
		if len(keypairs) == 0 {
			fmt.Println("(empty)")
			return nil
		}

		for _, kp := range keypairs {
			addr, err := utils.DeriveAddress(kp.PublicKey)
			if err != nil {
				return err
			}
			name := kp.DisplayName
			if name == "" {
				name = "-"
			}
			fmt.Printf("%s\t%s\n", addr, name)
		}
		return nil
	},
}

func init() {
	accountsCmd.Flags().StringVar(&accountsKeysPath, "keys", "keys.txt", "Path to keys file")
	rootCmd.AddCommand(accountsCmd)
}
