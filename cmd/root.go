package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"meshwallet/logx"
)

var rootCmd = &cobra.Command{
	Use:   "meshwallet",
	Short: "Wallet sync daemon CLI",
	Long:  "Command line interface for running and managing the meshwallet account synchronization daemon.",
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		logx.Error("CMD", "Command execution failed:", err)
		os.Exit(1)
	}
}
