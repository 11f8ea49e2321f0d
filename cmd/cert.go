package cmd

import (
	"github.com/spf13/cobra"
)

var certCmd = &cobra.Command{
	Use:   "cert",
	Short: "Manage TLS certificates",
	Long:  "Issue and renew TLS certificates for the forum's domain",
}

func init() {
	rootCmd.AddCommand(certCmd)
}
