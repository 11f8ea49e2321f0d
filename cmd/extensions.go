package cmd

import (
	"github.com/spf13/cobra"
)

var extensionsCmd = &cobra.Command{
	Use:   "extensions",
	Short: "Manage forum extensions",
	Long:  "Install extensions into the running forum, from the composer registry or from zip archives",
}

func init() {
	rootCmd.AddCommand(extensionsCmd)
}
