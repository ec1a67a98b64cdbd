// Package cmd holds the operator commands shipped next to the image
// service: minting upload tokens and applying the metadata schema.
package cmd

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var logger *zap.SugaredLogger

var rootCmd = &cobra.Command{
	Use:          "ivsctl",
	Short:        "Operator tooling for the image variant service",
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		_ = godotenv.Load()
	},
}

func Execute() {
	logger = zap.Must(zap.NewDevelopment()).Sugar()
	defer logger.Sync()

	if err := rootCmd.Execute(); err != nil {
		logger.Errorw("failed to execute command", "error", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(tokenCmd)
	rootCmd.AddCommand(migrateCmd)
}
