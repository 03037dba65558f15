package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

const version = "1.0.0"

var (
	// cfgFile is the path to the YAML config file.
	cfgFile string

	// debug enables debug logging for all commands.
	debug bool

	// ledgerDSN overrides the ledger path; "none" disables the ledger.
	ledgerDSN string

	rootCmd = &cobra.Command{
		Use:   "newsbrief",
		Short: "Harvest NewsBrief search results into CSV tables",
		Long: `newsbrief pages through the article search of the Europe Media Monitor
NewsBrief portal and writes articles, entity tags and category tags as
gzip-compressed CSV files partitioned by language, date and page.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "",
		"config file (default is ~/.newsbrief/config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&ledgerDSN, "ledger", "",
		`path to the run ledger database, "none" to disable (NEWSBRIEF_LEDGER_DSN)`)

	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "newsbrief version %s\n", version)
		},
	})
	rootCmd.AddCommand(newCrawlCommand())
	rootCmd.AddCommand(newFeedCommand())
	rootCmd.AddCommand(newRunsCommand())
}

// Execute runs the root command, cancelling its context on SIGINT or
// SIGTERM.
func Execute() error {
	// Load .env early so environment defaults are visible to every command
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return rootCmd.ExecuteContext(ctx)
}

func main() {
	if err := Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
