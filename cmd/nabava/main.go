// Command nabava runs the restock negotiation and chat insight service.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

var (
	dbPath string
	addr   string
)

var rootCmd = &cobra.Command{
	Use:   "nabava",
	Short: "Restock negotiation and business insight service",
	Long: `nabava tracks inventory uploaded as CSV, drafts restock inquiries to
suppliers for items below their minimum stock, walks each negotiation from
draft to placed order, and turns WhatsApp chat exports into business insights.

Commands:
  init      - create the database and the first admin account
  serve     - run the HTTP API (and the chat-log watcher when enabled)
  user add  - add an operator account`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&dbPath, "db", "d", "", "SQLite database path (default from NABAVA_DB_PATH)")
	serveCmd.Flags().StringVarP(&addr, "addr", "a", "", "listen address (default from NABAVA_ADDR)")

	rootCmd.AddCommand(initCmd, serveCmd, userCmd)
	userCmd.AddCommand(userAddCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
