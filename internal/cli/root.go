// Package cli implements the dossier command-line interface.
package cli

import (
	"os"

	"github.com/spf13/cobra"
)

var (
	cfgFile string
	verbose bool
	jsonOut bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "dossier",
	Short: "Client, project and document approval service",
	Long: `dossier tracks clients and projects and routes their documents through a
four-stage approval pipeline:

  1. Automated Validation
  2. Compliance Review
  3. Legal Review
  4. Final Approval

Each stage has an SLA. Overdue workflows are escalated by a background
sweeper and surface at the top of approvers' queues.

Quick start:
  dossier config init             Write .dossier/dossier.yaml
  dossier migrate                 Create the database schema
  dossier serve                   Start the API server
  dossier workflow start ...      Submit a document for review
  dossier queue alice             Show alice's pending approvals`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	err := rootCmd.Execute()
	if err != nil {
		PrintError(os.Stderr, err)
	}
	return err
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is .dossier/dossier.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().BoolVar(&jsonOut, "json", false, "output as JSON")

	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newMigrateCmd())
	rootCmd.AddCommand(newSweepCmd())
	rootCmd.AddCommand(newWorkflowCmd())
	rootCmd.AddCommand(newQueueCmd())
	rootCmd.AddCommand(newConfigCmd())
	rootCmd.AddCommand(newVersionCmd())
}
