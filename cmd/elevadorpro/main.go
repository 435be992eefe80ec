// Command elevadorpro serves the sales backend and inspects its seed and
// overlay stores.
package main

import (
	"os"

	"github.com/spf13/cobra"
)

var version = "dev" // set by the linker

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// newRootCmd builds the command tree. Tests create fresh instances.
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "elevadorpro",
		Short: "ElevadorPro sales backend",
		Long: `ElevadorPro serves the elevator sales dashboard API and the customer
order portal. Factory seed datasets are read from a directory or an S3
bucket; local edits live in an overlay store (sqlite by default) that
shadows them.`,
		Version:      version,
		SilenceUsage: true,
	}

	flags := cmd.PersistentFlags()
	flags.String("config", "", "config file (default is ./elevadorpro.yaml or the user config dir)")
	flags.Bool("debug", false, "enable debug logging")
	flags.String("seed-driver", "", `seed source driver ("fs", "s3")`)
	flags.String("data", "", "directory holding the seed JSON files")
	flags.String("seed-prefix", "", "key prefix of seed objects")
	flags.String("s3-bucket", "", "bucket holding seed objects")
	flags.String("s3-endpoint", "", "custom S3 endpoint (MinIO)")
	flags.String("store", "", `overlay store driver ("sqlite", "postgres", "memory")`)
	flags.String("sqlite-path", "", "sqlite overlay database file")
	flags.String("postgres-dsn", "", "postgres overlay connection string")
	flags.String("locale", "", `message language ("pt-BR", "en")`)

	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newSeedCmd())
	cmd.AddCommand(newOverlayCmd())
	cmd.AddCommand(newLoginCmd())
	cmd.AddCommand(newConfigCmd())
	return cmd
}
