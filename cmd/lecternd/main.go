package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/lectern-ai/lectern/internal/cli"
	"github.com/lectern-ai/lectern/internal/cli/admin"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "lecternd",
		Short: "Lectern daemon",
		Long:  "Lectern daemon for serving the course assistant API and ingesting course corpora",
	}

	cli.AddHelpJSONFlag(rootCmd)
	rootCmd.AddCommand(admin.ServeCmd())
	rootCmd.AddCommand(admin.IngestCmd())

	if len(os.Args) == 1 {
		os.Args = append(os.Args, "serve")
	}

	cli.CheckHelpJSON(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
