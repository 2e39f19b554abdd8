package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/lectern-ai/lectern/internal/cli"
	"github.com/lectern-ai/lectern/internal/cli/client"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "lectern",
		Short: "Lectern client",
		Long:  "Client CLI for asking questions against a running lectern instance",
	}

	cli.AddHelpJSONFlag(rootCmd)
	rootCmd.AddCommand(client.AskCmd())
	rootCmd.AddCommand(client.CoursesCmd())
	rootCmd.AddCommand(client.ForgetCmd())

	cli.CheckHelpJSON(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
