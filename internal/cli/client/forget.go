package client

import (
	"fmt"

	"github.com/spf13/cobra"
)

// ForgetCmd returns the forget command
func ForgetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "forget <session-id>",
		Short: "Clear a conversation session",
		Args:  cobra.ExactArgs(1),
		RunE:  runForget,
	}

	AddAPIURLFlag(cmd)

	return cmd
}

func runForget(cmd *cobra.Command, args []string) error {
	api, err := NewAPIClientWithCmd(cmd)
	if err != nil {
		return err
	}

	if err := api.do("DELETE", "/api/sessions/"+args[0], nil, nil); err != nil {
		return err
	}

	fmt.Println("session cleared")
	return nil
}
