package client

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// AskCmd returns the ask command
func AskCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: "Ask a question about the course corpus",
		Long:  "Send a question to the assistant and print the answer with its sources",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runAsk,
	}

	AddAPIURLFlag(cmd)
	cmd.Flags().StringP("session", "s", "", "Session ID to continue a conversation")
	cmd.Flags().Bool("show-session", false, "Print the session ID after the answer")

	return cmd
}

type askRequest struct {
	Query     string `json:"query"`
	SessionID string `json:"session_id,omitempty"`
}

type askSource struct {
	Label string `json:"label"`
	Link  string `json:"link,omitempty"`
}

type askResponse struct {
	Answer    string      `json:"answer"`
	Sources   []askSource `json:"sources"`
	SessionID string      `json:"session_id"`
}

func runAsk(cmd *cobra.Command, args []string) error {
	api, err := NewAPIClientWithCmd(cmd)
	if err != nil {
		return err
	}

	sessionID, _ := cmd.Flags().GetString("session")

	var resp askResponse
	err = api.do("POST", "/api/query", &askRequest{
		Query:     strings.Join(args, " "),
		SessionID: sessionID,
	}, &resp)
	if err != nil {
		return err
	}

	fmt.Println(resp.Answer)

	if len(resp.Sources) > 0 {
		fmt.Println()
		fmt.Println("Sources:")
		for _, s := range resp.Sources {
			if s.Link != "" {
				fmt.Printf("  %s (%s)\n", s.Label, s.Link)
			} else {
				fmt.Printf("  %s\n", s.Label)
			}
		}
	}

	if showSession, _ := cmd.Flags().GetBool("show-session"); showSession {
		fmt.Printf("\nSession: %s\n", resp.SessionID)
	}

	return nil
}
