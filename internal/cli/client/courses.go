package client

import (
	"fmt"

	"github.com/spf13/cobra"
)

// CoursesCmd returns the courses command
func CoursesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "courses",
		Short: "List ingested courses",
		RunE:  runCourses,
	}

	AddAPIURLFlag(cmd)

	return cmd
}

type coursesResponse struct {
	TotalCourses int      `json:"total_courses"`
	CourseTitles []string `json:"course_titles"`
}

func runCourses(cmd *cobra.Command, args []string) error {
	api, err := NewAPIClientWithCmd(cmd)
	if err != nil {
		return err
	}

	var resp coursesResponse
	if err := api.do("GET", "/api/courses", nil, &resp); err != nil {
		return err
	}

	fmt.Printf("%d courses\n", resp.TotalCourses)
	for _, title := range resp.CourseTitles {
		fmt.Printf("  %s\n", title)
	}
	return nil
}
