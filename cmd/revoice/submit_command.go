package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func newSubmitCommand(ctx *commandContext) *cobra.Command {
	var wait bool

	cmd := &cobra.Command{
		Use:   "submit <video-file> <target-lang>",
		Short: "Submit a video for localization",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			base, err := ctx.serverURL()
			if err != nil {
				return err
			}
			client := newAPIClient(base)

			accepted, err := client.submit(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s\nvideo_id: %s\nstatus:   %s%s\n",
				accepted.Message, accepted.VideoID, base, accepted.StatusURL)

			if !wait {
				return nil
			}
			return pollUntilTerminal(cmd, client, accepted.VideoID)
		},
	}

	cmd.Flags().BoolVar(&wait, "wait", false, "Poll until the job finishes")
	return cmd
}

func pollUntilTerminal(cmd *cobra.Command, client *apiClient, jobID string) error {
	lastStep := ""
	for {
		status, err := client.status(cmd.Context(), jobID)
		if err != nil {
			return err
		}
		switch status.Status {
		case "completed":
			if status.Result != nil {
				fmt.Fprintf(cmd.OutOrStdout(), "completed: %s\n", status.Result.VideoURI)
			} else {
				fmt.Fprintln(cmd.OutOrStdout(), "completed")
			}
			return nil
		case "failed":
			return fmt.Errorf("job failed: %s", status.Error)
		case "in_progress":
			if status.Step != lastStep {
				fmt.Fprintf(cmd.OutOrStdout(), "  %s...\n", status.Step)
				lastStep = status.Step
			}
		}

		select {
		case <-cmd.Context().Done():
			return cmd.Context().Err()
		case <-time.After(2 * time.Second):
		}
	}
}
