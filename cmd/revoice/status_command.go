package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "status <video-id>",
		Short: "Show the status of a localization job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			base, err := ctx.serverURL()
			if err != nil {
				return err
			}
			status, err := newAPIClient(base).status(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			if asJSON {
				encoded, err := json.MarshalIndent(status, "", "  ")
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), string(encoded))
				return nil
			}

			out := cmd.OutOrStdout()
			switch status.Status {
			case "completed":
				if status.Result == nil {
					fmt.Fprintln(out, "completed")
					return nil
				}
				fmt.Fprintf(out, "completed\n  video:       %s\n  transcript:  %s\n  translation: %s\n",
					status.Result.VideoURI, truncate(status.Result.Transcript, 80), truncate(status.Result.Translation, 80))
			case "failed":
				fmt.Fprintf(out, "failed: %s\n", status.Error)
			case "in_progress":
				fmt.Fprintf(out, "in progress: %s\n", status.Step)
			default:
				fmt.Fprintln(out, status.Status)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the raw status payload")
	return cmd
}

func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit]) + "..."
}
