package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/debranko/obedio-yacht-crew-management-sub003/internal/models"

	"github.com/spf13/cobra"
)

var dutyCmd = &cobra.Command{
	Use:   "duty",
	Short: "Show who is on duty now",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		status, err := newClient().DutyStatus(cmd.Context())
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if jsonOutput {
			return printJSON(out, status)
		}
		fmt.Fprintf(out, "On duty:     %s\n", members(status.OnDuty))
		fmt.Fprintf(out, "Backup:      %s\n", members(status.Backup))
		fmt.Fprintf(out, "Next shift:  %s\n", members(status.NextShift))
		fmt.Fprintf(out, "Next backup: %s\n", members(status.NextBackup))
		return nil
	},
}

var requestsCmd = &cobra.Command{
	Use:   "requests",
	Short: "List active service requests",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		list, err := newClient().ListRequests(cmd.Context())
		if err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(cmd.OutOrStdout(), list)
		}
		return printRequests(cmd.OutOrStdout(), list)
	},
}

var acceptCrew string

var acceptCmd = &cobra.Command{
	Use:   "accept ID",
	Short: "Accept a pending request",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		req, err := newClient().Accept(cmd.Context(), args[0], acceptCrew)
		if err != nil {
			return err
		}
		return printRequest(cmd.OutOrStdout(), req)
	},
}

var delegateTo string

var delegateCmd = &cobra.Command{
	Use:   "delegate ID",
	Short: "Hand a request to another crew member",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		req, err := newClient().Delegate(cmd.Context(), args[0], delegateTo)
		if err != nil {
			return err
		}
		return printRequest(cmd.OutOrStdout(), req)
	},
}

var completedBy string

var completeCmd = &cobra.Command{
	Use:   "complete ID",
	Short: "Mark a request served",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		req, err := newClient().Complete(cmd.Context(), args[0], completedBy)
		if err != nil {
			return err
		}
		return printRequest(cmd.OutOrStdout(), req)
	},
}

var cancelCmd = &cobra.Command{
	Use:   "cancel ID",
	Short: "Cancel an open request",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		req, err := newClient().Cancel(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		return printRequest(cmd.OutOrStdout(), req)
	},
}

var historyFrom, historyTo string

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List completed requests",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		entries, err := newClient().History(cmd.Context(), historyFrom, historyTo)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if jsonOutput {
			return printJSON(out, entries)
		}
		tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tCABIN\tGUEST\tCOMPLETED BY\tCOMPLETED\tDURATION")
		for _, e := range entries {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
				e.Request.ID, e.Request.GuestCabin, e.Request.GuestName, e.CompletedBy,
				e.CompletedAt.Local().Format(time.DateTime),
				time.Duration(e.DurationSeconds)*time.Second)
		}
		return tw.Flush()
	},
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Follow realtime events and print the active set on every change",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c := newClient()
		out := cmd.OutOrStdout()
		if _, err := c.ListRequests(cmd.Context()); err != nil {
			return err
		}
		return c.Watch(cmd.Context(), func(ev models.Event) {
			fmt.Fprintf(out, "\n[%s] %s\n", ev.At.Local().Format(time.TimeOnly), ev.Type)
			_ = printRequests(out, c.Projection().View())
		})
	},
}

func init() {
	acceptCmd.Flags().StringVar(&acceptCrew, "crew", "", "Crew member accepting")
	_ = acceptCmd.MarkFlagRequired("crew")
	delegateCmd.Flags().StringVar(&delegateTo, "to", "", "Crew member taking over")
	_ = delegateCmd.MarkFlagRequired("to")
	completeCmd.Flags().StringVar(&completedBy, "by", "", "Crew member who served (defaults to the assignee)")
	historyCmd.Flags().StringVar(&historyFrom, "from", "", "First day, YYYY-MM-DD")
	historyCmd.Flags().StringVar(&historyTo, "to", "", "Last day, YYYY-MM-DD")

	rootCmd.AddCommand(dutyCmd, requestsCmd, acceptCmd, delegateCmd, completeCmd, cancelCmd, historyCmd, watchCmd)
}
