package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/debranko/obedio-yacht-crew-management-sub003/internal/client"
	"github.com/debranko/obedio-yacht-crew-management-sub003/internal/models"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	serverURL  string
	jsonOutput bool
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:          "crewctl",
	Short:        "Crew duty and service request console",
	SilenceUsage: true,
}

func init() {
	def := os.Getenv("CREWCTL_SERVER")
	if def == "" {
		def = "http://localhost:8080"
	}
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", def, "yachtcrew-core base URL (env CREWCTL_SERVER)")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Print raw JSON")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log client activity to stderr")
}

func newClient() *client.Client {
	logger := zap.NewNop()
	if verbose {
		if l, err := zap.NewDevelopment(); err == nil {
			logger = l
		}
	}
	return client.New(serverURL, logger)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func members(list []models.DutyMember) string {
	if len(list) == 0 {
		return "-"
	}
	names := make([]string, 0, len(list))
	for _, m := range list {
		names = append(names, m.Name)
	}
	return strings.Join(names, ", ")
}

func printRequests(w io.Writer, list []models.ServiceRequest) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSTATUS\tPRIORITY\tGUEST\tCABIN\tASSIGNED\tCREATED")
	for _, r := range list {
		assigned := r.AssignedTo
		if assigned == "" {
			assigned = "-"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			r.ID, r.Status, r.Priority, r.GuestName, r.GuestCabin, assigned,
			r.CreatedAt.Local().Format(time.DateTime))
	}
	return tw.Flush()
}

func printRequest(w io.Writer, r *models.ServiceRequest) error {
	if jsonOutput {
		return printJSON(w, r)
	}
	_, err := fmt.Fprintf(w, "%s %s (%s)\n", r.ID, r.Status, r.GuestCabin)
	return err
}
