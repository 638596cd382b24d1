package main

import (
	"context"
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/mash-protocol/mash-expose/pkg/discovery"
)

var (
	discoverTimeout   time.Duration
	discoverInterface string
)

var discoverCmd = &cobra.Command{
	Use:   "discover",
	Short: "Find exposers on the local network",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, cancel := context.WithTimeout(cmd.Context(), discoverTimeout)
		defer cancel()

		b := discovery.NewMDNSBrowser(discovery.BrowserConfig{Interface: discoverInterface})
		services, err := b.Find(ctx)
		if err != nil {
			return err
		}

		w := cmd.OutOrStdout()
		if len(services) == 0 {
			fmt.Fprintln(w, "No exposers found")
			return nil
		}
		tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "INSTANCE\tVERSION\tCONTROLLER\tURL\tADDRESSES")
		for _, s := range services {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
				s.Instance, s.Version, s.Controller, s.URL(), strings.Join(s.Addresses, ","))
		}
		return tw.Flush()
	},
}

func init() {
	discoverCmd.Flags().DurationVarP(&discoverTimeout, "timeout", "t", discovery.DefaultBrowse, "how long to listen for announcements")
	discoverCmd.Flags().StringVar(&discoverInterface, "interface", "", "network interface to browse on")
	rootCmd.AddCommand(discoverCmd)
}
