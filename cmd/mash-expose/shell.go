package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/mash-protocol/mash-expose/cmd/mash-expose/interactive"
)

var shellCmd = &cobra.Command{
	Use:   "shell",
	Short: "Interactive console on the controller",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := setup(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		cat, err := a.catalog()
		if err != nil {
			return err
		}
		client, err := a.client(ctx)
		if err != nil {
			return err
		}
		r, err := a.renderer(client, cat, nil)
		if err != nil {
			return err
		}
		return interactive.New(client, cat, r, cmd.OutOrStdout()).Run(ctx)
	},
}

func init() {
	rootCmd.AddCommand(shellCmd)
}
