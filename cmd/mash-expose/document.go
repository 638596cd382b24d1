package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mash-protocol/mash-expose/pkg/devclient"
	"github.com/mash-protocol/mash-expose/pkg/render"
)

var docOutput string

var docCmd = &cobra.Command{
	Use:   "doc <node>",
	Short: "Print the OpenAPI document of one node",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := devclient.ParseNodeID(args[0])
		if err != nil {
			return fmt.Errorf("invalid node id %q", args[0])
		}

		a, err := setup(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		ctx, cancel := requestContext(cmd.Context(), a)
		defer cancel()

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

		doc, err := r.Document(ctx, id, render.DocumentInfo{
			Title:     fmt.Sprintf("%s node %d", a.cfg.Server.Title, id),
			Version:   version,
			ServerURL: a.cfg.Server.PublicURL,
		})
		if err != nil {
			return err
		}

		if docOutput == "" || docOutput == "-" {
			_, err = cmd.OutOrStdout().Write(doc)
			return err
		}
		return os.WriteFile(docOutput, doc, 0o644)
	},
}

func init() {
	docCmd.Flags().StringVarP(&docOutput, "output", "o", "", "write the document to this file")
	rootCmd.AddCommand(docCmd)
}
