package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mash-protocol/mash-expose/pkg/catalog"
)

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Inspect or compile cluster catalogs",
}

var catalogShowCmd = &cobra.Command{
	Use:   "show [cluster]",
	Short: "Print the catalog, or the feature table of one cluster",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := setup(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		cat, err := a.catalog()
		if err != nil {
			return err
		}
		w := cmd.OutOrStdout()

		if len(args) == 0 {
			data, err := cat.Raw().YAML()
			if err != nil {
				return err
			}
			_, err = w.Write(data)
			return err
		}

		cl, err := lookupCluster(cat, args[0])
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "%s (0x%04X) revision %d\n", cl.Name, cl.ID, cl.Revision)
		fmt.Fprintf(w, "  base: %s\n", cl.Features.Base)
		for i, f := range cl.Features.List {
			if f.Name == "" && f.Code == "" {
				continue
			}
			fmt.Fprintf(w, "  bit %-2d %-4s %-24s %s\n", i, f.Code, f.Name, f.Value)
		}
		return nil
	},
}

var catalogCompileCmd = &cobra.Command{
	Use:   "compile <catalog.yaml> <catalog.cbor>",
	Short: "Compile a YAML catalog into the CBOR form",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cat, err := catalog.Load(args[0])
		if err != nil {
			return err
		}
		data, err := catalog.EncodeCBOR(cat)
		if err != nil {
			return err
		}
		if err := os.WriteFile(args[1], data, 0o644); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Compiled %d clusters (%d bytes) to %s\n", cat.Len(), len(data), args[1])
		return nil
	},
}

func init() {
	catalogCmd.AddCommand(catalogShowCmd, catalogCompileCmd)
	rootCmd.AddCommand(catalogCmd)
}
