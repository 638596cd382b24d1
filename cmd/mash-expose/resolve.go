package main

import (
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/mash-protocol/mash-expose/pkg/capability"
	"github.com/mash-protocol/mash-expose/pkg/catalog"
)

var resolveCmd = &cobra.Command{
	Use:   "resolve <cluster> <feature-map>",
	Short: "Show the capability set of a cluster for a feature map",
	Long: `Resolve computes, without a controller, which attributes are readable
and writable and which commands are implemented when a cluster reports the
given feature map. The cluster is a catalog name or a numeric ID; the
feature map accepts decimal, 0x hex or 0b binary notation.`,
	Args: cobra.ExactArgs(2),
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
		cl, err := lookupCluster(cat, args[0])
		if err != nil {
			return err
		}
		fm, err := strconv.ParseUint(args[1], 0, 32)
		if err != nil {
			return fmt.Errorf("invalid feature map %q", args[1])
		}
		return printResolution(cmd.OutOrStdout(), cl, uint32(fm))
	},
}

func init() {
	rootCmd.AddCommand(resolveCmd)
}

// lookupCluster accepts a cluster name or a numeric cluster ID.
func lookupCluster(cat *catalog.Catalog, arg string) (*catalog.Cluster, error) {
	if cl, ok := cat.ClusterByName(arg); ok {
		return cl, nil
	}
	if id, err := strconv.ParseUint(arg, 0, 32); err == nil {
		if cl, ok := cat.Cluster(uint32(id)); ok {
			return cl, nil
		}
	}
	return nil, fmt.Errorf("cluster %s: %w", arg, catalog.ErrClusterNotFound)
}

func printResolution(w io.Writer, cl *catalog.Cluster, featureMap uint32) error {
	set := cl.Features.Resolve(featureMap)

	fmt.Fprintf(w, "Cluster:  %s (0x%04X)\n", cl.Name, cl.ID)
	fmt.Fprintf(w, "Features: 0x%X %s\n", featureMap, cl.Features.Describe(featureMap))
	if unknown := cl.Features.UnknownBits(featureMap); unknown != 0 {
		fmt.Fprintf(w, "Ignored:  0x%X (no catalog entry)\n", unknown)
	}
	fmt.Fprintln(w)

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "KIND\tNAME\tACCESS")
	for _, attr := range cl.Attributes() {
		fmt.Fprintf(tw, "attribute\t%s\t%s\n", attr.Name, attributeAccess(attr, set))
	}
	for _, c := range cl.Commands() {
		state := "implemented"
		if !set.IsImplemented(c.ID) {
			state = "not implemented"
		}
		fmt.Fprintf(tw, "command\t%s\t%s\n", c.Name, state)
	}
	for _, e := range cl.Events() {
		fmt.Fprintf(tw, "event\t%s\t%s\n", e.Name, e.Priority)
	}
	return tw.Flush()
}

func attributeAccess(attr *catalog.AttributeMetadata, set capability.Set) string {
	read := attr.Access.CanRead() && set.IsReadable(attr.ID)
	write := attr.Access.CanWrite() && set.IsWritable(attr.ID)
	switch {
	case read && write:
		return "read/write"
	case read:
		return "read"
	case write:
		return "write"
	default:
		return "excluded"
	}
}
