package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/c360studio/semwire/catalog"
)

func listCmd() *cobra.Command {
	var (
		shallow bool
		index   string
	)

	cmd := &cobra.Command{
		Use:   "list [namespace]",
		Short: "List discoverable components",
		Long: `List prints the identifiers a registration pass over namespace would scan,
with their markers. Without a namespace every component is listed.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			namespace := ""
			if len(args) == 1 {
				namespace = args[0]
			}
			if index != "" {
				return listManifest(cmd, index, namespace, !shallow)
			}
			return listCatalog(cmd, catalog.Default, namespace, !shallow)
		},
	}

	cmd.Flags().BoolVar(&shallow, "shallow", false, "Exclude sub-namespaces")
	cmd.Flags().StringVar(&index, "index", "", "List a component manifest instead of the compiled-in catalog")

	return cmd
}

func listCatalog(cmd *cobra.Command, c *catalog.Catalog, namespace string, deep bool) error {
	ids, err := catalog.NewScanner(c).Scan(cmd.Context(), namespace, deep)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	for id := range ids {
		info, _ := c.Lookup(id)
		printEntry(out, id, "", info.Marker)
	}
	return nil
}

func listManifest(cmd *cobra.Command, path, namespace string, deep bool) error {
	m, err := catalog.ReadManifest(path)
	if err != nil {
		return err
	}
	entries := make(map[string]catalog.ManifestEntry, len(m.Components))
	for _, e := range m.Components {
		entries[e.Identifier] = e
	}

	ids, err := catalog.NewScanner(catalog.ManifestIndex{Path: path}).Scan(cmd.Context(), namespace, deep)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	for id := range ids {
		e := entries[id]
		printEntry(out, id, e.Kind, &e.Marker)
	}
	return nil
}

func printEntry(out io.Writer, id, kind string, m *catalog.Marker) {
	var b strings.Builder
	b.WriteString(id)
	if kind != "" {
		fmt.Fprintf(&b, " %s", kind)
	}
	if m != nil {
		if m.Key != "" {
			fmt.Fprintf(&b, " /%s", m.Key)
		}
		if m.DevOnly {
			b.WriteString(" [dev]")
		}
	}
	fmt.Fprintln(out, b.String())
}
