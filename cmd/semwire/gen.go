package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"golang.org/x/mod/modfile"

	"github.com/c360studio/semwire/gen"
)

func genCmd() *cobra.Command {
	var (
		module string
		index  string
		check  bool
	)

	cmd := &cobra.Command{
		Use:   "gen [dir]",
		Short: "Generate component registration files",
		Long: `Gen scans the Go packages under dir (default ".") for //semwire:command and
//semwire:listener directives and writes one zz_semwire.go registration file
per package, removing generated files of packages that no longer declare any
components. The module path is read from dir/go.mod unless --module is set.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) == 1 {
				dir = args[0]
			}
			if module == "" {
				m, err := modulePath(dir)
				if err != nil {
					return err
				}
				module = m
			}

			components, err := gen.Scan(dir, module)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			if check {
				stale, err := gen.Stale(dir, components)
				if err != nil {
					return err
				}
				for _, path := range stale {
					fmt.Fprintf(out, "stale: %s\n", path)
				}
				if len(stale) > 0 {
					return fmt.Errorf("%d registration file(s) out of date; run semwire gen", len(stale))
				}
				return nil
			}

			written, removed, err := gen.Write(dir, components)
			for _, path := range written {
				fmt.Fprintf(out, "wrote %s\n", path)
			}
			for _, path := range removed {
				fmt.Fprintf(out, "removed %s\n", path)
			}
			if err != nil {
				return err
			}

			if index != "" {
				if err := gen.WriteIndex(index, module, components); err != nil {
					return err
				}
				fmt.Fprintf(out, "wrote %s (%d components)\n", index, len(components))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&module, "module", "", "Module path (default: read from go.mod)")
	cmd.Flags().StringVar(&index, "index", "", "Also write a component manifest to this path")
	cmd.Flags().BoolVar(&check, "check", false, "Only report registration files that are out of date")

	return cmd
}

// modulePath reads the module path declared in dir/go.mod.
func modulePath(dir string) (string, error) {
	path := filepath.Join(dir, "go.mod")
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read go.mod: %w", err)
	}
	module := modfile.ModulePath(data)
	if module == "" {
		return "", fmt.Errorf("%s declares no module path", path)
	}
	return module, nil
}
