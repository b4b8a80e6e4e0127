package gen

import (
	"bytes"
	"errors"
	"fmt"
	"go/format"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/c360studio/semwire/catalog"
)

// CatalogImportPath is the import path of the catalog package used by
// generated code.
const CatalogImportPath = "github.com/c360studio/semwire/catalog"

const generatedHeader = "// Code generated by semwire gen. DO NOT EDIT.\n\n"

// Render returns the gofmt'd registration source for one package's components.
func Render(pkg string, components []Component) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(generatedHeader)
	fmt.Fprintf(&buf, "package %s\n\n", pkg)
	fmt.Fprintf(&buf, "import %q\n\n", CatalogImportPath)
	buf.WriteString("func init() {\n")
	for _, c := range components {
		buf.WriteString("catalog.Register(catalog.TypeInfo{\n")
		fmt.Fprintf(&buf, "Namespace: %q,\n", c.Namespace)
		fmt.Fprintf(&buf, "Name: %q,\n", c.Name)
		buf.WriteString("Marker: " + markerLiteral(c.Marker()) + ",\n")
		fmt.Fprintf(&buf, "Constructor: catalog.%s(%s),\n", c.Helper(), c.Constructor)
		buf.WriteString("})\n")
	}
	buf.WriteString("}\n")

	src, err := format.Source(buf.Bytes())
	if err != nil {
		return nil, fmt.Errorf("format %s registrations: %w", pkg, err)
	}
	return src, nil
}

func markerLiteral(m catalog.Marker) string {
	switch {
	case m.Key != "" && m.DevOnly:
		return fmt.Sprintf("&catalog.Marker{Key: %q, DevOnly: true}", m.Key)
	case m.Key != "":
		return fmt.Sprintf("&catalog.Marker{Key: %q}", m.Key)
	case m.DevOnly:
		return "&catalog.Marker{DevOnly: true}"
	default:
		return "&catalog.Marker{}"
	}
}

// renderAll renders the registration file of every package directory,
// keyed by output path.
func renderAll(components []Component) (map[string][]byte, error) {
	byDir := make(map[string][]Component)
	for _, c := range components {
		byDir[c.Dir] = append(byDir[c.Dir], c)
	}

	files := make(map[string][]byte, len(byDir))
	for dir, cs := range byDir {
		if cs[0].ImportPath == CatalogImportPath {
			return nil, fmt.Errorf("%s: components cannot be declared in the catalog package", dir)
		}
		sort.Slice(cs, func(i, j int) bool { return cs[i].Name < cs[j].Name })

		src, err := Render(cs[0].Package, cs)
		if err != nil {
			return nil, err
		}
		files[filepath.Join(dir, GeneratedFile)] = src
	}
	return files, nil
}

// Write renders one GeneratedFile per package directory and removes the
// generated files under root whose package no longer declares components.
// Both path lists are sorted.
func Write(root string, components []Component) (written, removed []string, err error) {
	files, err := renderAll(components)
	if err != nil {
		return nil, nil, err
	}
	orphans, err := orphaned(root, files)
	if err != nil {
		return nil, nil, err
	}

	for path, src := range files {
		if err := os.WriteFile(path, src, 0644); err != nil {
			return nil, nil, fmt.Errorf("write %s: %w", path, err)
		}
		written = append(written, path)
	}
	sort.Strings(written)

	for _, path := range orphans {
		if err := os.Remove(path); err != nil {
			return written, removed, fmt.Errorf("remove %s: %w", path, err)
		}
		removed = append(removed, path)
	}
	return written, removed, nil
}

// Stale returns the registration files, sorted, that Write would change:
// files whose content differs, missing files, and generated files under root
// that no longer have components.
func Stale(root string, components []Component) ([]string, error) {
	files, err := renderAll(components)
	if err != nil {
		return nil, err
	}
	stale, err := orphaned(root, files)
	if err != nil {
		return nil, err
	}

	for path, want := range files {
		got, err := os.ReadFile(path)
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
		if !bytes.Equal(got, want) {
			stale = append(stale, path)
		}
	}
	sort.Strings(stale)
	return stale, nil
}

// orphaned returns the generated files under root that are not in files.
func orphaned(root string, files map[string][]byte) ([]string, error) {
	existing, err := generatedFiles(root)
	if err != nil {
		return nil, err
	}
	var orphans []string
	for _, path := range existing {
		if _, ok := files[path]; !ok {
			orphans = append(orphans, path)
		}
	}
	return orphans, nil
}

// WriteIndex writes the manifest index listing every component.
func WriteIndex(path, module string, components []Component) error {
	m := &catalog.Manifest{
		Version:    catalog.ManifestVersion,
		Module:     module,
		Components: make([]catalog.ManifestEntry, 0, len(components)),
	}
	for _, c := range components {
		m.Components = append(m.Components, catalog.ManifestEntry{
			Identifier: c.Identifier(),
			Kind:       c.Kind,
			Marker:     c.Marker(),
		})
	}
	return catalog.WriteManifest(path, m)
}
