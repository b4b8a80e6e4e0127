// Package gen finds //semwire directives in Go source and generates the
// catalog registrations and manifest index for them.
//
// A directive sits in the doc comment of a type declaration:
//
//	// PingCommand implements /ping.
//	//
//	//semwire:command ping
//	type PingCommand struct{ ... }
//
//	//semwire:listener dev
//	type EventTracer struct{ ... }
//
// The package must also declare a constructor named New<Type> that takes no
// parameters or one registration context parameter, and returns the type (or
// a pointer to it), optionally followed by an error.
package gen

import (
	"errors"
	"fmt"
	goast "go/ast"
	"go/parser"
	"go/token"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/c360studio/semwire/catalog"
)

// Directive prefix and kinds.
const (
	DirectivePrefix = "//semwire:"
	KindCommand     = "command"
	KindListener    = "listener"
)

// GeneratedFile is the name of the file written into each package.
const GeneratedFile = "zz_semwire.go"

// Component is one directive-annotated type.
type Component struct {
	Kind       string
	Package    string
	Dir        string
	ImportPath string
	Namespace  string
	Name       string
	Key        string
	DevOnly    bool

	Constructor  string
	Params       int
	ReturnsError bool

	Pos token.Position
}

// Identifier returns the catalog identifier of the component.
func (c Component) Identifier() string {
	return catalog.Identifier(c.Namespace, c.Name)
}

// Helper returns the catalog constructor helper matching the constructor shape.
func (c Component) Helper() string {
	switch {
	case c.Params == 0 && !c.ReturnsError:
		return "New"
	case c.Params == 0:
		return "NewE"
	case !c.ReturnsError:
		return "NewWith"
	default:
		return "NewWithE"
	}
}

// Marker returns the catalog marker the component is registered with.
func (c Component) Marker() catalog.Marker {
	return catalog.Marker{Key: c.Key, DevOnly: c.DevOnly}
}

// PosError is a directive or constructor problem at a source position.
type PosError struct {
	Pos token.Position
	Msg string
}

func (e *PosError) Error() string {
	return fmt.Sprintf("%s: %s", e.Pos, e.Msg)
}

type constructorInfo struct {
	params       int
	returnsError bool
	result       string
	pos          token.Position
}

type packageScan struct {
	name         string
	dir          string
	components   []Component
	constructors map[string]constructorInfo
}

// Scan parses every non-test Go file under root and returns the annotated
// components sorted by identifier. module is the import path of root.
// Directories named testdata or vendor, and those starting with "." or "_",
// are skipped. All directive errors are reported together.
func Scan(root, module string) ([]Component, error) {
	files, err := goFiles(root)
	if err != nil {
		return nil, err
	}

	fset := token.NewFileSet()
	packages := make(map[string]*packageScan)
	var errs []error

	for _, rel := range files {
		dir := path.Dir(rel)
		file, err := parser.ParseFile(fset, filepath.Join(root, filepath.FromSlash(rel)), nil, parser.ParseComments|parser.SkipObjectResolution)
		if err != nil {
			errs = append(errs, err)
			continue
		}

		pkg := packages[dir]
		if pkg == nil {
			pkg = &packageScan{name: file.Name.Name, dir: dir, constructors: make(map[string]constructorInfo)}
			packages[dir] = pkg
		}
		errs = append(errs, pkg.collect(fset, file)...)
	}

	var components []Component
	for _, pkg := range packages {
		for _, c := range pkg.components {
			ctor, ok := pkg.constructors["New"+c.Name]
			if !ok {
				errs = append(errs, &PosError{Pos: c.Pos, Msg: fmt.Sprintf("%s has no New%s constructor", c.Name, c.Name)})
				continue
			}
			if err := ctor.check(c); err != nil {
				errs = append(errs, err)
				continue
			}

			c.Constructor = "New" + c.Name
			c.Params = ctor.params
			c.ReturnsError = ctor.returnsError
			c.Dir = filepath.Join(root, filepath.FromSlash(pkg.dir))
			c.Namespace = namespaceOf(pkg.dir)
			c.ImportPath = importPathOf(module, pkg.dir)
			if err := catalog.ValidateNamespace(c.Namespace); err != nil {
				errs = append(errs, &PosError{Pos: c.Pos, Msg: err.Error()})
				continue
			}
			components = append(components, c)
		}
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	sort.Slice(components, func(i, j int) bool {
		return components[i].Identifier() < components[j].Identifier()
	})
	return components, nil
}

func (ctor constructorInfo) check(c Component) error {
	if ctor.params > 1 {
		return &PosError{Pos: ctor.pos, Msg: fmt.Sprintf("New%s takes %d parameters; at most one registration context is allowed", c.Name, ctor.params)}
	}
	if ctor.result != c.Name {
		return &PosError{Pos: ctor.pos, Msg: fmt.Sprintf("New%s must return %s or *%s", c.Name, c.Name, c.Name)}
	}
	return nil
}

// goFiles lists candidate source files relative to root, slash-separated.
func goFiles(root string) ([]string, error) {
	fsys := os.DirFS(root)
	matches, err := doublestar.Glob(fsys, "**/*.go")
	if err != nil {
		return nil, fmt.Errorf("glob %s: %w", root, err)
	}

	var files []string
	for _, m := range matches {
		if strings.HasSuffix(m, "_test.go") || path.Base(m) == GeneratedFile || skipDir(path.Dir(m)) {
			continue
		}
		if info, err := fs.Stat(fsys, m); err != nil || info.IsDir() {
			continue
		}
		files = append(files, m)
	}
	sort.Strings(files)
	return files, nil
}

// generatedFiles lists the registration files under root written by this
// generator, as absolute paths.
func generatedFiles(root string) ([]string, error) {
	fsys := os.DirFS(root)
	matches, err := doublestar.Glob(fsys, "**/"+GeneratedFile)
	if err != nil {
		return nil, fmt.Errorf("glob %s: %w", root, err)
	}

	var files []string
	for _, m := range matches {
		if skipDir(path.Dir(m)) {
			continue
		}
		data, err := fs.ReadFile(fsys, m)
		if err != nil || !strings.HasPrefix(string(data), generatedHeader) {
			continue
		}
		files = append(files, filepath.Join(root, filepath.FromSlash(m)))
	}
	sort.Strings(files)
	return files, nil
}

func skipDir(dir string) bool {
	if dir == "." {
		return false
	}
	for _, seg := range strings.Split(dir, "/") {
		if seg == "testdata" || seg == "vendor" || strings.HasPrefix(seg, ".") || strings.HasPrefix(seg, "_") {
			return true
		}
	}
	return false
}

func namespaceOf(dir string) string {
	if dir == "." {
		return ""
	}
	return dir
}

func importPathOf(module, dir string) string {
	if dir == "." {
		return module
	}
	return module + "/" + dir
}

// collect records directive-annotated types and New* functions of one file.
func (p *packageScan) collect(fset *token.FileSet, file *goast.File) []error {
	var errs []error
	for _, decl := range file.Decls {
		switch d := decl.(type) {
		case *goast.GenDecl:
			if d.Tok != token.TYPE {
				continue
			}
			for _, spec := range d.Specs {
				ts := spec.(*goast.TypeSpec)
				doc := ts.Doc
				if doc == nil && len(d.Specs) == 1 {
					doc = d.Doc
				}
				c, found, err := parseDirective(fset, doc)
				if err != nil {
					errs = append(errs, err)
					continue
				}
				if !found {
					continue
				}
				if ts.TypeParams != nil {
					errs = append(errs, &PosError{Pos: fset.Position(ts.Pos()), Msg: fmt.Sprintf("%s is generic", ts.Name.Name)})
					continue
				}
				c.Name = ts.Name.Name
				c.Package = p.name
				p.components = append(p.components, c)
			}

		case *goast.FuncDecl:
			if d.Recv != nil || !strings.HasPrefix(d.Name.Name, "New") || d.Type.TypeParams != nil {
				continue
			}
			p.constructors[d.Name.Name] = constructorOf(fset, d)
		}
	}
	return errs
}

func constructorOf(fset *token.FileSet, d *goast.FuncDecl) constructorInfo {
	info := constructorInfo{pos: fset.Position(d.Pos())}
	for _, field := range d.Type.Params.List {
		if len(field.Names) == 0 {
			info.params++
		} else {
			info.params += len(field.Names)
		}
	}

	results := d.Type.Results
	if results == nil || results.NumFields() == 0 || results.NumFields() > 2 {
		return info
	}
	if results.NumFields() == 2 {
		ident, ok := results.List[len(results.List)-1].Type.(*goast.Ident)
		if !ok || ident.Name != "error" {
			return info
		}
		info.returnsError = true
	}

	typ := results.List[0].Type
	if star, ok := typ.(*goast.StarExpr); ok {
		typ = star.X
	}
	if ident, ok := typ.(*goast.Ident); ok {
		info.result = ident.Name
	}
	return info
}

// parseDirective reads the //semwire: line of a doc comment, if any.
func parseDirective(fset *token.FileSet, doc *goast.CommentGroup) (Component, bool, error) {
	if doc == nil {
		return Component{}, false, nil
	}
	for _, comment := range doc.List {
		if !strings.HasPrefix(comment.Text, DirectivePrefix) {
			continue
		}
		pos := fset.Position(comment.Pos())
		fields := strings.Fields(strings.TrimPrefix(comment.Text, DirectivePrefix))
		if len(fields) == 0 {
			return Component{}, false, &PosError{Pos: pos, Msg: "empty directive"}
		}

		c := Component{Kind: fields[0], Pos: pos}
		args := fields[1:]
		switch c.Kind {
		case KindCommand:
			if len(args) == 0 {
				return Component{}, false, &PosError{Pos: pos, Msg: "command directive needs a command name"}
			}
			c.Key = strings.ToLower(args[0])
			args = args[1:]
		case KindListener:
		default:
			return Component{}, false, &PosError{Pos: pos, Msg: fmt.Sprintf("unknown directive kind %q", c.Kind)}
		}

		for _, arg := range args {
			if arg != "dev" {
				return Component{}, false, &PosError{Pos: pos, Msg: fmt.Sprintf("unknown directive option %q", arg)}
			}
			c.DevOnly = true
		}
		return c, true, nil
	}
	return Component{}, false, nil
}
