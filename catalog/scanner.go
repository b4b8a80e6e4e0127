package catalog

import (
	"context"
	"iter"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// Scanner enumerates identifiers under a namespace.
type Scanner struct {
	index Index
}

// NewScanner creates a scanner over an index.
func NewScanner(index Index) *Scanner {
	return &Scanner{index: index}
}

// Scan builds the index and returns the identifiers under namespace in sorted
// order. With deep set, identifiers from every sub-namespace are included;
// otherwise only types declared directly in namespace are.
//
// Index failures are returned as *ScanError before any identifier is produced.
// The returned sequence can be ranged over more than once.
func (s *Scanner) Scan(ctx context.Context, namespace string, deep bool) (iter.Seq[string], error) {
	if err := ValidateNamespace(namespace); err != nil {
		return nil, &ScanError{Namespace: namespace, Err: err}
	}

	ids, err := s.index.Identifiers(ctx)
	if err != nil {
		return nil, &ScanError{Namespace: namespace, Err: err}
	}

	pattern := namespacePattern(namespace, deep)
	return func(yield func(string) bool) {
		for _, id := range ids {
			if !matchIdentifier(pattern, id) {
				continue
			}
			if !yield(id) {
				return
			}
		}
	}, nil
}

// namespacePattern returns the doublestar pattern matching type paths
// (namespace/Name) under namespace.
func namespacePattern(namespace string, deep bool) string {
	suffix := "*"
	if deep {
		suffix = "**"
	}
	if namespace == "" {
		return suffix
	}
	return namespace + "/" + suffix
}

func matchIdentifier(pattern, identifier string) bool {
	namespace, name := SplitIdentifier(identifier)
	path := strings.TrimPrefix(namespace+"/"+name, "/")
	ok, err := doublestar.Match(pattern, path)
	return err == nil && ok
}
