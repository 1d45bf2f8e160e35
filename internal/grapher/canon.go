package grapher

import (
	"fmt"
	"path"
	"path/filepath"
	"strings"
)

// Defaults for the out-of-project canonicalization strategies.
var (
	DefaultPackageMarkers = []string{"site-packages", "dist-packages"}
	DefaultRuntimePrefix  = "python"
)

// PathStrategy maps an absolute module path to a project-relative,
// slash-separated path. ok is false when the strategy does not apply.
type PathStrategy func(absPath string) (rel string, ok bool)

// Canonicalizer turns module paths reported by the oracle into stable
// relative paths by trying its strategies in order.
type Canonicalizer struct {
	strategies []PathStrategy
}

// NewCanonicalizer returns a Canonicalizer for the project rooted at root.
// It tries, in order: the path relative to root, the suffix after the first
// packaging marker directory, and the suffix after the first directory whose
// name starts with runtimePrefix. Empty arguments select the defaults.
func NewCanonicalizer(root string, markers []string, runtimePrefix string) *Canonicalizer {
	if len(markers) == 0 {
		markers = DefaultPackageMarkers
	}
	if runtimePrefix == "" {
		runtimePrefix = DefaultRuntimePrefix
	}
	return &Canonicalizer{
		strategies: []PathStrategy{
			InProject(root),
			AfterMarker(markers...),
			AfterPrefix(runtimePrefix),
		},
	}
}

// Relativize returns the canonical relative path of absPath, or an error
// wrapping ErrUnresolvablePath when no strategy applies.
func (c *Canonicalizer) Relativize(absPath string) (string, error) {
	for _, s := range c.strategies {
		if rel, ok := s(absPath); ok {
			return rel, nil
		}
	}
	return "", fmt.Errorf("%w: could not convert absolute module path %s to relative module path",
		ErrUnresolvablePath, absPath)
}

// InProject returns paths below root relative to it. Paths that are already
// relative are taken to be project paths and returned cleaned.
func InProject(root string) PathStrategy {
	root = filepath.Clean(root)
	return func(p string) (string, bool) {
		if !filepath.IsAbs(p) {
			return filepath.ToSlash(filepath.Clean(p)), true
		}
		rel, err := filepath.Rel(root, p)
		if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			return "", false
		}
		return filepath.ToSlash(rel), true
	}
}

// AfterMarker returns everything after the first path component equal to one
// of markers, e.g. the distribution-relative path of an installed package.
func AfterMarker(markers ...string) PathStrategy {
	set := make(map[string]bool, len(markers))
	for _, m := range markers {
		set[m] = true
	}
	return afterComponent(func(c string) bool { return set[c] })
}

// AfterPrefix returns everything after the first path component whose name
// starts with prefix, such as a versioned runtime directory "python3.11".
func AfterPrefix(prefix string) PathStrategy {
	return afterComponent(func(c string) bool { return strings.HasPrefix(c, prefix) })
}

func afterComponent(match func(string) bool) PathStrategy {
	return func(p string) (string, bool) {
		components := strings.Split(filepath.ToSlash(p), "/")
		for i, c := range components {
			if !match(c) {
				continue
			}
			rest := components[i+1:]
			if len(rest) == 0 {
				return "", false
			}
			return path.Join(rest...), true
		}
		return "", false
	}
}
