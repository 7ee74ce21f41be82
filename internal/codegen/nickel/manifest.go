package nickel

import (
	"sort"
	"strings"
)

// ManifestFileName is where the package manager expects the manifest.
const ManifestFileName = "Nickel-pkg.ncl"

// Manifest describes the generated package in the shape
// std.package.Manifest expects.
type Manifest struct {
	Name                 string
	Description          string
	Version              string
	Authors              []string
	License              string
	Keywords             []string
	MinimalNickelVersion string
	Dependencies         map[string]Dependency
}

// Dependency is one entry in the manifest's dependency record. Exactly one
// of Path, Index, or Git is set.
type Dependency struct {
	Path  string
	Index *IndexDependency
	Git   *GitDependency
}

// IndexDependency names a package from the global package index.
type IndexDependency struct {
	Package string
	Version string
}

// GitDependency names a package fetched from a repository. Ref is a branch
// or tag; empty means the default branch.
type GitDependency struct {
	URL string
	Ref string
}

// DefaultManifest fills in the fields a generated package always carries.
func DefaultManifest(name string) Manifest {
	return Manifest{
		Name:                 name,
		Version:              "0.1.0",
		MinimalNickelVersion: "1.9.0",
	}
}

// File renders the manifest at its conventional path.
func (m Manifest) File() File {
	return File{Path: ManifestFileName, Content: m.Render()}
}

// Render produces the manifest expression, checked against
// std.package.Manifest so a malformed manifest fails at evaluation instead
// of at publish time.
func (m Manifest) Render() string {
	var b strings.Builder
	b.WriteString("{\n")
	b.WriteString("  name = " + quote(m.Name) + ",\n")
	if m.Description != "" {
		b.WriteString("  description = " + quote(m.Description) + ",\n")
	}
	b.WriteString("  version = " + quote(m.Version) + ",\n")
	if len(m.Authors) > 0 {
		b.WriteString("  authors = " + quotedList(m.Authors) + ",\n")
	}
	if m.License != "" {
		b.WriteString("  license = " + quote(m.License) + ",\n")
	}
	if len(m.Keywords) > 0 {
		b.WriteString("  keywords = " + quotedList(m.Keywords) + ",\n")
	}
	b.WriteString("  minimal_nickel_version = " + quote(m.MinimalNickelVersion) + ",\n")
	if len(m.Dependencies) > 0 {
		b.WriteString("  dependencies = {\n")
		names := make([]string, 0, len(m.Dependencies))
		for name := range m.Dependencies {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			b.WriteString("    " + escapeFieldName(name) + " = " + m.Dependencies[name].render() + ",\n")
		}
		b.WriteString("  },\n")
	}
	b.WriteString("} | std.package.Manifest\n")
	return b.String()
}

func (d Dependency) render() string {
	switch {
	case d.Path != "":
		return "'Path " + quote(d.Path)
	case d.Index != nil:
		return "'Index { package = " + quote(d.Index.Package) + ", version = " + quote(d.Index.Version) + " }"
	case d.Git != nil:
		if d.Git.Ref != "" {
			return "'Git { url = " + quote(d.Git.URL) + ", ref = " + quote(d.Git.Ref) + " }"
		}
		return "'Git { url = " + quote(d.Git.URL) + " }"
	default:
		return "'Path \".\""
	}
}

func quotedList(items []string) string {
	quoted := make([]string, len(items))
	for i, item := range items {
		quoted[i] = quote(item)
	}
	return "[" + strings.Join(quoted, ", ") + "]"
}
