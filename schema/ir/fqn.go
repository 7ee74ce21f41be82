package ir

import (
	"strings"
	"unicode"
)

// FQN is a parsed fully-qualified dotted type name, e.g.
// io.k8s.api.core.v1.Pod. Short local names parse too; missing pieces get
// the documented defaults (version v1, namespace "default", a synthetic
// local:// domain).
type FQN struct {
	Original  string
	TypeName  string
	Module    string
	Group     string
	Version   string
	Domain    string
	Namespace string
}

// Known top-level domain suffixes used to split group strings into
// (namespace, domain) pairs.
var knownTLDs = map[string]bool{
	"io": true, "com": true, "org": true, "net": true, "dev": true, "app": true,
}

// ParseFQN splits a dotted name into its type, module, group, version,
// domain and namespace parts. Parsing is purely lexical; no registry is
// consulted.
func ParseFQN(name string) FQN {
	fqn := FQN{Original: name, Version: "v1", Namespace: "default"}
	parts := strings.Split(name, ".")

	if len(parts) == 1 {
		if startsUpper(name) {
			fqn.TypeName = name
			fqn.Domain = "local://"
		} else {
			fqn.Group = name
			fqn.Module = name + ".v1"
			fqn.Domain = "local://" + name
		}
		return fqn
	}

	moduleParts := parts
	if startsUpper(parts[len(parts)-1]) {
		fqn.TypeName = parts[len(parts)-1]
		moduleParts = parts[:len(parts)-1]
	}

	// Scan from the right for a version-looking component
	versionIdx := -1
	for i := len(moduleParts) - 1; i >= 0; i-- {
		if IsVersionComponent(moduleParts[i]) {
			versionIdx = i
			break
		}
	}

	if versionIdx >= 0 {
		fqn.Version = moduleParts[versionIdx]
		fqn.Group = strings.Join(moduleParts[:versionIdx], ".")
	} else {
		fqn.Group = strings.Join(moduleParts, ".")
	}
	if fqn.Group == "" {
		fqn.Group = fqn.Version
	}

	fqn.Module = fqn.Group + "." + fqn.Version
	fqn.Domain, fqn.Namespace = splitDomainNamespace(fqn.Group)
	return fqn
}

// IsVersionComponent reports whether a dotted-name component looks like a
// version tag: vN, vNalphaM, vNbetaM, or one of the known literal suffixes
// some ecosystems use in place of a version directory.
func IsVersionComponent(s string) bool {
	if s == "resource" || s == "crossplane" {
		return true
	}
	if len(s) < 2 || s[0] != 'v' {
		return false
	}
	if s[1] < '0' || s[1] > '9' {
		return false
	}
	rest := s[2:]
	for len(rest) > 0 && rest[0] >= '0' && rest[0] <= '9' {
		rest = rest[1:]
	}
	if rest == "" {
		return true
	}
	for _, stage := range []string{"alpha", "beta"} {
		if strings.HasPrefix(rest, stage) {
			tail := rest[len(stage):]
			if tail == "" {
				return true
			}
			for _, r := range tail {
				if r < '0' || r > '9' {
					return false
				}
			}
			return true
		}
	}
	return false
}

func splitDomainNamespace(group string) (string, string) {
	switch {
	case group == "":
		return "local://", "default"
	case group == "k8s.io":
		return "k8s.io", "core"
	case strings.HasPrefix(group, "io.k8s."):
		return "k8s.io", strings.TrimPrefix(group, "io.k8s.")
	case strings.HasPrefix(group, "k8s.io."):
		return "k8s.io", strings.TrimPrefix(group, "k8s.io.")
	}

	parts := strings.Split(group, ".")
	if len(parts) >= 2 && knownTLDs[parts[len(parts)-1]] {
		domain := strings.Join(parts[len(parts)-2:], ".")
		if len(parts) == 2 {
			return domain, "default"
		}
		return domain, strings.Join(parts[:len(parts)-2], ".")
	}

	return "local://" + group, "default"
}

// IsK8s reports whether the name belongs to the core Kubernetes domain
func (f FQN) IsK8s() bool {
	return f.Domain == "k8s.io"
}

// IsCrossplane reports whether the name belongs to a crossplane domain
func (f FQN) IsCrossplane() bool {
	return f.Domain == "crossplane.io" || strings.HasSuffix(f.Domain, ".crossplane.io")
}

// SimpleName returns the unqualified type name, or the original string
// when no type component was present
func (f FQN) SimpleName() string {
	if f.TypeName != "" {
		return f.TypeName
	}
	return f.Original
}

// APIGroup returns the Kubernetes API group for k8s-domain names
// ("io.k8s.api.apps.v1.Deployment" yields "apps"); empty otherwise.
func (f FQN) APIGroup() string {
	if !f.IsK8s() {
		return ""
	}
	ns := strings.TrimPrefix(f.Namespace, "api.")
	if idx := strings.Index(ns, "."); idx >= 0 {
		return ns[:idx]
	}
	return ns
}

// NormalizeK8sName rewrites the io.k8s prefix forms to the canonical
// k8s.io form; other names pass through unchanged.
func NormalizeK8sName(name string) string {
	if strings.HasPrefix(name, "io.k8s.api.") {
		return "k8s.io." + strings.TrimPrefix(name, "io.k8s.api.")
	}
	if strings.HasPrefix(name, "io.k8s.") {
		return "k8s.io." + strings.TrimPrefix(name, "io.k8s.")
	}
	return name
}

func startsUpper(s string) bool {
	if s == "" {
		return false
	}
	return unicode.IsUpper(rune(s[0]))
}
