// Package inputsresolver turns each declared input URI into a concrete
// local directory and pins the exact revision into syslua.lock
// (spec.md §4.2).
package inputsresolver

import (
	"fmt"
	"strings"
)

// ParsedURI is a declared input URI broken into its scheme and parts.
type ParsedURI struct {
	// Type is "github", "gitlab", "git", or "path".
	Type string
	// URL is the clone URL for git-like types.
	URL string
	// Rev is the fragment after '#', or "" meaning "resolve the default
	// branch/HEAD".
	Rev string
	// Path is set only for Type == "path".
	Path string
}

// ParseURI parses one of spec.md §4.2's four schemes:
// github:<owner>/<repo>[#<rev>], gitlab:..., git:<url>[#<rev>], path:<dir>.
func ParseURI(uri string) (ParsedURI, error) {
	switch {
	case strings.HasPrefix(uri, "github:"):
		ownerRepo, rev := splitFragment(strings.TrimPrefix(uri, "github:"))
		if ownerRepo == "" {
			return ParsedURI{}, fmt.Errorf("inputsresolver: empty github: URI")
		}
		return ParsedURI{Type: "github", URL: "https://github.com/" + ownerRepo + ".git", Rev: rev}, nil
	case strings.HasPrefix(uri, "gitlab:"):
		ownerRepo, rev := splitFragment(strings.TrimPrefix(uri, "gitlab:"))
		if ownerRepo == "" {
			return ParsedURI{}, fmt.Errorf("inputsresolver: empty gitlab: URI")
		}
		return ParsedURI{Type: "gitlab", URL: "https://gitlab.com/" + ownerRepo + ".git", Rev: rev}, nil
	case strings.HasPrefix(uri, "git:"):
		url, rev := splitFragment(strings.TrimPrefix(uri, "git:"))
		if url == "" {
			return ParsedURI{}, fmt.Errorf("inputsresolver: empty git: URI")
		}
		return ParsedURI{Type: "git", URL: url, Rev: rev}, nil
	case strings.HasPrefix(uri, "path:"):
		p := strings.TrimPrefix(uri, "path:")
		if p == "" {
			return ParsedURI{}, fmt.Errorf("inputsresolver: empty path: URI")
		}
		return ParsedURI{Type: "path", Path: p}, nil
	default:
		return ParsedURI{}, fmt.Errorf("inputsresolver: unrecognized input URI %q", uri)
	}
}

func splitFragment(s string) (string, string) {
	if i := strings.IndexByte(s, '#'); i >= 0 {
		return s[:i], s[i+1:]
	}
	return s, ""
}

// lockMatchKey is the value compared against a locked entry's URL field
// when checking "type+url match" (spec.md §4.2 step 2) — the clone URL
// for git-like inputs, the declared path for path inputs.
func lockMatchKey(p ParsedURI) string {
	if p.Type == "path" {
		return p.Path
	}
	return p.URL
}
