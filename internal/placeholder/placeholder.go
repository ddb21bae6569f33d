// Package placeholder implements the $${...} token grammar and the
// execution-time resolver (spec.md §4.4).
package placeholder

import (
	"regexp"
	"strings"

	"syslua/internal/syserr"
)

// Token is the literal regex ABI from spec.md §6.
var Token = regexp.MustCompile(`\$\$\{[a-z]+(?::[a-zA-Z0-9_-]+)*\}`)

// Out is the literal $${out} placeholder.
const Out = "$${out}"

// ActionRef formats the $${action:N} placeholder for action index n.
func ActionRef(n int) string {
	return "$${action:" + itoa(n) + "}"
}

// BuildOutputRef formats $${build:<hash>:outputs:<name>}.
func BuildOutputRef(hash, name string) string {
	return "$${build:" + hash + ":outputs:" + name + "}"
}

// BindOutputRef formats $${bind:<hash>:outputs:<name>}.
func BindOutputRef(hash, name string) string {
	return "$${bind:" + hash + ":outputs:" + name + "}"
}

// SelfOutputRef formats $${self:outputs:<name>} — a bind's destroy_actions
// referencing its own apply outputs. Its own hash is not yet known at the
// point destroy_actions are captured (the hash is computed over the
// destroy_actions themselves), so "self" stands in for "whichever hash
// this definition ends up with"; the resolver substitutes it using the
// hash passed to the currently executing destroy, never the literal
// $${bind:<hash>:...} form other definitions use to reference it.
func SelfOutputRef(name string) string {
	return "$${self:outputs:" + name + "}"
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}

// Resolver substitutes placeholder tokens against the outputs produced by
// already-executed manifest nodes, plus the current definition's own
// action results and (for builds) its own $${out} directory.
type Resolver struct {
	// BuildOutputs and BindOutputs map a hash to its realized named
	// outputs, populated as nodes complete (spec.md §4.5, §5).
	BuildOutputs map[string]map[string]string
	BindOutputs  map[string]map[string]string

	// Out is the current build's own output directory, or "" for a bind
	// (ctx.out is absent for binds per spec.md §4.1).
	Out string
	// ActionResults holds the current definition's own prior action
	// results, indexed by action position.
	ActionResults []string
	// Self holds the currently-executing bind's own outputs, used only to
	// resolve $${self:outputs:<name>} inside destroy_actions.
	Self map[string]string
}

// Substitute replaces every placeholder token in s. Substitution is
// non-recursive: a substituted value is inserted literally and never
// re-scanned (spec.md §4.4).
func (r *Resolver) Substitute(s string) (string, error) {
	var firstErr error
	out := Token.ReplaceAllStringFunc(s, func(tok string) string {
		if firstErr != nil {
			return tok
		}
		val, err := r.resolveOne(tok)
		if err != nil {
			firstErr = err
			return tok
		}
		return val
	})
	if firstErr != nil {
		return "", firstErr
	}
	return out, nil
}

// Closed reports whether s contains no remaining $${...} token — used to
// verify the "placeholder closure" invariant (spec.md §8, property 8)
// after execution.
func Closed(s string) bool {
	return !Token.MatchString(s)
}

func (r *Resolver) resolveOne(tok string) (string, error) {
	inner := strings.TrimSuffix(strings.TrimPrefix(tok, "$${"), "}")
	parts := strings.Split(inner, ":")
	switch parts[0] {
	case "out":
		if len(parts) != 1 || r.Out == "" {
			break
		}
		return r.Out, nil
	case "action":
		if len(parts) != 2 {
			break
		}
		idx, ok := atoi(parts[1])
		if !ok || idx < 0 || idx >= len(r.ActionResults) {
			break
		}
		return r.ActionResults[idx], nil
	case "build":
		if len(parts) != 4 || parts[2] != "outputs" {
			break
		}
		outputs, ok := r.BuildOutputs[parts[1]]
		if !ok {
			break
		}
		val, ok := outputs[parts[3]]
		if !ok {
			break
		}
		return val, nil
	case "bind":
		if len(parts) != 4 || parts[2] != "outputs" {
			break
		}
		outputs, ok := r.BindOutputs[parts[1]]
		if !ok {
			break
		}
		val, ok := outputs[parts[3]]
		if !ok {
			break
		}
		return val, nil
	case "self":
		if len(parts) != 3 || parts[1] != "outputs" {
			break
		}
		val, ok := r.Self[parts[2]]
		if !ok {
			break
		}
		return val, nil
	}
	return "", &syserr.UnresolvedPlaceholder{Token: tok}
}

func atoi(s string) (int, bool) {
	if s == "" {
		return 0, false
	}
	n := 0
	for _, c := range s {
		if c < '0' || c > '9' {
			return 0, false
		}
		n = n*10 + int(c-'0')
	}
	return n, true
}
