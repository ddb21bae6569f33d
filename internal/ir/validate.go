package ir

import (
	"fmt"

	"syslua/internal/hashutil"
)

// ErrBuildDependsOnBind is returned by Validate when a build's InputsRef
// transitively references a bind — forbidden per spec.md §3 invariant 6
// and §4.5 ("build→bind edges are forbidden and rejected at
// manifest-load time").
type ErrBuildDependsOnBind struct {
	Build hashutil.Hash
	Bind  hashutil.Hash
}

func (e *ErrBuildDependsOnBind) Error() string {
	return fmt.Sprintf("build %s depends on bind %s, which is forbidden", e.Build, e.Bind)
}

// ErrDanglingReference is returned by Validate when an InputsRef points at
// a hash absent from the manifest.
type ErrDanglingReference struct {
	From hashutil.Hash
	To   hashutil.Hash
}

func (e *ErrDanglingReference) Error() string {
	return fmt.Sprintf("%s references missing hash %s", e.From, e.To)
}

// Validate enforces manifest-load-time invariants: no two nodes share a
// hash (guaranteed by the map representation itself), no build depends on
// a bind, and every InputsRef::Build/Bind reference resolves within the
// manifest.
func (m Manifest) Validate() error {
	for h, b := range m.Builds {
		var walkErr error
		if b.Inputs != nil {
			b.Inputs.Walk(func(ref InputsRef) {
				if walkErr != nil {
					return
				}
				switch ref.Kind {
				case KindBind:
					walkErr = &ErrBuildDependsOnBind{Build: h, Bind: ref.Hash}
				case KindBuild:
					if _, ok := m.Builds[ref.Hash]; !ok {
						walkErr = &ErrDanglingReference{From: h, To: ref.Hash}
					}
				}
			})
		}
		if walkErr != nil {
			return walkErr
		}
	}
	for h, b := range m.Binds {
		var walkErr error
		if b.Inputs != nil {
			b.Inputs.Walk(func(ref InputsRef) {
				if walkErr != nil {
					return
				}
				switch ref.Kind {
				case KindBuild:
					if _, ok := m.Builds[ref.Hash]; !ok {
						walkErr = &ErrDanglingReference{From: h, To: ref.Hash}
					}
				case KindBind:
					if _, ok := m.Binds[ref.Hash]; !ok {
						walkErr = &ErrDanglingReference{From: h, To: ref.Hash}
					}
				}
			})
		}
		if walkErr != nil {
			return walkErr
		}
	}
	return nil
}
