// Package identity resolves loose "assigned to" references against the
// employee collection.
package identity

import (
	"strings"

	"github.com/spec-kit/agency-dashboard/internal/domain"
)

// Resolve finds the employee a reference points at. The reference is tried
// against id, then email as stored, then display name; the first employee in
// iteration order matching the earliest key wins.
func Resolve(ref string, employees []domain.Employee) (domain.Employee, bool) {
	if ref == "" {
		return domain.Employee{}, false
	}
	for _, e := range employees {
		if e.ID == ref {
			return e, true
		}
	}
	for _, e := range employees {
		if e.Email != "" && e.Email == ref {
			return e, true
		}
	}
	for _, e := range employees {
		if e.Name != "" && e.Name == ref {
			return e, true
		}
	}
	return domain.Employee{}, false
}

// References returns the candidate keys an assignment may use for e.
func References(e domain.Employee) []string {
	refs := make([]string, 0, 3)
	for _, key := range []string{e.ID, e.Email, e.Name} {
		if key != "" {
			refs = append(refs, key)
		}
	}
	return refs
}

// Matches reports whether ref names e by any of its candidate keys.
func Matches(ref string, e domain.Employee) bool {
	if ref == "" {
		return false
	}
	for _, key := range References(e) {
		if key == ref {
			return true
		}
	}
	return false
}

// MatchesAny reports whether any of refs names e.
func MatchesAny(refs []string, e domain.Employee) bool {
	for _, ref := range refs {
		if Matches(ref, e) {
			return true
		}
	}
	return false
}

// Assignment is the stored form of an "assigned to" reference: the
// reference as given plus the employee it resolved to.
type Assignment struct {
	Ref          string
	EmployeeID   string
	EmployeeName string
}

// Canonicalize resolves a reference once at write time. A blank reference
// yields the zero Assignment; an unknown one reports false.
func Canonicalize(ref string, employees []domain.Employee) (Assignment, bool) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return Assignment{}, true
	}
	e, ok := Resolve(ref, employees)
	if !ok {
		return Assignment{}, false
	}
	return Assignment{Ref: ref, EmployeeID: e.ID, EmployeeName: e.Name}, true
}
