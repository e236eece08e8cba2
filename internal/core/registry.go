package core

import "sort"

// Registry indexes the operating units of a snapshot for lookup and ordered
// iteration. It is built once per run and never mutated afterwards.
type Registry struct {
	byCode map[string]OperatingUnit
	codes  []string
}

// NewRegistry builds a registry from the unit table. Duplicate codes keep the
// first occurrence.
func NewRegistry(units []OperatingUnit) *Registry {
	r := &Registry{byCode: make(map[string]OperatingUnit, len(units))}
	for _, u := range units {
		if _, ok := r.byCode[u.Code]; ok {
			continue
		}
		r.byCode[u.Code] = u
		r.codes = append(r.codes, u.Code)
	}
	sort.Strings(r.codes)
	return r
}

// Lookup returns the unit for a code.
func (r *Registry) Lookup(code string) (OperatingUnit, bool) {
	u, ok := r.byCode[code]
	return u, ok
}

// Codes returns all unit codes in lexical order.
func (r *Registry) Codes() []string {
	out := make([]string, len(r.codes))
	copy(out, r.codes)
	return out
}

// OperativeCodes returns the codes of operative units only, in lexical order.
// Holding-only units never appear in allocation distributions.
func (r *Registry) OperativeCodes() []string {
	var out []string
	for _, c := range r.codes {
		if r.byCode[c].Operative {
			out = append(out, c)
		}
	}
	return out
}

// Len returns the number of registered units.
func (r *Registry) Len() int { return len(r.codes) }
