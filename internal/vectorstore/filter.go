package vectorstore

// Filter narrows operations to documents whose metadata contains every listed
// key with exactly the listed value. A nil or empty filter matches everything.
//
// Filters are evaluated before similarity ranking, so a filtered Query ranks
// only the matching subset.
type Filter map[string]string

// Matches reports whether the metadata satisfies every filter condition.
func (f Filter) Matches(metadata map[string]string) bool {
	for k, want := range f {
		if metadata[k] != want {
			return false
		}
	}
	return true
}

// Clone returns an independent copy of the filter.
func (f Filter) Clone() Filter {
	if f == nil {
		return nil
	}
	out := make(Filter, len(f))
	for k, v := range f {
		out[k] = v
	}
	return out
}
