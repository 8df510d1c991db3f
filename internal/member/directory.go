package member

import (
	"log"
	"strings"
)

// Directory is the in-memory table of known members. It resolves sign-up
// names through aliases and comment authors through handles.
type Directory struct {
	members  []*Member
	byHandle map[string]*Member
	mapping  map[string]Entry
}

// NewDirectory indexes members by handle and merges the mapping into them.
// Members sharing a handle are folded into the first one. Mapping handles
// without a member are created with zero counters.
func NewDirectory(members []*Member, mapping Mapping) *Directory {
	d := &Directory{
		byHandle: make(map[string]*Member, len(members)+len(mapping)),
		mapping:  make(map[string]Entry, len(mapping)),
	}

	for _, m := range members {
		if m == nil {
			continue
		}
		key := normalize(m.Handle)
		if key == "" {
			d.members = append(d.members, m)
			continue
		}
		if existing, ok := d.byHandle[key]; ok {
			log.Printf("Duplicate member %q folded into %q", m.Handle, existing.Handle)
			existing.ReportCount += m.ReportCount
			existing.SignupCount += m.SignupCount
			for _, a := range m.Aliases {
				existing.AddAlias(a)
			}
			if existing.SecondaryHandle == "" {
				existing.SecondaryHandle = m.SecondaryHandle
			}
			continue
		}
		d.byHandle[key] = m
		d.members = append(d.members, m)
	}

	for _, handle := range mapping.handles() {
		key := normalize(handle)
		if key == "" {
			continue
		}
		entry := mapping[handle]
		d.mapping[key] = entry
		if m, ok := d.byHandle[key]; ok {
			applyEntry(m, entry)
			continue
		}
		d.add(handle)
	}

	return d
}

// Resolve returns the first member, in collection order, that has an alias
// contained in text. Both sides are trimmed and lower-cased first.
func (d *Directory) Resolve(text string) (*Member, bool) {
	query := normalize(text)
	if query == "" {
		return nil, false
	}
	for _, m := range d.members {
		for _, a := range m.Aliases {
			alias := normalize(a)
			if alias != "" && strings.Contains(query, alias) {
				return m, true
			}
		}
	}
	return nil, false
}

// LookupByHandle finds a member by exact handle, ignoring case and
// surrounding whitespace. Aliases and secondary handles are not consulted.
func (d *Directory) LookupByHandle(handle string) (*Member, bool) {
	m, ok := d.byHandle[normalize(handle)]
	return m, ok
}

// Ensure returns the member for handle, creating it if needed.
func (d *Directory) Ensure(handle string) *Member {
	if m, ok := d.LookupByHandle(handle); ok {
		return m
	}
	return d.add(handle)
}

// Members returns the collection in insertion order.
func (d *Directory) Members() []*Member {
	out := make([]*Member, len(d.members))
	copy(out, d.members)
	return out
}

// Len returns the number of members.
func (d *Directory) Len() int {
	return len(d.members)
}

func (d *Directory) add(handle string) *Member {
	m := New(handle)
	if entry, ok := d.mapping[normalize(handle)]; ok {
		applyEntry(m, entry)
	}
	d.members = append(d.members, m)
	if key := normalize(handle); key != "" {
		d.byHandle[key] = m
	}
	return m
}

// applyEntry grows m with the mapping entry. Existing identity is kept.
func applyEntry(m *Member, e Entry) {
	if m.SecondaryHandle == "" {
		m.SecondaryHandle = e.SecondaryHandle
	}
	for _, a := range e.Aliases {
		m.AddAlias(a)
	}
}
