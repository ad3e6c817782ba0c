package backup

// Record is one decoded data row from a backup file: an ordered set of named
// string fields plus its provenance (section name and source line number).
//
// Every value is a string at the decode boundary; importers coerce to native
// column types at insert time. Mutating operations act on the in-memory map
// only and never touch the source stream.
type Record struct {
	section string
	line    int
	keys    []string
	values  map[string]string
}

// NewRecord creates an empty Record tagged with its section and source line.
func NewRecord(section string, line int) *Record {
	return &Record{
		section: section,
		line:    line,
		values:  make(map[string]string),
	}
}

// Section returns the name of the section the record was decoded under.
func (r *Record) Section() string { return r.section }

// Line returns the 1-based source line number of the data row.
func (r *Record) Line() int { return r.line }

// Get returns the value of the named field, or "" if the field is absent.
func (r *Record) Get(name string) string { return r.values[name] }

// Lookup returns the value of the named field and whether it exists.
func (r *Record) Lookup(name string) (string, bool) {
	v, ok := r.values[name]
	return v, ok
}

// Has reports whether the named field exists, even if its value is empty.
func (r *Record) Has(name string) bool {
	_, ok := r.values[name]
	return ok
}

// Set stores a field value. New fields are appended to the field order;
// existing fields keep their position.
func (r *Record) Set(name, value string) {
	if _, ok := r.values[name]; !ok {
		r.keys = append(r.keys, name)
	}
	r.values[name] = value
}

// Drop removes a field. Dropping an absent field is a no-op.
func (r *Record) Drop(name string) {
	if _, ok := r.values[name]; !ok {
		return
	}
	delete(r.values, name)
	for i, k := range r.keys {
		if k == name {
			r.keys = append(r.keys[:i], r.keys[i+1:]...)
			break
		}
	}
}

// Substitute renames the field old to new, keeping its value and position.
// It is a no-op when old is absent. If new already exists its value is
// replaced and the old field is removed.
func (r *Record) Substitute(old, new string) {
	v, ok := r.values[old]
	if !ok {
		return
	}
	if _, exists := r.values[new]; exists {
		r.values[new] = v
		r.Drop(old)
		return
	}
	for i, k := range r.keys {
		if k == old {
			r.keys[i] = new
			break
		}
	}
	delete(r.values, old)
	r.values[new] = v
}

// Fields returns the field names in their original order.
func (r *Record) Fields() []string {
	out := make([]string, len(r.keys))
	copy(out, r.keys)
	return out
}

// Len returns the number of fields.
func (r *Record) Len() int { return len(r.keys) }
