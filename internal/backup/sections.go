package backup

// tablePrefix is the platform's table naming convention. Every table the
// subsystem touches is named tablePrefix + section name, and whole-instance
// export enumerates tables by this prefix.
const tablePrefix = "qp_"

// Section identifies a known section kind. Decoded records are dispatched on
// this enum; SectionUnknown records are deliberately ignored by both
// importers so newer exports with extra sections still restore.
type Section int

const (
	SectionUnknown Section = iota
	SectionBlog
	SectionUser
	SectionConfig
	SectionCategory
	SectionLink
	SectionPost
	SectionTag
	SectionMedia
	SectionPostMedia
	SectionPing
	SectionComment
	SectionPermission
)

var sectionNames = map[Section]string{
	SectionBlog:       "blog",
	SectionUser:       "user",
	SectionConfig:     "config",
	SectionCategory:   "category",
	SectionLink:       "link",
	SectionPost:       "post",
	SectionTag:        "tag",
	SectionMedia:      "media",
	SectionPostMedia:  "post_media",
	SectionPing:       "ping",
	SectionComment:    "comment",
	SectionPermission: "permission",
}

var sectionsByName = func() map[string]Section {
	m := make(map[string]Section, len(sectionNames))
	for s, name := range sectionNames {
		m[name] = s
	}
	return m
}()

// ParseSection maps a section name from the file to its kind.
// Unrecognized names yield SectionUnknown.
func ParseSection(name string) Section {
	return sectionsByName[name]
}

// String returns the section name as it appears in the file format.
func (s Section) String() string {
	if name, ok := sectionNames[s]; ok {
		return name
	}
	return "unknown"
}

// Table returns the destination table for the section.
func (s Section) Table() string {
	return tablePrefix + s.String()
}

// deferredSections are the dependency-ordered sections imported with
// constraint checking deferred, so same-transaction forward references
// between tables do not trip eager foreign-key checks.
var deferredSections = map[Section]bool{
	SectionPost:      true,
	SectionTag:       true,
	SectionPostMedia: true,
	SectionPing:      true,
	SectionComment:   true,
}

// IDKind names an entity kind tracked by the identifier translation table.
type IDKind string

const (
	KindCategory IDKind = "category"
	KindPost     IDKind = "post"
	KindMedia    IDKind = "media"
)

// idColumns maps each table with an allocatable identifier to its id column.
// The single-tenant importer seeds one counter per entry from max(id)+1.
var idColumns = map[string]string{
	tablePrefix + "user":     "user_id",
	tablePrefix + "category": "cat_id",
	tablePrefix + "link":     "link_id",
	tablePrefix + "post":     "post_id",
	tablePrefix + "tag":      "tag_id",
	tablePrefix + "media":    "media_id",
	tablePrefix + "ping":     "ping_id",
	tablePrefix + "comment":  "comment_id",
}
