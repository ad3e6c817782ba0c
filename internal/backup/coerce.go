package backup

// coerce.go converts between the flat format's string values and native
// PostgreSQL types. Decoded fields stay strings until an importer inserts
// them; the export side renders whatever the store hands back into the same
// string forms so a written file reads back identically.
//
// All toPg* functions return pgtype values with Valid=false for empty input,
// letting the database store NULLs for absent optional fields.

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
)

// timestampLayout is the canonical timestamp rendering in backup files.
const timestampLayout = "2006-01-02 15:04:05"

var timestampLayouts = []string{
	timestampLayout,
	"2006-01-02T15:04:05",
	"2006-01-02",
	time.RFC3339,
}

func toPgText(s string) pgtype.Text {
	if s == "" {
		return pgtype.Text{}
	}
	return pgtype.Text{String: s, Valid: true}
}

func toPgInt8(s string) pgtype.Int8 {
	s = strings.TrimSpace(s)
	if s == "" {
		return pgtype.Int8{}
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return pgtype.Int8{}
	}
	return pgtype.Int8{Int64: n, Valid: true}
}

func toPgBool(s string) pgtype.Bool {
	switch strings.TrimSpace(strings.ToLower(s)) {
	case "1", "t", "true", "y", "yes":
		return pgtype.Bool{Bool: true, Valid: true}
	case "0", "f", "false", "n", "no":
		return pgtype.Bool{Bool: false, Valid: true}
	default:
		return pgtype.Bool{}
	}
}

func toPgTimestamp(s string) pgtype.Timestamp {
	s = strings.TrimSpace(s)
	if s == "" {
		return pgtype.Timestamp{}
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return pgtype.Timestamp{Time: t, Valid: true}
		}
	}
	return pgtype.Timestamp{}
}

// toInt64 parses an identifier field. Absent or malformed identifiers read
// as zero, which every caller treats as "no reference".
func toInt64(s string) int64 {
	n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0
	}
	return n
}

// formatValue renders a store value as its flat-format string. The inverse
// direction of the toPg* helpers: booleans become 1/0 and timestamps use the
// canonical layout, so a round trip through export and import is stable.
func formatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case []byte:
		return string(x)
	case bool:
		if x {
			return "1"
		}
		return "0"
	case int64:
		return strconv.FormatInt(x, 10)
	case int32:
		return strconv.FormatInt(int64(x), 10)
	case int16:
		return strconv.FormatInt(int64(x), 10)
	case int:
		return strconv.Itoa(x)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case time.Time:
		return x.Format(timestampLayout)
	default:
		return fmt.Sprint(v)
	}
}

// slugify lowers a title into a URL-safe slug: runs of anything but letters
// and digits collapse to single dashes.
func slugify(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	dash := false
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			dash = false
		default:
			if !dash && b.Len() > 0 {
				b.WriteByte('-')
				dash = true
			}
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}

// makePostSlug regenerates a post's public URL slug deterministically from
// its identifier, title and date. The identifier suffix keeps regenerated
// slugs collision-free against existing content.
func makePostSlug(id int64, title, date string) string {
	slug := slugify(title)
	if len(slug) > 48 {
		slug = strings.TrimSuffix(slug[:48], "-")
	}
	if slug == "" {
		slug = "post"
	}
	if ts := toPgTimestamp(date); ts.Valid {
		return fmt.Sprintf("%s-%s-%d", ts.Time.Format("20060102"), slug, id)
	}
	return fmt.Sprintf("%s-%d", slug, id)
}
