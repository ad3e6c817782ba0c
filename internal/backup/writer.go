package backup

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
)

// sqlListTables enumerates every table reachable under the platform's
// naming convention, for whole-instance export.
const sqlListTables = `SELECT table_name FROM information_schema.tables WHERE table_schema = 'public' AND table_name LIKE 'qp\_%' ORDER BY table_name`

// Writer serializes table rows into the flat backup format: per section a
// blank line, a header naming the section and its columns in store order,
// then one quoted row per record. The sink is flushed after every section so
// partial output is durable even if a later section fails.
//
// Export holds no transaction; reads see whatever isolation the storage
// engine's plain queries provide.
type Writer struct {
	db  DBTX
	buf *bufio.Writer
	log *slog.Logger
}

// NewWriter creates a Writer over an open output sink. Opening the sink is
// the caller's responsibility; a sink that cannot be opened aborts the export
// before any write.
func NewWriter(db DBTX, out io.Writer) *Writer {
	return &Writer{
		db:  db,
		buf: bufio.NewWriter(out),
		log: slog.Default(),
	}
}

// WriteManifest writes the signature line declaring the format version and
// the mode the file is meant to be imported with.
func (w *Writer) WriteManifest(mode Mode) error {
	if _, err := fmt.Fprintf(w.buf, "%s%s|%s\n", signaturePrefix, CurrentVersion, mode); err != nil {
		return err
	}
	return w.buf.Flush()
}

// fullExportOrder lists every section in dependency order. Whole-instance
// export writes sections in this order so the produced file restores without
// tripping eager checks on keys the restore never defers (permission rows
// reference users and blogs under immediate checking).
var fullExportOrder = []Section{
	SectionBlog,
	SectionUser,
	SectionPermission,
	SectionConfig,
	SectionCategory,
	SectionLink,
	SectionMedia,
	SectionPost,
	SectionTag,
	SectionPostMedia,
	SectionPing,
	SectionComment,
}

// ExportAll exports every known section present in the store, in dependency
// order. Prefixed tables that do not map to a known section are skipped.
func (w *Writer) ExportAll(ctx context.Context) error {
	rows, err := w.db.Query(ctx, sqlListTables)
	if err != nil {
		return fmt.Errorf("list tables: %w", err)
	}

	present := make(map[Section]bool)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			rows.Close()
			return fmt.Errorf("scan table name: %w", err)
		}
		sec := ParseSection(strings.TrimPrefix(name, tablePrefix))
		if sec == SectionUnknown {
			w.log.Debug("skipping table without a section mapping", "table", name)
			continue
		}
		present[sec] = true
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return fmt.Errorf("list tables: %w", err)
	}

	for _, sec := range fullExportOrder {
		if !present[sec] {
			continue
		}
		if err := w.ExportSection(ctx, sec.String()); err != nil {
			return err
		}
	}
	return nil
}

// ExportSection exports one section's table in full.
func (w *Writer) ExportSection(ctx context.Context, section string) error {
	sec := ParseSection(section)
	if sec == SectionUnknown {
		return fmt.Errorf("unknown section %q", section)
	}
	query := fmt.Sprintf("SELECT * FROM %s ORDER BY 1", quoteIdentifier(sec.Table()))
	return w.exportQuery(ctx, sec.String(), query)
}

// blogScopedQueries select one tenant's rows per section. Child tables
// without a tenant column reach it through their parent post.
var blogScopedQueries = map[Section]string{
	SectionCategory:  "SELECT * FROM qp_category WHERE blog_id = $1 ORDER BY 1",
	SectionLink:      "SELECT * FROM qp_link WHERE blog_id = $1 ORDER BY 1",
	SectionPost:      "SELECT * FROM qp_post WHERE blog_id = $1 ORDER BY 1",
	SectionTag:       "SELECT t.* FROM qp_tag t JOIN qp_post p ON p.post_id = t.post_id WHERE p.blog_id = $1 ORDER BY 1",
	SectionMedia:     "SELECT * FROM qp_media WHERE blog_id = $1 ORDER BY 1",
	SectionPostMedia: "SELECT pm.* FROM qp_post_media pm JOIN qp_post p ON p.post_id = pm.post_id WHERE p.blog_id = $1 ORDER BY 1",
	SectionPing:      "SELECT g.* FROM qp_ping g JOIN qp_post p ON p.post_id = g.post_id WHERE p.blog_id = $1 ORDER BY 1",
	SectionComment:   "SELECT c.* FROM qp_comment c JOIN qp_post p ON p.post_id = c.post_id WHERE p.blog_id = $1 ORDER BY 1",
}

// blogExportOrder lists the single-tenant sections in dependency order, so
// the produced file imports without forward references.
var blogExportOrder = []Section{
	SectionCategory,
	SectionLink,
	SectionPost,
	SectionTag,
	SectionMedia,
	SectionPostMedia,
	SectionPing,
	SectionComment,
}

// ExportBlog exports a single tenant's content in dependency order,
// producing a file suitable for single-tenant import elsewhere.
func (w *Writer) ExportBlog(ctx context.Context, blogID int64) error {
	for _, sec := range blogExportOrder {
		if err := w.exportQuery(ctx, sec.String(), blogScopedQueries[sec], blogID); err != nil {
			return err
		}
	}
	return nil
}

// exportQuery streams one query's result set as a section.
func (w *Writer) exportQuery(ctx context.Context, section, query string, args ...any) error {
	rows, err := w.db.Query(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("export %s: %w", section, err)
	}
	defer rows.Close()

	fields := rows.FieldDescriptions()
	columns := make([]string, len(fields))
	for i, f := range fields {
		columns[i] = f.Name
	}

	if _, err := fmt.Fprintf(w.buf, "\n[%s %s]\n", section, strings.Join(columns, ",")); err != nil {
		return err
	}

	count := 0
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return fmt.Errorf("export %s: read row: %w", section, err)
		}
		if err := w.writeRow(values); err != nil {
			return err
		}
		count++
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("export %s: %w", section, err)
	}

	w.log.Debug("section exported", "section", section, "rows", count)
	return w.buf.Flush()
}

// writeRow renders one row: every value escaped, quoted and comma-joined.
func (w *Writer) writeRow(values []any) error {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = `"` + escapeValue(formatValue(v)) + `"`
	}
	_, err := fmt.Fprintln(w.buf, strings.Join(parts, ","))
	return err
}

// quoteIdentifier quotes a SQL identifier to prevent injection.
func quoteIdentifier(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
