package backup

import (
	"context"
	"io"
	"strings"
	"testing"
	"time"
)

func TestWriterManifestLine(t *testing.T) {
	var out strings.Builder
	w := NewWriter(newFakeStore(), &out)

	if err := w.WriteManifest(ModeFull); err != nil {
		t.Fatalf("WriteManifest error: %v", err)
	}
	if got := out.String(); got != "///TAG|2.0|full\n" {
		t.Errorf("manifest line = %q", got)
	}
}

func TestWriterExportSection(t *testing.T) {
	store := newFakeStore()
	store.queries[`SELECT * FROM "qp_blog" ORDER BY 1`] = &fakeRows{
		cols: []string{"blog_id", "blog_name", "blog_slug", "blog_timezone"},
		data: [][]any{
			{int64(1), "My \"quoted\" blog", "my-blog", "UTC"},
			{int64(2), "Second\nblog", "second", nil},
		},
	}

	var out strings.Builder
	w := NewWriter(store, &out)
	if err := w.ExportSection(context.Background(), "blog"); err != nil {
		t.Fatalf("ExportSection error: %v", err)
	}

	want := "\n[blog blog_id,blog_name,blog_slug,blog_timezone]\n" +
		`"1","My \"quoted\" blog","my-blog","UTC"` + "\n" +
		`"2","Second\nblog","second",""` + "\n"
	if got := out.String(); got != want {
		t.Errorf("exported section:\n%q\nwant:\n%q", got, want)
	}
}

func TestWriterExportSectionUnknown(t *testing.T) {
	w := NewWriter(newFakeStore(), io.Discard)
	if err := w.ExportSection(context.Background(), "nonsense"); err == nil {
		t.Fatal("ExportSection accepted an unknown section")
	}
}

func TestWriterExportAllSkipsUnmappedTables(t *testing.T) {
	store := newFakeStore()
	store.queries[sqlListTables] = &fakeRows{
		cols: []string{"table_name"},
		data: [][]any{{"qp_blog"}, {"qp_scratch"}},
	}
	store.queries[`SELECT * FROM "qp_blog" ORDER BY 1`] = &fakeRows{
		cols: []string{"blog_id", "blog_name", "blog_slug", "blog_timezone"},
		data: [][]any{{int64(1), "Blog", "blog", "UTC"}},
	}

	var out strings.Builder
	w := NewWriter(store, &out)
	if err := w.ExportAll(context.Background()); err != nil {
		t.Fatalf("ExportAll error: %v", err)
	}

	if !strings.Contains(out.String(), "[blog ") {
		t.Error("blog section missing from output")
	}
	if strings.Contains(out.String(), "scratch") {
		t.Error("unmapped table leaked into output")
	}
}

func TestWriterExportAllDependencyOrder(t *testing.T) {
	store := newFakeStore()
	// information_schema enumerates alphabetically, which puts permission
	// ahead of user and post ahead of its parents.
	store.queries[sqlListTables] = &fakeRows{
		cols: []string{"table_name"},
		data: [][]any{
			{"qp_blog"}, {"qp_category"}, {"qp_comment"}, {"qp_config"},
			{"qp_link"}, {"qp_media"}, {"qp_permission"}, {"qp_ping"},
			{"qp_post"}, {"qp_post_media"}, {"qp_tag"}, {"qp_user"},
		},
	}
	for _, sec := range fullExportOrder {
		q := `SELECT * FROM "` + sec.Table() + `" ORDER BY 1`
		store.queries[q] = &fakeRows{cols: []string{sec.String() + "_col"}}
	}

	var out strings.Builder
	w := NewWriter(store, &out)
	if err := w.ExportAll(context.Background()); err != nil {
		t.Fatalf("ExportAll error: %v", err)
	}

	output := out.String()
	var last int
	for _, sec := range fullExportOrder {
		idx := strings.Index(output, "["+sec.String()+" ")
		if idx < 0 {
			t.Fatalf("section %s missing from output:\n%s", sec, output)
		}
		if idx < last {
			t.Errorf("section %s out of dependency order:\n%s", sec, output)
		}
		last = idx
	}

	// The import runs permission with constraints immediate, so users and
	// blogs must already be on disk when permission rows appear.
	userIdx := strings.Index(output, "[user ")
	permIdx := strings.Index(output, "[permission ")
	if permIdx < userIdx {
		t.Errorf("permission section written before user:\n%s", output)
	}
}

func TestWriterExportBlogOrder(t *testing.T) {
	store := newFakeStore()
	for sec, q := range blogScopedQueries {
		store.queries[q] = &fakeRows{cols: []string{sec.String() + "_col"}}
	}

	var out strings.Builder
	w := NewWriter(store, &out)
	if err := w.ExportBlog(context.Background(), 1); err != nil {
		t.Fatalf("ExportBlog error: %v", err)
	}

	// Dependency order: parents must be written before their children.
	output := out.String()
	catIdx := strings.Index(output, "[category ")
	postIdx := strings.Index(output, "[post ")
	tagIdx := strings.Index(output, "[tag ")
	mediaIdx := strings.Index(output, "[media ")
	pmIdx := strings.Index(output, "[post_media ")
	if catIdx < 0 || postIdx < 0 || tagIdx < 0 || mediaIdx < 0 || pmIdx < 0 {
		t.Fatalf("missing section headers in output:\n%s", output)
	}
	if !(catIdx < postIdx && postIdx < tagIdx && mediaIdx < pmIdx) {
		t.Errorf("sections out of dependency order:\n%s", output)
	}
}

func TestWriterRoundTrip(t *testing.T) {
	ts := time.Date(2024, 5, 1, 10, 30, 0, 0, time.UTC)
	store := newFakeStore()
	store.queries[`SELECT * FROM "qp_post" ORDER BY 1`] = &fakeRows{
		cols: []string{"post_id", "blog_id", "post_title", "post_body", "post_date"},
		data: [][]any{
			{int64(5), int64(1), `Tricky "title"` + "\nsecond line", `body with \ slash`, ts},
		},
	}

	var out strings.Builder
	w := NewWriter(store, &out)
	if err := w.WriteManifest(ModeSingle); err != nil {
		t.Fatalf("WriteManifest error: %v", err)
	}
	if err := w.ExportSection(context.Background(), "post"); err != nil {
		t.Fatalf("ExportSection error: %v", err)
	}

	r := NewReader(strings.NewReader(out.String()))
	rec, err := r.Next()
	if err != nil {
		t.Fatalf("Next() error: %v", err)
	}

	if got := rec.Get("post_title"); got != `Tricky "title"`+"\nsecond line" {
		t.Errorf("post_title round trip = %q", got)
	}
	if got := rec.Get("post_body"); got != `body with \ slash` {
		t.Errorf("post_body round trip = %q", got)
	}
	if got := rec.Get("post_date"); got != "2024-05-01 10:30:00" {
		t.Errorf("post_date round trip = %q", got)
	}
	if got := rec.Get("post_id"); got != "5" {
		t.Errorf("post_id round trip = %q", got)
	}
}
