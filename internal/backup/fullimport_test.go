package backup

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5/pgtype"
)

func TestFullPrepareReplacesTables(t *testing.T) {
	store := newFakeStore()
	im := newFullImporter()
	if err := im.prepare(context.Background(), store); err != nil {
		t.Fatalf("prepare error: %v", err)
	}

	// Children before parents, so the deletes do not trip foreign keys.
	want := []string{sqlDeleteConfig, sqlDeleteLink, sqlDeleteCategory, sqlDeleteBlog}
	if len(store.execLog) != len(want) {
		t.Fatalf("exec log = %v", store.execLog)
	}
	for i, stmt := range want {
		if store.execLog[i] != stmt {
			t.Errorf("delete %d = %q, want %q", i, store.execLog[i], stmt)
		}
	}
}

func TestFullImportTrustsIdentifiers(t *testing.T) {
	store := newFakeStore()
	im := newFullImporter()
	ctx := context.Background()

	post := newTestRecord("post", 8,
		"post_id", "5", "blog_id", "2", "cat_id", "10", "user_id", "3",
		"post_author", "alice", "post_title", "Hello", "post_url", "hello",
		"post_body", "b", "post_body_html", "<p>b</p>", "post_markup", "html",
		"post_date", "2024-05-01 10:00:00", "post_status", "published")
	if err := im.handle(ctx, store, SectionPost, post); err != nil {
		t.Fatalf("handle error: %v", err)
	}

	args := store.insertArgs(sqlInsertPost, 0)
	if args[0].(int64) != 5 || args[1].(int64) != 2 {
		t.Errorf("post inserted as (%v, %v), want verbatim (5, 2)", args[0], args[1])
	}
	if cat := args[2].(pgtype.Int8); !cat.Valid || cat.Int64 != 10 {
		t.Errorf("cat_id = %+v, want verbatim 10", cat)
	}
	if got := textArg(args[6]); got != "hello" {
		t.Errorf("post_url = %q, want preserved hello", got)
	}
}

func TestFullImportBlogTimezoneDefault(t *testing.T) {
	store := newFakeStore()
	im := newFullImporter()

	rec := newTestRecord("blog", 2, "blog_id", "1", "blog_name", "B", "blog_slug", "b", "blog_timezone", "")
	if err := im.handle(context.Background(), store, SectionBlog, rec); err != nil {
		t.Fatalf("handle error: %v", err)
	}

	args := store.insertArgs(sqlInsertBlog, 0)
	if got := textArg(args[3]); got != "UTC" {
		t.Errorf("blog_timezone = %q, want default UTC", got)
	}
}

func TestFullImportUserDedupByLogin(t *testing.T) {
	store := newFakeStore()
	store.users["alice"] = 3
	im := newFullImporter()
	ctx := context.Background()

	existing := newTestRecord("user", 3, "user_id", "9", "user_login", "alice", "user_admin", "1")
	if err := im.handle(ctx, store, SectionUser, existing); err != nil {
		t.Fatalf("handle error: %v", err)
	}
	if store.count(sqlInsertUser) != 0 {
		t.Error("duplicate login inserted a second user")
	}

	fresh := newTestRecord("user", 4, "user_id", "10", "user_login", "bob", "user_admin", "0")
	if err := im.handle(ctx, store, SectionUser, fresh); err != nil {
		t.Fatalf("handle error: %v", err)
	}
	if store.count(sqlInsertUser) != 1 {
		t.Fatal("new user was not inserted")
	}
	args := store.insertArgs(sqlInsertUser, 0)
	if args[0].(int64) != 10 {
		t.Errorf("user id = %v, want verbatim 10", args[0])
	}
}

func TestFullImportMediaDedupByPathFile(t *testing.T) {
	store := newFakeStore()
	store.media["/m|a.jpg"] = 4
	im := newFullImporter()
	ctx := context.Background()

	dup := newTestRecord("media", 5,
		"media_id", "9", "blog_id", "1", "media_path", "/m", "media_file", "a.jpg", "media_title", "A")
	if err := im.handle(ctx, store, SectionMedia, dup); err != nil {
		t.Fatalf("handle error: %v", err)
	}
	if store.count(sqlInsertMedia) != 0 {
		t.Error("duplicate asset inserted a second row")
	}

	fresh := newTestRecord("media", 6,
		"media_id", "9", "blog_id", "1", "media_path", "/m", "media_file", "b.jpg", "media_title", "B")
	if err := im.handle(ctx, store, SectionMedia, fresh); err != nil {
		t.Fatalf("handle error: %v", err)
	}
	if store.count(sqlInsertMedia) != 1 {
		t.Error("new asset was not inserted")
	}
}

func TestFullImportPermission(t *testing.T) {
	store := newFakeStore()
	im := newFullImporter()

	rec := newTestRecord("permission", 7, "user_id", "3", "blog_id", "1", "role", "editor")
	if err := im.handle(context.Background(), store, SectionPermission, rec); err != nil {
		t.Fatalf("handle error: %v", err)
	}

	args := store.insertArgs(sqlInsertPermission, 0)
	if args[0].(int64) != 3 || args[1].(int64) != 1 || textArg(args[2]) != "editor" {
		t.Errorf("permission inserted as %v", args)
	}
}
