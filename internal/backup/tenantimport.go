package backup

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

// tenantImporter merges one exported tenant into a store that already holds
// other tenants' data. Every identifier is re-derived: new values come from
// per-table counters seeded past the store's current maximum, and foreign
// keys are rewritten through per-kind translation tables built as parent
// rows are inserted. A dependent record whose parent has not been translated
// yet fails the run with a ReferenceError rather than inserting a dangling
// reference.
//
// All state below is owned by one import run; nothing is shared across runs.
type tenantImporter struct {
	blogID        int64
	operatorID    int64
	instanceAdmin bool
	assetRoot     string

	oldIDs map[IDKind]map[int64]int64
	next   map[string]int64
	users  map[string]int64
}

func newTenantImporter(blogID, operatorID int64, instanceAdmin bool, assetRoot string) *tenantImporter {
	if assetRoot == "" {
		assetRoot = fmt.Sprintf("/media/blog/%d", blogID)
	}
	return &tenantImporter{
		blogID:        blogID,
		operatorID:    operatorID,
		instanceAdmin: instanceAdmin,
		assetRoot:     assetRoot,
		oldIDs: map[IDKind]map[int64]int64{
			KindCategory: {},
			KindPost:     {},
			KindMedia:    {},
		},
		next:  make(map[string]int64),
		users: make(map[string]int64),
	}
}

// prepare seeds every allocation counter from max(existing id)+1. Seeds are
// instance-wide: identifiers are unique per table across tenants, so a
// tenant-scoped seed could collide with other tenants' rows.
func (im *tenantImporter) prepare(ctx context.Context, tx DBTX) error {
	for table, col := range idColumns {
		var max int64
		query := fmt.Sprintf("SELECT COALESCE(MAX(%s), 0) FROM %s", col, table)
		if err := tx.QueryRow(ctx, query).Scan(&max); err != nil {
			return fmt.Errorf("seed %s counter: %w", table, err)
		}
		im.next[table] = max + 1
	}
	return nil
}

// alloc returns the next identifier for a table. Counters only increase
// within a run; an identifier is never reused.
func (im *tenantImporter) alloc(table string) int64 {
	id := im.next[table]
	im.next[table] = id + 1
	return id
}

func (im *tenantImporter) recordID(kind IDKind, oldID, newID int64) {
	if oldID != 0 {
		im.oldIDs[kind][oldID] = newID
	}
}

// requireTranslated resolves a dependent record's parent reference, failing
// with a ReferenceError when the parent was not seen earlier in the file.
func (im *tenantImporter) requireTranslated(rec *Record, kind IDKind, field string) (int64, error) {
	oldID := toInt64(rec.Get(field))
	newID, ok := im.oldIDs[kind][oldID]
	if oldID == 0 || !ok {
		return 0, &ReferenceError{Section: rec.Section(), Line: rec.Line(), Kind: kind, OldID: oldID}
	}
	return newID, nil
}

func (im *tenantImporter) handle(ctx context.Context, tx DBTX, sec Section, rec *Record) error {
	switch sec {
	case SectionCategory:
		return im.importCategory(ctx, tx, rec)
	case SectionLink:
		return im.importLink(ctx, tx, rec)
	case SectionPost:
		return im.importPost(ctx, tx, rec)
	case SectionTag:
		return im.importTag(ctx, tx, rec)
	case SectionMedia:
		return im.importMedia(ctx, tx, rec)
	case SectionPostMedia:
		return im.importPostMedia(ctx, tx, rec)
	case SectionPing:
		return im.importPing(ctx, tx, rec)
	case SectionComment:
		return im.importComment(ctx, tx, rec)
	}
	// blog, user, config and permission records describe the source
	// instance; the destination tenant already exists, so they are ignored.
	return nil
}

// importCategory merges by slug: a destination category with the same URL
// slug is reused instead of duplicated, which lets repeated imports grow one
// category tree. The source identifier is translated either way.
func (im *tenantImporter) importCategory(ctx context.Context, tx DBTX, rec *Record) error {
	slug := rec.Get("cat_url")
	if slug == "" {
		slug = slugify(rec.Get("cat_title"))
	}

	var id int64
	err := tx.QueryRow(ctx, sqlSelectCategoryBySlug, im.blogID, slug).Scan(&id)
	switch {
	case err == nil:
		// Existing category keeps its identifier; nothing inserted.
	case errors.Is(err, pgx.ErrNoRows):
		id = im.alloc(tablePrefix + "category")
		if _, err := tx.Exec(ctx, sqlInsertCategory,
			id, im.blogID,
			toPgText(rec.Get("cat_title")),
			toPgText(slug)); err != nil {
			return err
		}
	default:
		return fmt.Errorf("lookup category %q: %w", slug, err)
	}

	im.recordID(KindCategory, toInt64(rec.Get("cat_id")), id)
	return nil
}

func (im *tenantImporter) importLink(ctx context.Context, tx DBTX, rec *Record) error {
	_, err := tx.Exec(ctx, sqlInsertLink,
		im.alloc(tablePrefix+"link"), im.blogID,
		toPgText(rec.Get("link_title")),
		toPgText(rec.Get("link_url")))
	return err
}

func (im *tenantImporter) importPost(ctx context.Context, tx DBTX, rec *Record) error {
	var catRef pgtype.Int8
	if oldCat := toInt64(rec.Get("cat_id")); oldCat != 0 {
		newCat, ok := im.oldIDs[KindCategory][oldCat]
		if !ok {
			return &ReferenceError{Section: rec.Section(), Line: rec.Line(), Kind: KindCategory, OldID: oldCat}
		}
		catRef = pgtype.Int8{Int64: newCat, Valid: true}
	}

	userID, err := im.ensureAuthor(ctx, tx, rec.Get("post_author"))
	if err != nil {
		return err
	}

	id := im.alloc(tablePrefix + "post")
	url := makePostSlug(id, rec.Get("post_title"), rec.Get("post_date"))

	if _, err := tx.Exec(ctx, sqlInsertPost,
		id, im.blogID, catRef,
		pgtype.Int8{Int64: userID, Valid: true},
		toPgText(rec.Get("post_author")),
		toPgText(rec.Get("post_title")),
		toPgText(url),
		toPgText(rec.Get("post_body")),
		toPgText(rec.Get("post_body_html")),
		toPgText(rec.Get("post_markup")),
		toPgTimestamp(rec.Get("post_date")),
		toPgText(rec.Get("post_status"))); err != nil {
		return err
	}

	im.recordID(KindPost, toInt64(rec.Get("post_id")), id)
	return nil
}

// ensureAuthor resolves the post's author by login. A missing author gets a
// lambda account synthesized deterministically from the sanitized source
// login; without instance-wide rights to create users the record falls back
// to the operator.
func (im *tenantImporter) ensureAuthor(ctx context.Context, tx DBTX, author string) (int64, error) {
	login := sanitizeLogin(author)
	if login == "" {
		return im.operatorID, nil
	}
	if id, ok := im.users[login]; ok {
		return id, nil
	}

	var id int64
	err := tx.QueryRow(ctx, sqlSelectUserByLogin, login).Scan(&id)
	switch {
	case err == nil:
	case errors.Is(err, pgx.ErrNoRows):
		if !im.instanceAdmin {
			id = im.operatorID
		} else {
			id = im.alloc(tablePrefix + "user")
			if _, err := tx.Exec(ctx, sqlInsertUser,
				id,
				toPgText(login),
				toPgText(author),
				pgtype.Text{},
				pgtype.Bool{Bool: false, Valid: true}); err != nil {
				return 0, err
			}
		}
	default:
		return 0, fmt.Errorf("lookup user %q: %w", login, err)
	}

	im.users[login] = id
	return id, nil
}

func (im *tenantImporter) importTag(ctx context.Context, tx DBTX, rec *Record) error {
	postID, err := im.requireTranslated(rec, KindPost, "post_id")
	if err != nil {
		return err
	}
	_, err = tx.Exec(ctx, sqlInsertTag,
		im.alloc(tablePrefix+"tag"), postID,
		toPgText(rec.Get("tag_name")))
	return err
}

// importMedia always inserts a fresh asset row with its storage path
// rewritten under the destination tenant's asset root.
func (im *tenantImporter) importMedia(ctx context.Context, tx DBTX, rec *Record) error {
	id := im.alloc(tablePrefix + "media")
	if _, err := tx.Exec(ctx, sqlInsertMedia,
		id, im.blogID,
		toPgText(im.assetRoot),
		toPgText(rec.Get("media_file")),
		toPgText(rec.Get("media_title"))); err != nil {
		return err
	}
	im.recordID(KindMedia, toInt64(rec.Get("media_id")), id)
	return nil
}

func (im *tenantImporter) importPostMedia(ctx context.Context, tx DBTX, rec *Record) error {
	postID, err := im.requireTranslated(rec, KindPost, "post_id")
	if err != nil {
		return err
	}
	mediaID, err := im.requireTranslated(rec, KindMedia, "media_id")
	if err != nil {
		return err
	}
	_, err = tx.Exec(ctx, sqlInsertPostMedia, postID, mediaID)
	return err
}

func (im *tenantImporter) importPing(ctx context.Context, tx DBTX, rec *Record) error {
	postID, err := im.requireTranslated(rec, KindPost, "post_id")
	if err != nil {
		return err
	}
	_, err = tx.Exec(ctx, sqlInsertPing,
		im.alloc(tablePrefix+"ping"), postID,
		toPgText(rec.Get("ping_url")),
		toPgText(rec.Get("ping_title")),
		toPgTimestamp(rec.Get("ping_date")))
	return err
}

func (im *tenantImporter) importComment(ctx context.Context, tx DBTX, rec *Record) error {
	postID, err := im.requireTranslated(rec, KindPost, "post_id")
	if err != nil {
		return err
	}
	_, err = tx.Exec(ctx, sqlInsertComment,
		im.alloc(tablePrefix+"comment"), postID,
		toPgText(rec.Get("comment_author")),
		toPgText(rec.Get("comment_email")),
		toPgText(rec.Get("comment_body")),
		toPgTimestamp(rec.Get("comment_date")))
	return err
}

// sanitizeLogin lowers a source author identifier to the characters a login
// may contain.
func sanitizeLogin(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-', r == '_', r == '.':
			b.WriteRune(r)
		}
	}
	return b.String()
}
