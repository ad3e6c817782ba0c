package backup

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// defaultTimezone fills a blog record whose export predates the timezone
// column.
const defaultTimezone = "UTC"

// fullImporter restores an entire instance into a caller-verified empty
// store. Identifiers and foreign keys are inserted exactly as they appear in
// the file. A few sections are defensively de-duplicated by natural key so a
// restore over residual rows does not duplicate or error.
type fullImporter struct{}

func newFullImporter() *fullImporter { return &fullImporter{} }

// prepare deletes the four wholly-replaced tables, children before parents.
func (im *fullImporter) prepare(ctx context.Context, tx DBTX) error {
	for _, stmt := range []string{sqlDeleteConfig, sqlDeleteLink, sqlDeleteCategory, sqlDeleteBlog} {
		if _, err := tx.Exec(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

func (im *fullImporter) handle(ctx context.Context, tx DBTX, sec Section, rec *Record) error {
	switch sec {
	case SectionBlog:
		return im.insertBlog(ctx, tx, rec)
	case SectionUser:
		return im.insertUser(ctx, tx, rec)
	case SectionConfig:
		_, err := tx.Exec(ctx, sqlInsertConfig,
			toInt64(rec.Get("blog_id")),
			toPgText(rec.Get("setting_name")),
			toPgText(rec.Get("setting_value")))
		return err
	case SectionCategory:
		_, err := tx.Exec(ctx, sqlInsertCategory,
			toInt64(rec.Get("cat_id")),
			toInt64(rec.Get("blog_id")),
			toPgText(rec.Get("cat_title")),
			toPgText(rec.Get("cat_url")))
		return err
	case SectionLink:
		_, err := tx.Exec(ctx, sqlInsertLink,
			toInt64(rec.Get("link_id")),
			toInt64(rec.Get("blog_id")),
			toPgText(rec.Get("link_title")),
			toPgText(rec.Get("link_url")))
		return err
	case SectionPost:
		_, err := tx.Exec(ctx, sqlInsertPost,
			toInt64(rec.Get("post_id")),
			toInt64(rec.Get("blog_id")),
			toPgInt8(rec.Get("cat_id")),
			toPgInt8(rec.Get("user_id")),
			toPgText(rec.Get("post_author")),
			toPgText(rec.Get("post_title")),
			toPgText(rec.Get("post_url")),
			toPgText(rec.Get("post_body")),
			toPgText(rec.Get("post_body_html")),
			toPgText(rec.Get("post_markup")),
			toPgTimestamp(rec.Get("post_date")),
			toPgText(rec.Get("post_status")))
		return err
	case SectionTag:
		_, err := tx.Exec(ctx, sqlInsertTag,
			toInt64(rec.Get("tag_id")),
			toInt64(rec.Get("post_id")),
			toPgText(rec.Get("tag_name")))
		return err
	case SectionMedia:
		return im.insertMedia(ctx, tx, rec)
	case SectionPostMedia:
		_, err := tx.Exec(ctx, sqlInsertPostMedia,
			toInt64(rec.Get("post_id")),
			toInt64(rec.Get("media_id")))
		return err
	case SectionPing:
		_, err := tx.Exec(ctx, sqlInsertPing,
			toInt64(rec.Get("ping_id")),
			toInt64(rec.Get("post_id")),
			toPgText(rec.Get("ping_url")),
			toPgText(rec.Get("ping_title")),
			toPgTimestamp(rec.Get("ping_date")))
		return err
	case SectionComment:
		_, err := tx.Exec(ctx, sqlInsertComment,
			toInt64(rec.Get("comment_id")),
			toInt64(rec.Get("post_id")),
			toPgText(rec.Get("comment_author")),
			toPgText(rec.Get("comment_email")),
			toPgText(rec.Get("comment_body")),
			toPgTimestamp(rec.Get("comment_date")))
		return err
	case SectionPermission:
		_, err := tx.Exec(ctx, sqlInsertPermission,
			toInt64(rec.Get("user_id")),
			toInt64(rec.Get("blog_id")),
			toPgText(rec.Get("role")))
		return err
	}
	return nil
}

func (im *fullImporter) insertBlog(ctx context.Context, tx DBTX, rec *Record) error {
	tz := rec.Get("blog_timezone")
	if tz == "" {
		tz = defaultTimezone
	}
	_, err := tx.Exec(ctx, sqlInsertBlog,
		toInt64(rec.Get("blog_id")),
		toPgText(rec.Get("blog_name")),
		toPgText(rec.Get("blog_slug")),
		toPgText(tz))
	return err
}

// insertUser skips a user already present by login rather than erroring.
func (im *fullImporter) insertUser(ctx context.Context, tx DBTX, rec *Record) error {
	var existing int64
	err := tx.QueryRow(ctx, sqlSelectUserByLogin, rec.Get("user_login")).Scan(&existing)
	if err == nil {
		return nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("lookup user %q: %w", rec.Get("user_login"), err)
	}

	_, err = tx.Exec(ctx, sqlInsertUser,
		toInt64(rec.Get("user_id")),
		toPgText(rec.Get("user_login")),
		toPgText(rec.Get("user_name")),
		toPgText(rec.Get("user_email")),
		toPgBool(rec.Get("user_admin")))
	return err
}

// insertMedia skips an asset already present by its (path, file) natural key.
func (im *fullImporter) insertMedia(ctx context.Context, tx DBTX, rec *Record) error {
	var existing int64
	err := tx.QueryRow(ctx, sqlSelectMediaByPathFile,
		rec.Get("media_path"), rec.Get("media_file")).Scan(&existing)
	if err == nil {
		return nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("lookup media %s/%s: %w", rec.Get("media_path"), rec.Get("media_file"), err)
	}

	_, err = tx.Exec(ctx, sqlInsertMedia,
		toInt64(rec.Get("media_id")),
		toInt64(rec.Get("blog_id")),
		toPgText(rec.Get("media_path")),
		toPgText(rec.Get("media_file")),
		toPgText(rec.Get("media_title")))
	return err
}
