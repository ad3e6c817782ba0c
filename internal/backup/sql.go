package backup

// sql.go holds the statements shared by both importers. Keeping them as
// package constants lets tests route a fake store by statement identity.

const (
	sqlInsertBlog       = "INSERT INTO qp_blog (blog_id, blog_name, blog_slug, blog_timezone) VALUES ($1, $2, $3, $4)"
	sqlInsertUser       = "INSERT INTO qp_user (user_id, user_login, user_name, user_email, user_admin) VALUES ($1, $2, $3, $4, $5)"
	sqlInsertConfig     = "INSERT INTO qp_config (blog_id, setting_name, setting_value) VALUES ($1, $2, $3)"
	sqlInsertCategory   = "INSERT INTO qp_category (cat_id, blog_id, cat_title, cat_url) VALUES ($1, $2, $3, $4)"
	sqlInsertLink       = "INSERT INTO qp_link (link_id, blog_id, link_title, link_url) VALUES ($1, $2, $3, $4)"
	sqlInsertPost       = "INSERT INTO qp_post (post_id, blog_id, cat_id, user_id, post_author, post_title, post_url, post_body, post_body_html, post_markup, post_date, post_status) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)"
	sqlInsertTag        = "INSERT INTO qp_tag (tag_id, post_id, tag_name) VALUES ($1, $2, $3)"
	sqlInsertMedia      = "INSERT INTO qp_media (media_id, blog_id, media_path, media_file, media_title) VALUES ($1, $2, $3, $4, $5)"
	sqlInsertPostMedia  = "INSERT INTO qp_post_media (post_id, media_id) VALUES ($1, $2)"
	sqlInsertPing       = "INSERT INTO qp_ping (ping_id, post_id, ping_url, ping_title, ping_date) VALUES ($1, $2, $3, $4, $5)"
	sqlInsertComment    = "INSERT INTO qp_comment (comment_id, post_id, comment_author, comment_email, comment_body, comment_date) VALUES ($1, $2, $3, $4, $5, $6)"
	sqlInsertPermission = "INSERT INTO qp_permission (user_id, blog_id, role) VALUES ($1, $2, $3)"

	sqlSelectUserByLogin     = "SELECT user_id FROM qp_user WHERE user_login = $1"
	sqlSelectMediaByPathFile = "SELECT media_id FROM qp_media WHERE media_path = $1 AND media_file = $2"
	sqlSelectCategoryBySlug  = "SELECT cat_id FROM qp_category WHERE blog_id = $1 AND cat_url = $2"

	sqlInsertImportLog = "INSERT INTO qp_import_log (run_id, run_mode, run_version, blog_id, operator_id, started_at) VALUES ($1, $2, $3, $4, $5, $6)"

	// Full-instance import wholly replaces these four tables; children are
	// deleted before their parents.
	sqlDeleteConfig   = "DELETE FROM qp_config"
	sqlDeleteLink     = "DELETE FROM qp_link"
	sqlDeleteCategory = "DELETE FROM qp_category"
	sqlDeleteBlog     = "DELETE FROM qp_blog"
)
