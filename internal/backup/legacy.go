package backup

// Pre-2.0 exports carry the old column vocabulary. upgradeLegacyRecord
// rewrites one record in place to the current shape so both importers only
// ever see current-format fields.
//
// The old post format stored the raw source in post_wiki (when the post was
// wiki markup) or nothing, and the rendered page in post_content. The
// current format keeps source and rendering side by side as post_body and
// post_body_html with an explicit post_markup discriminator.
func upgradeLegacyRecord(rec *Record) {
	switch rec.Section() {
	case "category":
		rec.Substitute("cat_name", "cat_title")
		if !rec.Has("cat_url") {
			rec.Set("cat_url", slugify(rec.Get("cat_title")))
		}

	case "post":
		rec.Substitute("post_subject", "post_title")

		if wiki := rec.Get("post_wiki"); wiki != "" {
			rec.Set("post_body", wiki)
			rec.Set("post_markup", "wiki")
		} else {
			rec.Set("post_body", rec.Get("post_content"))
			rec.Set("post_markup", "html")
		}
		rec.Set("post_body_html", rec.Get("post_content"))
		rec.Drop("post_content")
		rec.Drop("post_wiki")
		rec.Drop("post_karma")

		if !rec.Has("post_url") {
			rec.Set("post_url", makePostSlug(
				toInt64(rec.Get("post_id")),
				rec.Get("post_title"),
				rec.Get("post_date")))
		}
		if rec.Get("post_status") == "" {
			rec.Set("post_status", "published")
		}

	case "comment":
		rec.Substitute("comment_name", "comment_author")
	}
}
