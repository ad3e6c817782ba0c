package backup

import "context"

// Authorizer answers the two rights questions that gate which importer may
// run. The check itself lives outside this subsystem; the coordinator only
// consumes the answer.
type Authorizer interface {
	// CanAdminInstance reports whether the user holds instance-wide
	// administrative rights, required for full-instance restore and for
	// synthesizing user accounts during single-tenant import.
	CanAdminInstance(ctx context.Context, userID int64) (bool, error)

	// CanAdminBlog reports whether the user may administer the given blog,
	// required for single-tenant restore into it.
	CanAdminBlog(ctx context.Context, userID, blogID int64) (bool, error)
}
