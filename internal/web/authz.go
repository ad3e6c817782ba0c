package web

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	sqlSelectUserAdmin = `SELECT user_admin FROM qp_user WHERE user_id = $1`
	sqlSelectBlogRole  = `SELECT role FROM qp_permission WHERE user_id = $1 AND blog_id = $2`
)

// pgAuthorizer answers authorization checks from the user and permission
// tables. It implements backup.Authorizer.
type pgAuthorizer struct {
	pool *pgxpool.Pool
}

// NewAuthorizer creates an authorizer backed by the given pool.
func NewAuthorizer(pool *pgxpool.Pool) *pgAuthorizer {
	return &pgAuthorizer{pool: pool}
}

// CanAdminInstance reports whether the user holds the instance admin flag.
// An unknown user is simply not an admin.
func (a *pgAuthorizer) CanAdminInstance(ctx context.Context, userID int64) (bool, error) {
	var admin bool
	err := a.pool.QueryRow(ctx, sqlSelectUserAdmin, userID).Scan(&admin)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("look up user %d: %w", userID, err)
	}
	return admin, nil
}

// CanAdminBlog reports whether the user may administer the given blog: either
// an owner or admin role on the blog itself, or the instance admin flag.
func (a *pgAuthorizer) CanAdminBlog(ctx context.Context, userID, blogID int64) (bool, error) {
	var role string
	err := a.pool.QueryRow(ctx, sqlSelectBlogRole, userID, blogID).Scan(&role)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return a.CanAdminInstance(ctx, userID)
	case err != nil:
		return false, fmt.Errorf("look up permission for user %d on blog %d: %w", userID, blogID, err)
	}
	if role == "owner" || role == "admin" {
		return true, nil
	}
	return a.CanAdminInstance(ctx, userID)
}
