package usecase

import (
	"context"

	"LeoneAI/internal/domain/models"
	pkghttp "LeoneAI/pkg/http"
)

// AdminBackend is the admin slice of the backend API.
type AdminBackend interface {
	AdminDashboard(ctx context.Context) (*models.AdminDashboard, error)
	AdminUsers(ctx context.Context, page models.Page) ([]*models.User, error)
	AdminCreateUser(ctx context.Context, req models.AdminUserCreate) (*models.User, error)
	AdminUpdateUser(ctx context.Context, id int64, req models.AdminUserUpdate) (*models.User, error)
	AdminDeleteUser(ctx context.Context, id int64) error
	AdminTrades(ctx context.Context, page models.Page) ([]*models.AdminTrade, error)
}

// Admin gates the admin surface on the superuser flag before any request
// leaves the client.
type Admin struct {
	backend AdminBackend
	session SessionView
}

func NewAdmin(b AdminBackend, session SessionView) *Admin {
	return &Admin{backend: b, session: session}
}

func (a *Admin) check() error {
	if a.session == nil || !a.session.IsAuthenticated() {
		return pkghttp.ErrAuthExpired
	}
	if !a.session.IsSuperuser() {
		return pkghttp.ForbiddenError("admin access required")
	}
	return nil
}

func (a *Admin) Dashboard(ctx context.Context) (*models.AdminDashboard, error) {
	if err := a.check(); err != nil {
		return nil, err
	}
	return a.backend.AdminDashboard(ctx)
}

func (a *Admin) Users(ctx context.Context, page models.Page) ([]*models.User, error) {
	if err := a.check(); err != nil {
		return nil, err
	}
	return a.backend.AdminUsers(ctx, page)
}

func (a *Admin) CreateUser(ctx context.Context, req models.AdminUserCreate) (*models.User, error) {
	if err := a.check(); err != nil {
		return nil, err
	}
	return a.backend.AdminCreateUser(ctx, req)
}

func (a *Admin) UpdateUser(ctx context.Context, id int64, req models.AdminUserUpdate) (*models.User, error) {
	if err := a.check(); err != nil {
		return nil, err
	}
	return a.backend.AdminUpdateUser(ctx, id, req)
}

func (a *Admin) DeleteUser(ctx context.Context, id int64) error {
	if err := a.check(); err != nil {
		return err
	}
	return a.backend.AdminDeleteUser(ctx, id)
}

func (a *Admin) Trades(ctx context.Context, page models.Page) ([]*models.AdminTrade, error) {
	if err := a.check(); err != nil {
		return nil, err
	}
	return a.backend.AdminTrades(ctx, page)
}
