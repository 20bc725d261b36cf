package api

import (
	"context"
	"time"

	"github.com/lysyi3m/folio-pulse/app/analytics"
	"github.com/lysyi3m/folio-pulse/app/auth"
	"github.com/lysyi3m/folio-pulse/app/cfg"
	"github.com/lysyi3m/folio-pulse/app/dashboard"
	"github.com/lysyi3m/folio-pulse/app/unread"
)

type ReportEngine interface {
	Refresh(ctx context.Context, r analytics.Range) (*dashboard.Report, error)
	Current() (*dashboard.Report, error)
	Settings() *cfg.Dashboard
}

type UnreadSyncer interface {
	Status() unread.Status
	SyncNow(ctx context.Context) (bool, error)
}

type SessionManager interface {
	Login(token string) error
	Logout()
	State() auth.State
	Subject() string
	ExpiresAt() time.Time
}

var (
	_ ReportEngine   = (*dashboard.Engine)(nil)
	_ UnreadSyncer   = (*unread.Synchronizer)(nil)
	_ SessionManager = (*auth.Session)(nil)
)

type Handler struct {
	engine  ReportEngine
	counter *unread.Counter
	syncer  UnreadSyncer
	session SessionManager
	version string
}

type loginRequest struct {
	Token string `json:"token" binding:"required"`
}
