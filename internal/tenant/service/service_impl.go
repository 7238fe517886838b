package service

import (
	"context"
	"strings"

	"github.com/smallbiznis/invoicenotify/internal/config"
	"github.com/smallbiznis/invoicenotify/internal/tenant/domain"
	"github.com/smallbiznis/invoicenotify/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Params struct {
	fx.In

	DB   *db.RegistryDB
	Log  *zap.Logger
	Cfg  config.Config
	Repo domain.Repository
}

type Service struct {
	db       *db.RegistryDB
	log      *zap.Logger
	defaults config.TenantDBConfig
	repo     domain.Repository
}

func New(p Params) domain.Service {
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("tenant.service"),
		defaults: p.Cfg.TenantDB,
		repo:     p.Repo,
	}
}

func (s *Service) ListActive(ctx context.Context) ([]domain.TenantConnection, error) {
	tenants, err := s.repo.ListActive(ctx, s.db.DB)
	if err != nil {
		return nil, err
	}
	for i := range tenants {
		tenants[i] = s.withDefaults(tenants[i])
	}
	return tenants, nil
}

func (s *Service) FindBySubdomain(ctx context.Context, subdomain string) (domain.TenantConnection, error) {
	subdomain = strings.TrimSpace(subdomain)
	if subdomain == "" {
		return domain.TenantConnection{}, domain.ErrInvalidSubdomain
	}
	tenant, err := s.repo.FindBySubdomain(ctx, s.db.DB, subdomain)
	return s.result(tenant, err)
}

func (s *Service) FindByID(ctx context.Context, id int64) (domain.TenantConnection, error) {
	if id <= 0 {
		return domain.TenantConnection{}, domain.ErrNotFound
	}
	tenant, err := s.repo.FindByID(ctx, s.db.DB, id)
	return s.result(tenant, err)
}

func (s *Service) FindByTaxID(ctx context.Context, taxID string) (domain.TenantConnection, error) {
	taxID = strings.TrimSpace(taxID)
	if taxID == "" {
		return domain.TenantConnection{}, domain.ErrInvalidTaxID
	}
	tenant, err := s.repo.FindByTaxID(ctx, s.db.DB, taxID)
	return s.result(tenant, err)
}

func (s *Service) result(tenant *domain.TenantConnection, err error) (domain.TenantConnection, error) {
	if err != nil {
		return domain.TenantConnection{}, err
	}
	if tenant == nil {
		return domain.TenantConnection{}, domain.ErrNotFound
	}
	return s.withDefaults(*tenant), nil
}

func (s *Service) withDefaults(t domain.TenantConnection) domain.TenantConnection {
	if t.Driver == "" {
		t.Driver = s.defaults.Driver
	}
	if t.Port == "" {
		t.Port = s.defaults.Port
	}
	return t
}
