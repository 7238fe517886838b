package repository

import (
	"context"

	"github.com/smallbiznis/invoicenotify/internal/tenant/domain"
	"gorm.io/gorm"
)

const selectColumns = `e.id_empresa AS id, e.sub_dominio AS subdomain, e.db_host AS db_host,
	e.db_name AS db_name, e.db_usuario AS db_user, e.db_contrasena AS db_password`

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

type tenantRow struct {
	ID         int64  `gorm:"column:id"`
	Subdomain  string `gorm:"column:subdomain"`
	DBHost     string `gorm:"column:db_host"`
	DBName     string `gorm:"column:db_name"`
	DBUser     string `gorm:"column:db_user"`
	DBPassword string `gorm:"column:db_password"`
}

func (r tenantRow) toDomain() domain.TenantConnection {
	return domain.TenantConnection{
		ID:         r.ID,
		Subdomain:  r.Subdomain,
		DBHost:     r.DBHost,
		DBName:     r.DBName,
		DBUser:     r.DBUser,
		DBPassword: r.DBPassword,
		Active:     true,
	}
}

func (r *repo) ListActive(ctx context.Context, db *gorm.DB) ([]domain.TenantConnection, error) {
	var rows []tenantRow
	err := db.WithContext(ctx).Raw(
		`SELECT ` + selectColumns + `
		 FROM empresas e
		 WHERE e.estado = 1 AND e.status = 1
		 ORDER BY e.sub_dominio`,
	).Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	tenants := make([]domain.TenantConnection, 0, len(rows))
	for _, row := range rows {
		tenants = append(tenants, row.toDomain())
	}
	return tenants, nil
}

func (r *repo) FindBySubdomain(ctx context.Context, db *gorm.DB, subdomain string) (*domain.TenantConnection, error) {
	return r.findOne(ctx, db,
		`SELECT `+selectColumns+`
		 FROM empresas e
		 WHERE e.sub_dominio = ? AND e.estado = 1 AND e.status = 1`,
		subdomain,
	)
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id int64) (*domain.TenantConnection, error) {
	return r.findOne(ctx, db,
		`SELECT `+selectColumns+`
		 FROM empresas e
		 WHERE e.id_empresa = ? AND e.estado = 1 AND e.status = 1`,
		id,
	)
}

func (r *repo) FindByTaxID(ctx context.Context, db *gorm.DB, taxID string) (*domain.TenantConnection, error) {
	return r.findOne(ctx, db,
		`SELECT `+selectColumns+`
		 FROM empresas e
		 JOIN personas p ON p.id_persona = e.id_persona
		 WHERE p.ruc = ? AND p.status = 1 AND e.estado = 1 AND e.status = 1`,
		taxID,
	)
}

func (r *repo) findOne(ctx context.Context, db *gorm.DB, query string, args ...any) (*domain.TenantConnection, error) {
	var row tenantRow
	err := db.WithContext(ctx).Raw(query, args...).Scan(&row).Error
	if err != nil {
		return nil, err
	}
	if row.ID == 0 {
		return nil, nil
	}
	tenant := row.toDomain()
	return &tenant, nil
}
