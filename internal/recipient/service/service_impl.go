package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/smallbiznis/invoicenotify/internal/config"
	"github.com/smallbiznis/invoicenotify/internal/recipient/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB   *gorm.DB
	Log  *zap.Logger
	Cfg  config.Config
	Repo domain.Repository
}

type Service struct {
	db            *gorm.DB
	log           *zap.Logger
	repo          domain.Repository
	globalSupport string
}

func New(p Params) domain.Service {
	global := strings.TrimSpace(p.Cfg.Notify.GlobalSupportSubdomain)
	if global == "" {
		global = "global_support"
	}
	return &Service{
		db:            p.DB,
		log:           p.Log.Named("recipient.service"),
		repo:          p.Repo,
		globalSupport: global,
	}
}

// Resolve returns the active setting of a company together with the phones
// of its group's active contacts, in contact order.
func (s *Service) Resolve(ctx context.Context, subdomain string) (domain.Recipients, error) {
	subdomain = strings.TrimSpace(subdomain)
	if subdomain == "" {
		return domain.Recipients{}, domain.ErrInvalidSubdomain
	}

	setting, err := s.repo.FindActiveSetting(ctx, s.db, subdomain)
	if err != nil {
		return domain.Recipients{}, err
	}
	if setting == nil {
		return domain.Recipients{}, fmt.Errorf("%w: %s", domain.ErrNotConfigured, subdomain)
	}

	group, err := s.repo.FindActiveGroup(ctx, s.db, setting.NotificationGroupID)
	if err != nil {
		return domain.Recipients{}, err
	}
	if group == nil {
		return domain.Recipients{}, fmt.Errorf("%w: %s", domain.ErrNotConfigured, subdomain)
	}

	contacts, err := s.repo.ListActiveContacts(ctx, s.db, group.ID)
	if err != nil {
		return domain.Recipients{}, err
	}

	phones := make([]string, 0, len(contacts))
	for _, contact := range contacts {
		if phone := strings.TrimSpace(contact.PhoneNumber); phone != "" {
			phones = append(phones, phone)
		}
	}

	recipients := domain.Recipients{
		Setting:  *setting,
		Group:    *group,
		Contacts: contacts,
		Phones:   phones,
	}
	if len(phones) == 0 {
		return recipients, fmt.Errorf("%w: group %s", domain.ErrNoContacts, group.GroupName)
	}
	return recipients, nil
}

// ConfiguredCompanies lists companies with an active setting, one entry per
// company, skipping the global support pseudo-company.
func (s *Service) ConfiguredCompanies(ctx context.Context) ([]domain.ConfiguredCompany, error) {
	rows, err := s.repo.ListActiveSettings(ctx, s.db)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{}, len(rows))
	companies := make([]domain.ConfiguredCompany, 0, len(rows))
	for _, row := range rows {
		if strings.EqualFold(row.Subdomain, s.globalSupport) {
			continue
		}
		if _, ok := seen[row.Subdomain]; ok {
			continue
		}
		seen[row.Subdomain] = struct{}{}
		companies = append(companies, row)
	}
	return companies, nil
}

func (s *Service) ActiveGroups(ctx context.Context) ([]domain.GroupSummary, error) {
	groups, err := s.repo.ListActiveGroups(ctx, s.db)
	if err != nil {
		return nil, err
	}

	summaries := make([]domain.GroupSummary, 0, len(groups))
	for _, group := range groups {
		contacts, err := s.repo.ListActiveContacts(ctx, s.db, group.ID)
		if err != nil {
			return nil, err
		}
		companies, err := s.repo.ListCompaniesByGroup(ctx, s.db, group.ID)
		if err != nil {
			return nil, err
		}
		if contacts == nil {
			contacts = []domain.Contact{}
		}
		if companies == nil {
			companies = []string{}
		}
		summaries = append(summaries, domain.GroupSummary{
			Group:     group,
			Contacts:  contacts,
			Companies: companies,
		})
	}
	return summaries, nil
}

func (s *Service) CompaniesByGroup(ctx context.Context, groupID int64) ([]string, error) {
	return s.repo.ListCompaniesByGroup(ctx, s.db, groupID)
}
