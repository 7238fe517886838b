package service

import (
	"context"
	"encoding/json"
	"math"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/oklog/ulid/v2"
	"github.com/smallbiznis/invoicenotify/internal/clock"
	ledgerdomain "github.com/smallbiznis/invoicenotify/internal/ledger/domain"
	obsmetrics "github.com/smallbiznis/invoicenotify/internal/observability/metrics"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	GenID      *snowflake.Node
	Clock      clock.Clock
	Repo       ledgerdomain.Repository
	ObsMetrics *obsmetrics.Metrics `optional:"true"`
}

type Service struct {
	db         *gorm.DB
	log        *zap.Logger
	genID      *snowflake.Node
	clock      clock.Clock
	repo       ledgerdomain.Repository
	obsMetrics *obsmetrics.Metrics
}

func New(p Params) ledgerdomain.Service {
	clk := p.Clock
	if clk == nil {
		clk = clock.SystemClock{}
	}
	return &Service{
		db:         p.DB,
		log:        p.Log.Named("ledger.service"),
		genID:      p.GenID,
		clock:      clk,
		repo:       p.Repo,
		obsMetrics: p.ObsMetrics,
	}
}

func (s *Service) NotifiedIDs(ctx context.Context, subdomain string) ([]int64, error) {
	subdomain = strings.TrimSpace(subdomain)
	if subdomain == "" {
		return nil, ledgerdomain.ErrInvalidSubdomain
	}
	return s.repo.NotifiedIDs(ctx, s.db, subdomain, nil)
}

func (s *Service) NotifiedIDsForGroup(ctx context.Context, subdomain string, groupID int64) ([]int64, error) {
	subdomain = strings.TrimSpace(subdomain)
	if subdomain == "" {
		return nil, ledgerdomain.ErrInvalidSubdomain
	}
	if groupID <= 0 {
		return nil, ledgerdomain.ErrInvalidGroup
	}
	return s.repo.NotifiedIDs(ctx, s.db, subdomain, &groupID)
}

func (s *Service) IsNotified(ctx context.Context, subdomain string, invoiceID int64) (bool, error) {
	subdomain = strings.TrimSpace(subdomain)
	if subdomain == "" {
		return false, ledgerdomain.ErrInvalidSubdomain
	}
	return s.repo.Exists(ctx, s.db, subdomain, invoiceID)
}

// RecordBatch writes one row per invoice in a single transaction. Rows that
// already exist for the same company, invoice and group are left untouched
// and reported as AlreadyRecorded.
func (s *Service) RecordBatch(ctx context.Context, req ledgerdomain.RecordBatchRequest) (ledgerdomain.RecordBatchResult, error) {
	subdomain := strings.TrimSpace(req.Subdomain)
	if subdomain == "" {
		return ledgerdomain.RecordBatchResult{}, ledgerdomain.ErrInvalidSubdomain
	}
	if req.GroupID <= 0 {
		return ledgerdomain.RecordBatchResult{}, ledgerdomain.ErrInvalidGroup
	}
	template := strings.TrimSpace(req.TemplateUsed)
	if template == "" {
		return ledgerdomain.RecordBatchResult{}, ledgerdomain.ErrInvalidTemplate
	}
	if len(req.Invoices) == 0 {
		return ledgerdomain.RecordBatchResult{}, ledgerdomain.ErrEmptyBatch
	}

	successful := 0
	for _, result := range req.Results {
		if result.Success {
			successful++
		}
	}
	status := ledgerdomain.DeriveStatus(successful, len(req.Results))

	payload, err := json.Marshal(req.Results)
	if err != nil {
		return ledgerdomain.RecordBatchResult{}, err
	}
	if len(req.Results) == 0 {
		payload = []byte("[]")
	}

	notifiedAt := req.NotifiedAt
	if notifiedAt.IsZero() {
		notifiedAt = s.clock.Now()
	}
	notifiedAt = notifiedAt.UTC()
	batchID := ulid.Make().String()

	entries := make([]ledgerdomain.Entry, 0, len(req.Invoices))
	for _, invoice := range req.Invoices {
		entries = append(entries, ledgerdomain.Entry{
			ID:                  s.genID.Generate(),
			CompanySubdomain:    subdomain,
			InvoiceID:           invoice.InvoiceID,
			InvoiceFileName:     invoice.FileName,
			ErrorCode:           invoice.ErrorCode,
			ErrorDescription:    invoice.ErrorDescription,
			InvoiceDate:         invoice.InvoiceDate,
			NotifiedAt:          notifiedAt,
			TemplateUsed:        template,
			NotificationGroupID: req.GroupID,
			DeliveryResults:     datatypes.JSON(payload),
			Status:              status,
			BatchID:             batchID,
			CreatedAt:           notifiedAt,
			UpdatedAt:           notifiedAt,
		})
	}

	var inserted int64
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		n, err := s.repo.InsertBatch(ctx, tx, entries)
		if err != nil {
			return err
		}
		inserted = n
		return nil
	})
	if err != nil {
		s.log.Error("ledger.record_batch.failed",
			zap.String("tenant", subdomain),
			zap.Int("invoices", len(entries)),
			zap.Error(err),
		)
		return ledgerdomain.RecordBatchResult{}, err
	}

	result := ledgerdomain.RecordBatchResult{
		BatchID:         batchID,
		Status:          status,
		Inserted:        int(inserted),
		AlreadyRecorded: len(entries) - int(inserted),
	}
	s.obsMetrics.RecordLedgerEntries(ctx, string(status), result.Inserted)
	s.log.Info("ledger.record_batch.recorded",
		zap.String("tenant", subdomain),
		zap.String("batch_id", batchID),
		zap.String("status", string(status)),
		zap.Int("inserted", result.Inserted),
		zap.Int("already_recorded", result.AlreadyRecorded),
	)
	return result, nil
}

// Stats summarises the last days of ledger activity for a company. days is
// clamped to [1, 90]; zero selects the default week.
func (s *Service) Stats(ctx context.Context, subdomain string, days int) (ledgerdomain.Stats, error) {
	subdomain = strings.TrimSpace(subdomain)
	if subdomain == "" {
		return ledgerdomain.Stats{}, ledgerdomain.ErrInvalidSubdomain
	}
	days = clampDays(days)

	since := s.clock.Now().UTC().Add(-time.Duration(days) * 24 * time.Hour)
	stats, err := s.repo.Stats(ctx, s.db, subdomain, since)
	if err != nil {
		return ledgerdomain.Stats{}, err
	}
	stats.PeriodDays = days
	if stats.Total > 0 {
		stats.SuccessRate = round2(float64(stats.Successful) / float64(stats.Total) * 100)
	}
	return stats, nil
}

func (s *Service) History(ctx context.Context, subdomain string, limit int) ([]ledgerdomain.HistoryEntry, error) {
	return s.repo.History(ctx, s.db, strings.TrimSpace(subdomain), clampLimit(limit))
}

func clampDays(days int) int {
	switch {
	case days == 0:
		return ledgerdomain.DefaultStatsDays
	case days < 1:
		return 1
	case days > ledgerdomain.MaxStatsDays:
		return ledgerdomain.MaxStatsDays
	default:
		return days
	}
}

func clampLimit(limit int) int {
	switch {
	case limit <= 0:
		return ledgerdomain.DefaultHistoryLimit
	case limit > ledgerdomain.MaxHistoryLimit:
		return ledgerdomain.MaxHistoryLimit
	default:
		return limit
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
