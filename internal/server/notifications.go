package server

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/invoicenotify/internal/notifier"
)

func (s *Server) NotifyCompany(c *gin.Context) {
	subdomain := strings.TrimSpace(c.Param("subdomain"))
	if subdomain == "" {
		AbortWithError(c, newValidationError("subdomain", "required", "subdomain is required"))
		return
	}

	out, err := s.notifier.NotifyCompany(c.Request.Context(), subdomain)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	if status, payload, failed := outcomeFailure(out); failed {
		s.respondFailure(c, status, payload, out)
		return
	}
	s.respond(c, http.StatusOK, outcomeMessage(out), out, nil)
}

func (s *Server) NotifyAll(c *gin.Context) {
	summary, err := s.notifier.NotifyAll(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	message := fmt.Sprintf("%d of %d companies processed successfully", summary.Succeeded, summary.TenantsQueried)
	s.respond(c, http.StatusOK, message, summary.Outcomes, gin.H{
		"flow":              summary.Flow,
		"window":            summary.Window,
		"started_at":        summary.StartedAt,
		"finished_at":       summary.FinishedAt,
		"tenants_queried":   summary.TenantsQueried,
		"succeeded":         summary.Succeeded,
		"failed":            summary.Failed,
		"skipped":           summary.Skipped,
		"invoices_found":    summary.InvoicesFound,
		"invoices_notified": summary.InvoicesNotified,
	})
}

func (s *Server) NotificationHistory(c *gin.Context) {
	limit, err := parseOptionalInt(c.Query("limit"))
	if err != nil {
		AbortWithError(c, newValidationError("limit", "invalid_limit", "invalid limit"))
		return
	}

	entries, err := s.ledger.History(c.Request.Context(), c.Query("empresa"), intOrDefault(limit, 0))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.respond(c, http.StatusOK, "", entries, gin.H{"total": len(entries)})
}

func (s *Server) NotificationStats(c *gin.Context) {
	subdomain := strings.TrimSpace(c.Param("subdomain"))
	days, err := parseOptionalInt(c.Query("days"))
	if err != nil {
		AbortWithError(c, newValidationError("days", "invalid_days", "invalid days"))
		return
	}

	stats, err := s.ledger.Stats(c.Request.Context(), subdomain, intOrDefault(days, 0))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.respond(c, http.StatusOK, "", gin.H{
		"subdomain": subdomain,
		"stats":     stats,
	}, nil)
}

func (s *Server) NotificationGroups(c *gin.Context) {
	groups, err := s.recipients.ActiveGroups(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.respond(c, http.StatusOK, "", groups, gin.H{"total": len(groups)})
}

// outcomeFailure maps a single-company outcome onto the HTTP taxonomy:
// configuration gaps are 404/422, faults are 500.
func outcomeFailure(out notifier.Outcome) (int, errorPayload, bool) {
	if out.Status.Succeeded() || out.Status.Skipped() {
		return 0, errorPayload{}, false
	}

	payload := errorPayload{Type: string(out.Status), Message: out.Error}
	if payload.Message == "" {
		payload.Message = string(out.Status)
	}
	switch out.Status {
	case notifier.StatusTenantNotFound, notifier.StatusNotConfigured:
		return http.StatusNotFound, payload, true
	case notifier.StatusNoContacts, notifier.StatusConfigError:
		return http.StatusUnprocessableEntity, payload, true
	default:
		return http.StatusInternalServerError, payload, true
	}
}

func outcomeMessage(out notifier.Outcome) string {
	switch out.Status {
	case notifier.StatusNotified:
		if out.InvoicesNotified == 0 {
			return "message delivered"
		}
		return fmt.Sprintf("notified %d rejected invoices", out.InvoicesNotified)
	case notifier.StatusNothingNew:
		return "no new rejected invoices"
	case notifier.StatusSkipped:
		return "company skipped by notification policy"
	case notifier.StatusLocked:
		return "a notification run for this company is already in progress"
	default:
		return string(out.Status)
	}
}
