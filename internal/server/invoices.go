package server

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

func (s *Server) WeeklyRejected(c *gin.Context) {
	report, err := s.rejections.WeeklyRejected(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	message := fmt.Sprintf("%d rejected invoices across %d companies", report.Summary.TotalInvoices, len(report.Companies))
	s.respond(c, http.StatusOK, message, gin.H{
		"window":    report.Window,
		"companies": report.Companies,
		"failures":  report.Failures,
	}, report.Summary)
}

func (s *Server) CompanyRejected(c *gin.Context) {
	subdomain := strings.TrimSpace(c.Param("subdomain"))
	if subdomain == "" {
		AbortWithError(c, newValidationError("subdomain", "required", "subdomain is required"))
		return
	}

	report, window, err := s.rejections.CompanyRejected(c.Request.Context(), subdomain)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.respond(c, http.StatusOK, "", report, gin.H{
		"window": window,
		"total":  report.Total,
	})
}

func (s *Server) ErrorSummary(c *gin.Context) {
	report, err := s.rejections.ErrorSummary(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.respond(c, http.StatusOK, "", gin.H{
		"window":    report.Window,
		"companies": report.Companies,
		"failures":  report.Failures,
	}, report.Summary)
}

func (s *Server) Unnotified(c *gin.Context) {
	subdomain := strings.TrimSpace(c.Param("subdomain"))
	if subdomain == "" {
		AbortWithError(c, newValidationError("subdomain", "required", "subdomain is required"))
		return
	}

	report, err := s.rejections.Unnotified(c.Request.Context(), subdomain)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.respond(c, http.StatusOK, "", report, gin.H{
		"pending":          report.Total,
		"already_notified": report.AlreadyNotified,
	})
}

func (s *Server) TestConnections(c *gin.Context) {
	report, err := s.rejections.TestConnections(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	message := fmt.Sprintf("%d of %d tenant databases reachable", report.Succeeded, report.Total)
	s.respond(c, http.StatusOK, message, report.Checks, gin.H{
		"total":     report.Total,
		"succeeded": report.Succeeded,
		"failed":    report.Failed,
	})
}
