package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/invoicenotify/internal/notifier"
)

func (s *Server) GlobalSummary(c *gin.Context) {
	summary, err := s.notifier.GlobalSummary(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.respond(c, http.StatusOK, "", summary, nil)
}

func (s *Server) NotifyGlobalSupport(c *gin.Context) {
	out, err := s.notifier.NotifyGlobalSupport(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}
	s.respondSupport(c, out)
}

func (s *Server) TestSupport(c *gin.Context) {
	out, err := s.notifier.TestSupport(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}
	s.respondSupport(c, out)
}

func (s *Server) respondSupport(c *gin.Context, out notifier.SupportOutcome) {
	if status, payload, failed := outcomeFailure(out.Outcome); failed {
		s.respondFailure(c, status, payload, out)
		return
	}
	s.respond(c, http.StatusOK, outcomeMessage(out.Outcome), out, nil)
}
