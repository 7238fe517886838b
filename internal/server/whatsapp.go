package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/invoicenotify/internal/providers/whatsapp"
)

func (s *Server) TestWhatsApp(c *gin.Context) {
	if issues := s.provider.ValidateConfiguration(); len(issues) > 0 {
		s.respondFailure(c, http.StatusUnprocessableEntity, errorPayload{
			Type:    "configuration_error",
			Message: whatsapp.ErrNotConfigured.Error(),
		}, gin.H{"issues": issues})
		return
	}

	result, err := s.provider.TestConnection(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if !result.Success {
		s.respondFailure(c, http.StatusInternalServerError, errorPayload{
			Type:    "provider_error",
			Message: result.Error,
		}, result)
		return
	}

	s.respond(c, http.StatusOK, "whatsapp connection ok", result, nil)
}

func (s *Server) WhatsAppTemplates(c *gin.Context) {
	templates, err := s.provider.AvailableTemplates(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.respond(c, http.StatusOK, "", templates, gin.H{"total": len(templates)})
}
