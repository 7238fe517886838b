package server

import (
	"time"

	"github.com/gin-gonic/gin"
)

type envelope struct {
	Success   bool          `json:"success"`
	Message   string        `json:"message,omitempty"`
	Data      any           `json:"data,omitempty"`
	Error     *errorPayload `json:"error,omitempty"`
	Summary   any           `json:"summary,omitempty"`
	Timestamp time.Time     `json:"timestamp"`
}

func (s *Server) respond(c *gin.Context, status int, message string, data, summary any) {
	c.JSON(status, envelope{
		Success:   status < 400,
		Message:   message,
		Data:      data,
		Summary:   summary,
		Timestamp: s.clock.Now().UTC(),
	})
}

// respondFailure writes a failed envelope that still carries the data the
// caller needs to see, such as per-recipient delivery results.
func (s *Server) respondFailure(c *gin.Context, status int, payload errorPayload, data any) {
	c.JSON(status, envelope{
		Success:   false,
		Data:      data,
		Error:     &payload,
		Timestamp: s.clock.Now().UTC(),
	})
}
