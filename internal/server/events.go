package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	eventdomain "github.com/smallbiznis/trailbook/internal/event/domain"
)

func (s *Server) ListEvents(c *gin.Context) {
	var query struct {
		Category string `form:"category"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	events, err := s.eventSvc.List(c.Request.Context(), eventdomain.ListEventRequest{
		Category: strings.TrimSpace(query.Category),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respond(c, http.StatusOK, events)
}

func (s *Server) GetEvent(c *gin.Context) {
	event, err := s.eventSvc.Get(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respond(c, http.StatusOK, event)
}

func (s *Server) GetEventAvailability(c *gin.Context) {
	availability, err := s.eventSvc.Availability(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respond(c, http.StatusOK, availability)
}

func (s *Server) CreateEvent(c *gin.Context) {
	var req eventdomain.UpsertEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	event, err := s.eventSvc.Create(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respond(c, http.StatusCreated, event)
}

func (s *Server) UpdateEvent(c *gin.Context) {
	var req eventdomain.UpsertEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	event, err := s.eventSvc.Update(c.Request.Context(), strings.TrimSpace(c.Param("id")), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respond(c, http.StatusOK, event)
}

// ArchiveEvent hides the event from the catalog; existing bookings keep it.
func (s *Server) ArchiveEvent(c *gin.Context) {
	event, err := s.eventSvc.Archive(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respond(c, http.StatusOK, event)
}
