package fakefacility

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"facility/internal/facility"
)

func (s *Server) listOfficers(c *gin.Context) {
	c.JSON(http.StatusOK, s.state.listOfficers())
}

func (s *Server) countOfficers(c *gin.Context) {
	c.JSON(http.StatusOK, len(s.state.listOfficers()))
}

func (s *Server) totalRecognitionsToday(c *gin.Context) {
	total := 0
	for _, o := range s.state.listOfficers() {
		total += o.RecognitionsToday
	}
	c.JSON(http.StatusOK, total)
}

func (s *Server) getOfficer(c *gin.Context) {
	u, ok := s.state.officer(c.Param("id"))
	if !ok {
		abort(c, http.StatusNotFound, "Officer not found")
		return
	}
	c.JSON(http.StatusOK, u)
}

func (s *Server) createOfficer(c *gin.Context) {
	var req facility.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abort(c, http.StatusUnprocessableEntity, err.Error())
		return
	}
	if msg := validOfficer(req); msg != "" {
		abort(c, http.StatusUnprocessableEntity, msg)
		return
	}
	u, err := s.state.addOfficer(facility.User{Name: req.Name, Email: req.Email, PrisonName: req.PrisonName}, req.Password)
	if errors.Is(err, errDuplicate) {
		abort(c, http.StatusBadRequest, "Email already registered")
		return
	}
	c.JSON(http.StatusCreated, u)
}

func (s *Server) updateOfficer(c *gin.Context) {
	var req facility.OfficerUpdate
	if err := c.ShouldBindJSON(&req); err != nil {
		abort(c, http.StatusUnprocessableEntity, err.Error())
		return
	}
	if req.Password != nil && len(*req.Password) < minPasswordLen {
		abort(c, http.StatusUnprocessableEntity, "password must be at least 6 characters")
		return
	}
	u, err := s.state.updateOfficer(c.Param("id"), req)
	switch {
	case errors.Is(err, errNotFound):
		abort(c, http.StatusNotFound, "Officer not found")
		return
	case errors.Is(err, errDuplicate):
		abort(c, http.StatusBadRequest, "Email already used by another officer")
		return
	}
	c.JSON(http.StatusOK, u)
}

func (s *Server) deleteOfficer(c *gin.Context) {
	if !s.state.deleteOfficer(c.Param("id")) {
		abort(c, http.StatusNotFound, "Officer not found")
		return
	}
	c.Status(http.StatusNoContent)
}
