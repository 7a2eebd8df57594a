package fakefacility

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"facility/internal/auth"
	"facility/internal/facility"
)

const minPasswordLen = 6

func (s *Server) emailAllowed(email string) bool {
	if len(s.cfg.AllowedEmails) == 0 {
		return true
	}
	for _, e := range s.cfg.AllowedEmails {
		if strings.EqualFold(strings.TrimSpace(e), email) {
			return true
		}
	}
	return false
}

func validOfficer(req facility.RegisterRequest) string {
	switch {
	case strings.TrimSpace(req.Name) == "":
		return "name is required"
	case !strings.Contains(req.Email, "@"):
		return "a valid email is required"
	case len(req.Password) < minPasswordLen:
		return "password must be at least 6 characters"
	}
	return ""
}

func (s *Server) register(c *gin.Context) {
	var req facility.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abort(c, http.StatusUnprocessableEntity, err.Error())
		return
	}
	if msg := validOfficer(req); msg != "" {
		abort(c, http.StatusUnprocessableEntity, msg)
		return
	}
	if !s.emailAllowed(req.Email) {
		abort(c, http.StatusBadRequest, "This email is not allowed to register")
		return
	}
	u, err := s.state.addOfficer(facility.User{Name: req.Name, Email: req.Email, PrisonName: req.PrisonName}, req.Password)
	if errors.Is(err, errDuplicate) {
		abort(c, http.StatusBadRequest, "Email already registered")
		return
	}
	c.JSON(http.StatusCreated, u)
}

func (s *Server) login(c *gin.Context) {
	username, okUser := c.GetPostForm("username")
	password, okPass := c.GetPostForm("password")
	if !okUser || !okPass {
		abort(c, http.StatusUnprocessableEntity, "username and password are required")
		return
	}
	if !s.emailAllowed(username) {
		abort(c, http.StatusBadRequest, "This email is not allowed to log in")
		return
	}
	o, ok := s.state.officerByEmail(username)
	if !ok || o.password != password {
		abort(c, http.StatusUnauthorized, "Wrong email or password")
		return
	}

	tok, err := auth.Issue(o.ID, o.Name, "officer", s.cfg.Issuer, s.cfg.SigningKey, s.cfg.TokenTTL)
	if err != nil {
		s.log.Error(c.Request.Context(), "token issue failed", "error", err)
		abort(c, http.StatusInternalServerError, "token issue failed")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"access_token": tok.Value,
		"token_type":   "bearer",
		"user":         facility.User{ID: o.ID, Name: o.Name, Email: o.Email},
	})
}

func (s *Server) me(c *gin.Context) {
	c.JSON(http.StatusOK, officerFrom(c))
}
