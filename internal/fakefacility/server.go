// Package fakefacility is an in-memory stand-in for the facility API, used for
// local development and end-to-end tests of the client.
//
// It speaks the same routes and payload shapes as the real service. Face
// recognition is replaced by an exact match on the SHA-256 of an enrolled
// image, so a photo only matches the inmate it was enrolled for.
package fakefacility

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"facility/internal/auth"
	"facility/internal/facility"
	"facility/internal/logging"
)

// Config tunes the stub.
type Config struct {
	SigningKey string
	Issuer     string
	TokenTTL   time.Duration
	// Cooldown suppresses repeated logs of the same inmate.
	Cooldown time.Duration
	// AllowedEmails limits registration and login. Empty allows anyone.
	AllowedEmails []string
	MaxImages     int
	// RatePerMinute caps requests per client. Zero disables the limit.
	RatePerMinute int
	// CORSOrigins lists browser origins allowed to call the stub.
	CORSOrigins []string
}

func (c Config) withDefaults() Config {
	if c.SigningKey == "" {
		c.SigningKey = "fakefacility-dev-key"
	}
	if c.TokenTTL <= 0 {
		c.TokenTTL = time.Hour
	}
	if c.MaxImages <= 0 {
		c.MaxImages = 5
	}
	return c
}

// Server holds the stub state and its routes.
type Server struct {
	cfg   Config
	log   logging.Logger
	state *state
	hub   *hub
	now   func() time.Time
}

func New(cfg Config, log logging.Logger) *Server {
	if log == nil {
		log = logging.Nop()
	}
	return &Server{
		cfg:   cfg.withDefaults(),
		log:   log,
		state: newState(),
		hub:   newHub(),
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// SeedOfficer registers an officer directly, bypassing the email allow-list.
func (s *Server) SeedOfficer(name, email, password, prison string) (facility.User, error) {
	return s.state.addOfficer(facility.User{Name: name, Email: email, PrisonName: prison}, password)
}

// Handler builds the gin engine serving every route.
func (s *Server) Handler() http.Handler {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(s.requestLogger())
	if len(s.cfg.CORSOrigins) > 0 {
		r.Use(cors.New(cors.Config{
			AllowOrigins:     s.cfg.CORSOrigins,
			AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}))
	}
	if s.cfg.RatePerMinute > 0 {
		r.Use(newLimiter(s.cfg.RatePerMinute, s.now).middleware())
	}

	r.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "Prison Face Verification API Running"})
	})
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	r.POST("/auth/register", s.register)
	r.POST("/auth/login", s.login)

	api := r.Group("/", auth.OfficerAuth(s.cfg.SigningKey, s.cfg.Issuer), s.currentOfficer())
	api.GET("/auth/me", s.me)

	api.GET("/inmates/", s.listInmates)
	api.POST("/inmates/", s.createInmate)
	api.GET("/inmates/:inmate_id", s.getInmate)
	api.PATCH("/inmates/:inmate_id", s.updateInmate)
	api.DELETE("/inmates/:inmate_id", s.deleteInmate)
	api.DELETE("/inmates/by-inmate-id/:inmate_id", s.deleteInmate)

	api.POST("/recognize/", s.recognize)

	api.GET("/stats/recognitions-daily", s.dailyRecognitions)
	api.GET("/stats/top-inmates", s.topInmates)
	api.GET("/stats/recognitions-by-officer", s.recognitionsByOfficer)
	api.GET("/stats/recognitions-today-by-officer", s.recognitionsToday)
	api.GET("/stats/recent-verifications", s.recentVerifications)
	api.GET("/stats/age-distribution", s.ageDistribution)
	api.GET("/stats/sex-distribution", s.sexDistribution)
	api.GET("/stats/legal-status-distribution", s.legalStatusDistribution)
	api.GET("/stats/facility-distribution", s.facilityDistribution)

	// deployments that mount the logs router under /logs twice expose /logs/logs
	for _, prefix := range []string{"/logs", "/logs/logs"} {
		api.GET(prefix+"/", s.allLogs)
		api.GET(prefix+"/recent", s.recentLogs)
		api.GET(prefix+"/daily", s.dailyLogs)
		api.GET(prefix+"/by_officer", s.logsByOfficer)
	}

	r.GET("/activity/ws/activity", s.activityFeed)

	api.GET("/officers/", s.listOfficers)
	api.POST("/officers/", s.createOfficer)
	api.GET("/officers/count", s.countOfficers)
	api.GET("/officers/recognitions/today", s.totalRecognitionsToday)
	api.GET("/officers/:id", s.getOfficer)
	api.PUT("/officers/:id", s.updateOfficer)
	api.DELETE("/officers/:id", s.deleteOfficer)

	return r
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		if c.Request.URL.Path == "/healthz" {
			return
		}
		s.log.Info(c.Request.Context(), "request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"elapsed", time.Since(start),
			"request_id", c.GetHeader("X-Request-ID"),
		)
	}
}

const officerKey = "officer"

// currentOfficer resolves the token subject to a stored officer.
func (s *Server) currentOfficer() gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := auth.ClaimsFrom(c)
		if !ok {
			abort(c, http.StatusUnauthorized, "Could not validate credentials")
			return
		}
		u, ok := s.state.officer(claims.Subject)
		if !ok {
			abort(c, http.StatusUnauthorized, "Could not validate credentials")
			return
		}
		c.Set(officerKey, u)
		c.Next()
	}
}

func officerFrom(c *gin.Context) facility.User {
	u, _ := c.MustGet(officerKey).(facility.User)
	return u
}

func abort(c *gin.Context, code int, detail string) {
	c.AbortWithStatusJSON(code, gin.H{"detail": detail})
}

// queryInt reads an integer query parameter bounded to [lo, hi]; hi <= 0
// means unbounded. It writes a 422 and returns false when invalid.
func queryInt(c *gin.Context, name string, def, lo, hi int) (int, bool) {
	raw, ok := c.GetQuery(name)
	if !ok {
		return def, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < lo || (hi > 0 && n > hi) {
		abort(c, http.StatusUnprocessableEntity, "invalid query parameter "+name)
		return 0, false
	}
	return n, true
}
