package fakefacility

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"facility/internal/facility"
)

const (
	methodExact = "exact"
	methodNone  = "none"
)

func (s *Server) recognize(c *gin.Context) {
	fh, err := c.FormFile("image")
	if err != nil {
		abort(c, http.StatusUnprocessableEntity, "image is required")
		return
	}
	data, err := readPart(fh)
	if err != nil {
		abort(c, http.StatusBadRequest, "could not read image")
		return
	}
	if len(data) == 0 {
		abort(c, http.StatusBadRequest, "No face detected")
		return
	}

	result := facility.RecognitionResult{
		Method:      methodNone,
		ImageBase64: base64.StdEncoding.EncodeToString(data),
	}
	box := facility.Box{Width: 1, Height: 1}

	if rec, ok := s.state.match(data); ok {
		result.InmateID = &rec.InmateID
		result.Name = &rec.Name
		result.Score = 1
		result.Method = methodExact
		box.Recognized = true
		box.Name = &rec.Name
		box.Score = 1

		officer := officerFrom(c)
		if at := s.now(); s.state.recordRecognition(rec, officer.ID, fh.Filename, result.Score, at, s.cfg.Cooldown) {
			s.log.Info(c.Request.Context(), "inmate recognized", "inmate_id", rec.InmateID, "officer", officer.ID)
			s.hub.broadcast(facility.ActivityEvent{
				InmateID:     rec.InmateID,
				InmateName:   rec.Name,
				OfficerName:  officer.Name,
				Score:        result.Score,
				Method:       methodExact,
				RecognizedAt: at.Format(time.RFC3339),
			})
		}
	}
	result.Boxes = []facility.Box{box}

	if c.Query("debug") == "true" {
		sum := sha256.Sum256(data)
		c.JSON(http.StatusOK, gin.H{
			"inmate_id":    result.InmateID,
			"name":         result.Name,
			"prison_name":  result.PrisonName,
			"score":        result.Score,
			"method":       result.Method,
			"boxes":        result.Boxes,
			"image_base64": result.ImageBase64,
			"debug":        gin.H{"sha256": hex.EncodeToString(sum[:]), "bytes": len(data)},
		})
		return
	}
	c.JSON(http.StatusOK, result)
}
