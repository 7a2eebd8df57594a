package fakefacility

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"facility/internal/facility"
)

var allowedExt = map[string]bool{".jpg": true, ".jpeg": true, ".png": true}

// detailError is reported to the caller verbatim.
type detailError string

func (e detailError) Error() string { return string(e) }

// optionalForm returns a pointer to the form value when the field was sent.
func optionalForm(c *gin.Context, name string) *string {
	v, ok := c.GetPostForm(name)
	if !ok {
		return nil
	}
	return &v
}

// extraInfoForm reads the extra-info fields. It writes a 400 and returns
// false on a non-integer age.
func extraInfoForm(c *gin.Context) (*facility.ExtraInfo, bool) {
	info := &facility.ExtraInfo{
		Cell:         optionalForm(c, "cell"),
		Crime:        optionalForm(c, "crime"),
		Sentence:     optionalForm(c, "sentence"),
		LegalStatus:  optionalForm(c, "legal_status"),
		FacilityName: optionalForm(c, "facility_name"),
		Sex:          optionalForm(c, "sex"),
	}
	if raw := optionalForm(c, "age"); raw != nil {
		age, err := strconv.Atoi(*raw)
		if err != nil {
			abort(c, http.StatusBadRequest, "Age must be an integer")
			return nil, false
		}
		info.Age = &age
	}
	return info, true
}

func hasExtraInfo(x *facility.ExtraInfo) bool {
	return x.Cell != nil || x.Crime != nil || x.Sentence != nil || x.Age != nil ||
		x.LegalStatus != nil || x.FacilityName != nil || x.Sex != nil
}

// formImages reads every file part named field, in order.
func formImages(c *gin.Context, field string) ([]facility.Image, error) {
	form, err := c.MultipartForm()
	if err != nil {
		if errors.Is(err, http.ErrNotMultipart) {
			return nil, nil
		}
		return nil, err
	}
	headers := form.File[field]
	images := make([]facility.Image, 0, len(headers))
	for _, h := range headers {
		ext := strings.ToLower(filepath.Ext(h.Filename))
		if !allowedExt[ext] {
			return nil, detailError("Invalid image type: " + ext)
		}
		data, err := readPart(h)
		if err != nil {
			return nil, err
		}
		images = append(images, facility.Image{Filename: h.Filename, ContentType: h.Header.Get("Content-Type"), Data: data})
	}
	return images, nil
}

func readPart(h *multipart.FileHeader) ([]byte, error) {
	f, err := h.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

func (s *Server) listInmates(c *gin.Context) {
	c.JSON(http.StatusOK, s.state.listInmates())
}

func (s *Server) getInmate(c *gin.Context) {
	rec, ok := s.state.inmate(c.Param("inmate_id"))
	if !ok {
		abort(c, http.StatusNotFound, "Inmate not found")
		return
	}
	c.JSON(http.StatusOK, rec)
}

func (s *Server) createInmate(c *gin.Context) {
	inmateID, okID := c.GetPostForm("inmate_id")
	name, okName := c.GetPostForm("name")
	if !okID || !okName {
		abort(c, http.StatusUnprocessableEntity, "inmate_id and name are required")
		return
	}
	info, ok := extraInfoForm(c)
	if !ok {
		return
	}
	images, err := formImages(c, "images")
	if err != nil {
		abort(c, http.StatusBadRequest, err.Error())
		return
	}
	if len(images) < 1 || len(images) > s.cfg.MaxImages {
		abort(c, http.StatusBadRequest, fmt.Sprintf("Upload between 1 and %d images", s.cfg.MaxImages))
		return
	}

	rec, err := s.state.addInmate(facility.InmateRecord{
		InmateID:     inmateID,
		Name:         name,
		ExtraInfo:    *info,
		CreatedAt:    s.now().Format("2006-01-02T15:04:05"),
		RegisteredBy: officerFrom(c).ID,
	}, images)
	if errors.Is(err, errDuplicate) {
		abort(c, http.StatusBadRequest, "Inmate ID already exists")
		return
	}
	c.JSON(http.StatusCreated, rec)
}

func (s *Server) updateInmate(c *gin.Context) {
	upd := facility.UpdateInmateRequest{Name: optionalForm(c, "name")}
	info, ok := extraInfoForm(c)
	if !ok {
		return
	}
	upd.ExtraInfo = info
	images, err := formImages(c, "images")
	if err != nil {
		abort(c, http.StatusBadRequest, err.Error())
		return
	}
	upd.Images = images
	if upd.Name == nil && !hasExtraInfo(info) && len(images) == 0 {
		abort(c, http.StatusBadRequest, "No fields provided for update")
		return
	}

	rec, err := s.state.patchInmate(c.Param("inmate_id"), upd)
	if errors.Is(err, errNotFound) {
		abort(c, http.StatusNotFound, "Inmate not found")
		return
	}
	c.JSON(http.StatusOK, rec)
}

func (s *Server) deleteInmate(c *gin.Context) {
	if !s.state.deleteInmate(c.Param("inmate_id")) {
		abort(c, http.StatusNotFound, "Inmate not found")
		return
	}
	c.Status(http.StatusNoContent)
}
