package facility

import (
	"context"
	"fmt"
	"net/http"

	"facility/internal/transport"
	"facility/internal/wire"
)

const imagesField = "images"

// extraInfoRules emits the extra-info fields of T in wire order.
func extraInfoRules[T any](get func(T) *ExtraInfo) wire.Policy[T] {
	info := func(in T) ExtraInfo {
		if e := get(in); e != nil {
			return *e
		}
		return ExtraInfo{}
	}
	return wire.Policy[T]{
		wire.Str("cell", func(in T) *string { return info(in).Cell }),
		wire.Str("crime", func(in T) *string { return info(in).Crime }),
		wire.Str("sentence", func(in T) *string { return info(in).Sentence }),
		wire.Int("age", func(in T) *int { return info(in).Age }),
		wire.Str("legal_status", func(in T) *string { return info(in).LegalStatus }),
		wire.Str("facility_name", func(in T) *string { return info(in).FacilityName }),
		wire.Str("sex", func(in T) *string { return info(in).Sex }),
	}
}

// CreatePolicy lists the text parts of an inmate create, in order.
var CreatePolicy = append(wire.Policy[CreateInmateRequest]{
	wire.Required("inmate_id", func(r CreateInmateRequest) string { return r.InmateID }),
	wire.Required("name", func(r CreateInmateRequest) string { return r.Name }),
}, extraInfoRules(func(r CreateInmateRequest) *ExtraInfo { return r.ExtraInfo })...)

// UpdatePolicy lists the text parts of an inmate update, in order.
var UpdatePolicy = append(wire.Policy[UpdateInmateRequest]{
	wire.Str("name", func(r UpdateInmateRequest) *string { return r.Name }),
}, extraInfoRules(func(r UpdateInmateRequest) *ExtraInfo { return r.ExtraInfo })...)

func imageFiles(field string, images []Image) []wire.File {
	files := make([]wire.File, len(images))
	for i, img := range images {
		files[i] = wire.File{Field: field, Filename: img.Filename, ContentType: img.ContentType, Data: img.Data}
	}
	return files
}

// InmatesService manages inmate records.
type InmatesService struct {
	t            *transport.Client
	deletePrefix string
}

func (s *InmatesService) List(ctx context.Context) ([]InmateRecord, error) {
	out, err := send[[]InmateRecord](ctx, s.t, transport.Request{Op: "inmates.list", Method: http.MethodGet, Path: "/inmates/"})
	if err != nil {
		return nil, fmt.Errorf("facility.Inmates.List: %w", err)
	}
	return out, nil
}

// GetByID fetches one inmate by its external inmate_id.
func (s *InmatesService) GetByID(ctx context.Context, inmateID string) (*InmateRecord, error) {
	out, err := send[InmateRecord](ctx, s.t, transport.Request{
		Op:     "inmates.get",
		Method: http.MethodGet,
		Path:   "/inmates" + pathID(inmateID),
	})
	if err != nil {
		return nil, fmt.Errorf("facility.Inmates.GetByID: %w", err)
	}
	return &out, nil
}

// Create enrolls an inmate. Text parts follow CreatePolicy; each image is
// appended as an "images" part in input order.
func (s *InmatesService) Create(ctx context.Context, req CreateInmateRequest) (*InmateRecord, error) {
	body, err := wire.Multipart(CreatePolicy.Fields(req), imageFiles(imagesField, req.Images))
	if err != nil {
		return nil, fmt.Errorf("facility.Inmates.Create: %w", err)
	}
	out, err := send[InmateRecord](ctx, s.t, transport.Request{
		Op:      "inmates.create",
		Method:  http.MethodPost,
		Path:    "/inmates/",
		Payload: body,
	})
	if err != nil {
		return nil, fmt.Errorf("facility.Inmates.Create: %w", err)
	}
	return &out, nil
}

// Update patches an inmate, sending only the fields present in req.
func (s *InmatesService) Update(ctx context.Context, inmateID string, req UpdateInmateRequest) (*InmateRecord, error) {
	body, err := wire.Multipart(UpdatePolicy.Fields(req), imageFiles(imagesField, req.Images))
	if err != nil {
		return nil, fmt.Errorf("facility.Inmates.Update: %w", err)
	}
	out, err := send[InmateRecord](ctx, s.t, transport.Request{
		Op:      "inmates.update",
		Method:  http.MethodPatch,
		Path:    "/inmates" + pathID(inmateID),
		Payload: body,
	})
	if err != nil {
		return nil, fmt.Errorf("facility.Inmates.Update: %w", err)
	}
	return &out, nil
}

// DeleteByInmateID removes an inmate. The response body is ignored.
func (s *InmatesService) DeleteByInmateID(ctx context.Context, inmateID string) error {
	_, err := s.t.Do(ctx, transport.Request{
		Op:     "inmates.delete",
		Method: http.MethodDelete,
		Path:   s.deletePrefix + pathID(inmateID),
	})
	if err != nil {
		return fmt.Errorf("facility.Inmates.DeleteByInmateID: %w", err)
	}
	return nil
}
