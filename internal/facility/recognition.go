package facility

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"facility/internal/transport"
	"facility/internal/wire"
)

// RecognitionService identifies inmates from a single photo.
type RecognitionService struct {
	t *transport.Client
}

// RecognizeImage uploads img as the "image" part. With debug the server is
// asked for extra diagnostic output.
func (s *RecognitionService) RecognizeImage(ctx context.Context, img Image, debug bool) (*RecognitionResult, error) {
	body, err := wire.Multipart(nil, imageFiles("image", []Image{img}))
	if err != nil {
		return nil, fmt.Errorf("facility.Recognition.RecognizeImage: %w", err)
	}
	req := transport.Request{
		Op:      "recognize",
		Method:  http.MethodPost,
		Path:    "/recognize/",
		Payload: body,
	}
	if debug {
		req.Query = url.Values{"debug": {"true"}}
	}
	out, err := send[RecognitionResult](ctx, s.t, req)
	if err != nil {
		return nil, fmt.Errorf("facility.Recognition.RecognizeImage: %w", err)
	}
	return &out, nil
}

// LoadImage reads an image file from disk. The content type comes from the
// file extension, falling back to sniffing the data.
func LoadImage(path string) (Image, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Image{}, fmt.Errorf("load image: %w", err)
	}
	return Image{Filename: filepath.Base(path), ContentType: contentType(path, data), Data: data}, nil
}

func contentType(path string, data []byte) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	case ".webp":
		return "image/webp"
	}
	return http.DetectContentType(data)
}
