// Package wire builds request bodies for the three encodings the facility API
// accepts: JSON, URL-encoded forms and multipart forms.
//
// The builder and the declared Content-Type always come from the same
// function, so a body can never be sent under the wrong header.
package wire

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/textproto"
	"net/url"
	"strings"
)

const (
	ContentTypeJSON = "application/json"
	ContentTypeForm = "application/x-www-form-urlencoded"
)

// Payload is an encoded request body and the Content-Type that describes it.
type Payload struct {
	ContentType string
	Body        []byte
}

// Reader returns a fresh reader over the body.
func (p *Payload) Reader() io.Reader {
	return bytes.NewReader(p.Body)
}

// Field is one flat name/value pair.
type Field struct {
	Name  string
	Value string
}

// File is one binary part of a multipart body.
type File struct {
	Field       string
	Filename    string
	ContentType string
	Data        []byte
}

// JSON encodes v as a JSON body.
func JSON(v any) (*Payload, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("wire: marshal json: %w", err)
	}
	return &Payload{ContentType: ContentTypeJSON, Body: data}, nil
}

// Form encodes fields as application/x-www-form-urlencoded, keeping their order.
func Form(fields []Field) *Payload {
	var sb strings.Builder
	for i, f := range fields {
		if i > 0 {
			sb.WriteByte('&')
		}
		sb.WriteString(url.QueryEscape(f.Name))
		sb.WriteByte('=')
		sb.WriteString(url.QueryEscape(f.Value))
	}
	return &Payload{ContentType: ContentTypeForm, Body: []byte(sb.String())}
}

// Multipart encodes text fields followed by files as multipart/form-data.
// Both are written in slice order; repeated names produce repeated parts.
func Multipart(fields []Field, files []File) (*Payload, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	for _, f := range fields {
		if err := w.WriteField(f.Name, f.Value); err != nil {
			return nil, fmt.Errorf("wire: write field %s: %w", f.Name, err)
		}
	}
	for _, f := range files {
		part, err := w.CreatePart(fileHeader(f))
		if err != nil {
			return nil, fmt.Errorf("wire: create part %s: %w", f.Field, err)
		}
		if _, err := part.Write(f.Data); err != nil {
			return nil, fmt.Errorf("wire: write part %s: %w", f.Field, err)
		}
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("wire: close multipart: %w", err)
	}

	return &Payload{ContentType: w.FormDataContentType(), Body: buf.Bytes()}, nil
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func fileHeader(f File) textproto.MIMEHeader {
	ct := f.ContentType
	if ct == "" {
		ct = "application/octet-stream"
	}
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`,
		quoteEscaper.Replace(f.Field), quoteEscaper.Replace(f.Filename)))
	h.Set("Content-Type", ct)
	return h
}
