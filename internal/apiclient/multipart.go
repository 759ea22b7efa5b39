package apiclient

import (
	"bytes"
	"fmt"
	"io"
	"mime/multipart"
	"sort"
)

// File is one file part of a multipart body.
type File struct {
	Field  string
	Name   string
	Reader io.Reader
}

// Multipart is a multipart/form-data body.
type Multipart struct {
	Fields map[string]string
	Files  []File
}

// NewMultipart returns an empty multipart body.
func NewMultipart() *Multipart {
	return &Multipart{Fields: map[string]string{}}
}

// Field sets a form field and returns m for chaining.
func (m *Multipart) Field(name, value string) *Multipart {
	if m.Fields == nil {
		m.Fields = map[string]string{}
	}
	m.Fields[name] = value
	return m
}

// File adds a file part and returns m for chaining.
func (m *Multipart) File(field, name string, r io.Reader) *Multipart {
	m.Files = append(m.Files, File{Field: field, Name: name, Reader: r})
	return m
}

// encode writes the body and returns it with its content type, which
// carries the generated boundary.
func (m *Multipart) encode() (*bytes.Buffer, string, error) {
	buf := &bytes.Buffer{}
	w := multipart.NewWriter(buf)

	names := make([]string, 0, len(m.Fields))
	for k := range m.Fields {
		names = append(names, k)
	}
	sort.Strings(names)
	for _, k := range names {
		if err := w.WriteField(k, m.Fields[k]); err != nil {
			return nil, "", fmt.Errorf("write field %s: %w", k, err)
		}
	}

	for _, f := range m.Files {
		part, err := w.CreateFormFile(f.Field, f.Name)
		if err != nil {
			return nil, "", fmt.Errorf("create part %s: %w", f.Field, err)
		}
		if _, err := io.Copy(part, f.Reader); err != nil {
			return nil, "", fmt.Errorf("copy %s: %w", f.Name, err)
		}
	}

	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return buf, w.FormDataContentType(), nil
}
