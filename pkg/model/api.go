package model

import (
	"encoding/json"
	"net/url"
	"strconv"
)

// Response is the backend's JSON envelope.
type Response struct {
	Status  string              `json:"status,omitempty"`
	Message string              `json:"message,omitempty"`
	Data    json.RawMessage     `json:"data,omitempty"`
	Meta    *Pagination         `json:"meta,omitempty"`
	Errors  map[string][]string `json:"errors,omitempty"`
}

// Pagination holds paging metadata for list endpoints.
type Pagination struct {
	CurrentPage int `json:"current_page"`
	LastPage    int `json:"last_page"`
	PerPage     int `json:"per_page"`
	Total       int `json:"total"`
}

// HasMore reports whether pages remain after the current one.
func (p *Pagination) HasMore() bool {
	return p != nil && p.CurrentPage < p.LastPage
}

// ListOptions configures list queries.
type ListOptions struct {
	Page    int
	PerPage int
	Search  string
	Filters map[string]string
}

// DefaultListOptions returns sensible defaults.
func DefaultListOptions() ListOptions {
	return ListOptions{Page: 1, PerPage: 10}
}

// Clamp enforces limits (per page 1..100, page >= 1).
func (o *ListOptions) Clamp() {
	if o.Page <= 0 {
		o.Page = 1
	}
	if o.PerPage <= 0 {
		o.PerPage = 10
	}
	if o.PerPage > 100 {
		o.PerPage = 100
	}
}

// Query encodes the options as URL query parameters.
func (o ListOptions) Query() url.Values {
	o.Clamp()
	q := url.Values{}
	q.Set("page", strconv.Itoa(o.Page))
	q.Set("per_page", strconv.Itoa(o.PerPage))
	if o.Search != "" {
		q.Set("search", o.Search)
	}
	for k, v := range o.Filters {
		if v != "" {
			q.Set(k, v)
		}
	}
	return q
}

// Page is one page of a list endpoint.
type Page[T any] struct {
	Items      []T
	Pagination *Pagination
}
