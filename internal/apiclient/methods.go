package apiclient

import (
	"context"
	"encoding/json"
	"fmt"
	"mime"
	"net/http"
	"net/url"
	"path"

	"github.com/me/jejakliqo/pkg/model"
)

// Get performs a GET request and decodes the response data into dest.
func (c *Client) Get(ctx context.Context, p string, query url.Values, dest any) (*Response, error) {
	return c.call(ctx, &Request{Method: http.MethodGet, Path: p, Query: query}, dest)
}

// Post performs a POST request with a JSON body.
func (c *Client) Post(ctx context.Context, p string, body, dest any) (*Response, error) {
	return c.call(ctx, &Request{Method: http.MethodPost, Path: p, Body: body}, dest)
}

// Put performs a PUT request with a JSON body.
func (c *Client) Put(ctx context.Context, p string, body, dest any) (*Response, error) {
	return c.call(ctx, &Request{Method: http.MethodPut, Path: p, Body: body}, dest)
}

// Patch performs a PATCH request with a JSON body.
func (c *Client) Patch(ctx context.Context, p string, body, dest any) (*Response, error) {
	return c.call(ctx, &Request{Method: http.MethodPatch, Path: p, Body: body}, dest)
}

// Delete performs a DELETE request.
func (c *Client) Delete(ctx context.Context, p string, dest any) (*Response, error) {
	return c.call(ctx, &Request{Method: http.MethodDelete, Path: p}, dest)
}

// Upload POSTs a multipart body using the upload timeout.
func (c *Client) Upload(ctx context.Context, p string, mp *Multipart, dest any) (*Response, error) {
	return c.call(ctx, &Request{Method: http.MethodPost, Path: p, Multipart: mp}, dest)
}

func (c *Client) call(ctx context.Context, req *Request, dest any) (*Response, error) {
	resp, err := c.Do(ctx, req)
	if err != nil {
		return resp, err
	}
	if dest != nil {
		if err := DecodeData(resp, dest); err != nil {
			return resp, fmt.Errorf("%s %s: %w", req.Method, req.Path, err)
		}
	}
	return resp, nil
}

// DecodeData unmarshals the envelope's data field into dest, or the whole
// body when the response carries no envelope data.
func DecodeData(resp *Response, dest any) error {
	raw := resp.Body
	if resp.Envelope != nil && len(resp.Envelope.Data) > 0 {
		raw = resp.Envelope.Data
	}
	if len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return fmt.Errorf("decode response data: %w", err)
	}
	return nil
}

// GetPage performs a paginated GET and returns the items with paging metadata.
func GetPage[T any](ctx context.Context, c *Client, p string, opts model.ListOptions) (*model.Page[T], error) {
	var items []T
	resp, err := c.Get(ctx, p, opts.Query(), &items)
	if err != nil {
		return nil, err
	}
	page := &model.Page[T]{Items: items}
	if resp.Envelope != nil {
		page.Pagination = resp.Envelope.Meta
	}
	return page, nil
}

// Download is a fetched file.
type Download struct {
	Filename    string
	ContentType string
	Data        []byte
}

// Download fetches a binary resource such as an export or template file.
func (c *Client) Download(ctx context.Context, p string, query url.Values) (*Download, error) {
	resp, err := c.Do(ctx, &Request{
		Method: http.MethodGet,
		Path:   p,
		Query:  query,
		Header: http.Header{"Accept": []string{"*/*"}},
	})
	if err != nil {
		return nil, err
	}

	d := &Download{
		ContentType: resp.Header.Get("Content-Type"),
		Data:        resp.Body,
		Filename:    path.Base(p),
	}
	if cd := resp.Header.Get("Content-Disposition"); cd != "" {
		if _, params, err := mime.ParseMediaType(cd); err == nil && params["filename"] != "" {
			d.Filename = params["filename"]
		}
	}
	return d, nil
}
