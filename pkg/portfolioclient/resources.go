package portfolioclient

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
)

// Resource is the CRUD client of one owned resource collection.
type Resource[T any] struct {
	client *Client
	path   string
}

func newResource[T any](client *Client, name string) *Resource[T] {
	return &Resource[T]{client: client, path: "/api/" + name}
}

// List returns the caller's records.
func (resource *Resource[T]) List(ctx context.Context) ([]T, error) {
	var records []T
	if err := resource.client.do(ctx, http.MethodGet, resource.path, nil, &records); err != nil {
		return nil, err
	}
	return records, nil
}

// ListByUser returns the public records of userID.
func (resource *Resource[T]) ListByUser(ctx context.Context, userID uint) ([]T, error) {
	var records []T
	if err := resource.client.do(ctx, http.MethodGet, fmt.Sprintf("%s/user/%d", resource.path, userID), nil, &records); err != nil {
		return nil, err
	}
	return records, nil
}

// Get loads one of the caller's records.
func (resource *Resource[T]) Get(ctx context.Context, id uint) (T, error) {
	var record T
	err := resource.client.do(ctx, http.MethodGet, resource.itemPath(id), nil, &record)
	return record, err
}

// Create stores a new record and returns it as saved.
func (resource *Resource[T]) Create(ctx context.Context, record T) (T, error) {
	var created T
	err := resource.client.do(ctx, http.MethodPost, resource.path, record, &created)
	return created, err
}

// Update replaces every field of the record.
func (resource *Resource[T]) Update(ctx context.Context, id uint, record T) (T, error) {
	var updated T
	err := resource.client.do(ctx, http.MethodPut, resource.itemPath(id), record, &updated)
	return updated, err
}

// Patch changes only the given fields.
func (resource *Resource[T]) Patch(ctx context.Context, id uint, fields map[string]any) (T, error) {
	var updated T
	err := resource.client.do(ctx, http.MethodPatch, resource.itemPath(id), fields, &updated)
	return updated, err
}

// Delete removes the record.
func (resource *Resource[T]) Delete(ctx context.Context, id uint) error {
	return resource.client.do(ctx, http.MethodDelete, resource.itemPath(id), nil, nil)
}

// File is an upload attached to a multipart request.
type File struct {
	Field   string
	Name    string
	Content io.Reader
}

// Upload sends fields and file as multipart form data. A zero id creates a record,
// otherwise the record is patched.
func (resource *Resource[T]) Upload(ctx context.Context, id uint, fields url.Values, file File) (T, error) {
	var record T
	body, err := encodeMultipart(fields, file)
	if err != nil {
		return record, err
	}
	method, path := http.MethodPost, resource.path
	if id != 0 {
		method, path = http.MethodPatch, resource.itemPath(id)
	}
	err = resource.client.do(ctx, method, path, body, &record)
	return record, err
}

func (resource *Resource[T]) itemPath(id uint) string {
	return fmt.Sprintf("%s/%d", resource.path, id)
}

// multipartBody is buffered so the request can be replayed after a refresh.
type multipartBody struct {
	content     []byte
	contentType string
}

func encodeMultipart(fields url.Values, files ...File) (*multipartBody, error) {
	var buffer bytes.Buffer
	writer := multipart.NewWriter(&buffer)
	for name, values := range fields {
		for _, value := range values {
			if err := writer.WriteField(name, value); err != nil {
				return nil, fmt.Errorf("portfolioclient.multipart.field: %w", err)
			}
		}
	}
	for _, file := range files {
		if file.Content == nil {
			continue
		}
		part, err := writer.CreateFormFile(file.Field, file.Name)
		if err != nil {
			return nil, fmt.Errorf("portfolioclient.multipart.file: %w", err)
		}
		if _, err := io.Copy(part, file.Content); err != nil {
			return nil, fmt.Errorf("portfolioclient.multipart.copy: %w", err)
		}
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("portfolioclient.multipart.close: %w", err)
	}
	return &multipartBody{content: buffer.Bytes(), contentType: writer.FormDataContentType()}, nil
}
