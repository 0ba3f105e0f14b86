// Package media validates uploaded images and stores them in an object store.
package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"path"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
)

// MaxUploadBytes bounds every uploaded image.
const MaxUploadBytes = 5 << 20

var (
	// ErrEmptyUpload indicates the multipart part carried no bytes.
	ErrEmptyUpload = errors.New("media.empty_upload")
	// ErrTooLarge indicates the upload exceeded MaxUploadBytes.
	ErrTooLarge = errors.New("media.too_large")
	// ErrUnsupportedType indicates the sniffed content type is not an accepted image format.
	ErrUnsupportedType = errors.New("media.unsupported_type")
)

// Category describes where an upload kind lives and what it may contain.
type Category struct {
	Prefix   string
	Kind     string
	AllowSVG bool
}

// Upload categories.
var (
	ProjectImage = Category{Prefix: "projects/images", Kind: "project"}
	ServiceIcon  = Category{Prefix: "services/icons", Kind: "service", AllowSVG: true}
	ProfileImage = Category{Prefix: "users/profile", Kind: "profile"}
	Banner       = Category{Prefix: "users/banner", Kind: "banner"}
)

var rasterTypes = map[string]string{
	"image/png":  ".png",
	"image/jpeg": ".jpg",
	"image/webp": ".webp",
}

const svgType = "image/svg+xml"

// ObjectStore persists media objects under slash-separated keys.
type ObjectStore interface {
	Put(ctx context.Context, key string, content []byte, contentType string) error
	Delete(ctx context.Context, key string) error
}

// Uploader is the surface consumed by routes accepting image uploads.
type Uploader interface {
	SaveUpload(ctx context.Context, category Category, owner string, file *multipart.FileHeader) (string, error)
	Delete(ctx context.Context, reference string) error
}

// Library validates uploads and maps stored objects to public URLs.
type Library struct {
	store   ObjectStore
	baseURL string
	suffix  func() string
}

// NewLibrary wraps store; baseURL prefixes every returned reference.
func NewLibrary(store ObjectStore, baseURL string) *Library {
	return &Library{
		store:   store,
		baseURL: strings.TrimRight(baseURL, "/"),
		suffix: func() string {
			return strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
		},
	}
}

// Detect sniffs content and returns its MIME type and file extension when it is allowed for category.
func Detect(content []byte, category Category) (string, string, error) {
	if len(content) == 0 {
		return "", "", ErrEmptyUpload
	}
	if len(content) > MaxUploadBytes {
		return "", "", ErrTooLarge
	}
	detected := mimetype.Detect(content)
	for candidate := detected; candidate != nil; candidate = candidate.Parent() {
		if extension, ok := rasterTypes[candidate.String()]; ok {
			return candidate.String(), extension, nil
		}
		if category.AllowSVG && candidate.Is(svgType) {
			return svgType, ".svg", nil
		}
	}
	return "", "", fmt.Errorf("%w: %s", ErrUnsupportedType, detected.String())
}

// SaveUpload validates file and stores it, returning its public reference.
func (library *Library) SaveUpload(ctx context.Context, category Category, owner string, file *multipart.FileHeader) (string, error) {
	if file == nil {
		return "", fmt.Errorf("media.save: %w", ErrEmptyUpload)
	}
	if file.Size > MaxUploadBytes {
		return "", fmt.Errorf("media.save: %w", ErrTooLarge)
	}
	reader, openErr := file.Open()
	if openErr != nil {
		return "", fmt.Errorf("media.save: %w", openErr)
	}
	defer reader.Close()
	content, readErr := io.ReadAll(io.LimitReader(reader, MaxUploadBytes+1))
	if readErr != nil {
		return "", fmt.Errorf("media.save: %w", readErr)
	}
	return library.Save(ctx, category, owner, content)
}

// Save validates raw content and stores it, returning its public reference.
func (library *Library) Save(ctx context.Context, category Category, owner string, content []byte) (string, error) {
	contentType, extension, detectErr := Detect(content, category)
	if detectErr != nil {
		return "", fmt.Errorf("media.save: %w", detectErr)
	}
	key := path.Join(category.Prefix, fmt.Sprintf("%s_%s_%s%s", category.Kind, sanitize(owner), library.suffix(), extension))
	if err := library.store.Put(ctx, key, bytes.Clone(content), contentType); err != nil {
		return "", fmt.Errorf("media.save: %w", err)
	}
	return library.baseURL + "/" + key, nil
}

// Delete removes the object behind reference. Empty and foreign references are ignored.
func (library *Library) Delete(ctx context.Context, reference string) error {
	key, ok := library.keyFor(reference)
	if !ok {
		return nil
	}
	if err := library.store.Delete(ctx, key); err != nil {
		return fmt.Errorf("media.delete: %w", err)
	}
	return nil
}

func (library *Library) keyFor(reference string) (string, bool) {
	if strings.TrimSpace(reference) == "" {
		return "", false
	}
	key, found := strings.CutPrefix(reference, library.baseURL+"/")
	if !found || key == "" || strings.Contains(key, "..") {
		return "", false
	}
	return key, true
}

func sanitize(owner string) string {
	var builder strings.Builder
	for _, character := range strings.ToLower(owner) {
		switch {
		case character >= 'a' && character <= 'z', character >= '0' && character <= '9', character == '-':
			builder.WriteRune(character)
		default:
			builder.WriteByte('-')
		}
	}
	if builder.Len() == 0 {
		return "anonymous"
	}
	return builder.String()
}
