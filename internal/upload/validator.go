package upload

import (
	"errors"
	"fmt"
	"mime"
	"mime/multipart"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

type Reason string

const (
	TooLarge    Reason = "too_large"
	InvalidType Reason = "invalid_type"
)

var (
	ErrTooLarge    = errors.New("upload too large")
	ErrInvalidType = errors.New("upload type not allowed")
)

// Descriptor is what the server knows about one received file before it
// is stored. Sniffed is empty when the content was not inspected.
type Descriptor struct {
	Field       string
	Size        int64
	ContentType string
	Filename    string
	Sniffed     string
}

type Rejection struct {
	Field   string
	Reason  Reason
	Message string
}

func (r *Rejection) Error() string {
	return fmt.Sprintf("%s rejected: %s", r.Field, r.Message)
}

func (r *Rejection) Unwrap() error {
	if r.Reason == TooLarge {
		return ErrTooLarge
	}
	return ErrInvalidType
}

// Validate checks size first, then the declared type and, when known, the
// sniffed type against the policy allow-list.
func Validate(d Descriptor, p Policy) error {
	if d.Size > p.MaxSize {
		return &Rejection{Field: p.Field, Reason: TooLarge, Message: p.TooLargeMsg}
	}
	if len(p.Allowed) == 0 {
		return nil
	}
	if !p.allows(normalize(d.ContentType)) {
		return &Rejection{Field: p.Field, Reason: InvalidType, Message: p.InvalidTypeMsg}
	}
	if d.Sniffed != "" && !p.allows(normalize(d.Sniffed)) {
		return &Rejection{Field: p.Field, Reason: InvalidType, Message: p.InvalidTypeMsg}
	}
	return nil
}

// ValidateField looks up the policy by d.Field. Unknown fields are rejected.
func ValidateField(d Descriptor) error {
	p, ok := PolicyFor(d.Field)
	if !ok {
		return &Rejection{Field: d.Field, Reason: InvalidType, Message: "unsupported upload field"}
	}
	return Validate(d, p)
}

// Describe builds a descriptor from a multipart part, sniffing the head of
// the content with mimetype.
func Describe(field string, fh *multipart.FileHeader) (Descriptor, error) {
	d := Descriptor{
		Field:       field,
		Size:        fh.Size,
		ContentType: fh.Header.Get("Content-Type"),
		Filename:    fh.Filename,
	}

	f, err := fh.Open()
	if err != nil {
		return d, fmt.Errorf("open %s: %w", field, err)
	}
	defer f.Close()

	mt, err := mimetype.DetectReader(f)
	if err != nil {
		return d, fmt.Errorf("sniff %s: %w", field, err)
	}
	d.Sniffed = mt.String()
	return d, nil
}

func normalize(ct string) string {
	mt, _, err := mime.ParseMediaType(ct)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(ct))
	}
	return mt
}
