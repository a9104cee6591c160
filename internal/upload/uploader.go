package upload

import (
	"context"
	"fmt"
	"mime/multipart"

	"github.com/Skotchmaster/gigmarket/internal/storage"
)

type Stored struct {
	Descriptor
	Key string
	Ref string
}

// Uploader validates a multipart file and only then hands it to storage,
// so a rejected file never gets a durable reference.
type Uploader struct {
	Store storage.Storage
}

func (u *Uploader) Accept(ctx context.Context, field string, fh *multipart.FileHeader) (*Stored, error) {
	d, err := Describe(field, fh)
	if err != nil {
		return nil, err
	}
	if err := ValidateField(d); err != nil {
		return nil, err
	}

	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", field, err)
	}
	defer f.Close()

	ct := normalize(d.ContentType)
	if ct == "" {
		ct = normalize(d.Sniffed)
	}
	key := storage.NewKey(field, d.Filename)
	ref, err := u.Store.Save(ctx, key, f, ct)
	if err != nil {
		return nil, fmt.Errorf("store %s: %w", field, err)
	}
	return &Stored{Descriptor: d, Key: key, Ref: ref}, nil
}
