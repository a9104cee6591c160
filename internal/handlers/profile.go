package handlers

import (
	"mime/multipart"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/gigmarket/internal/apperrors"
	"github.com/Skotchmaster/gigmarket/internal/logging"
	authmw "github.com/Skotchmaster/gigmarket/internal/middleware/auth"
	"github.com/Skotchmaster/gigmarket/internal/repo"
	"github.com/Skotchmaster/gigmarket/internal/upload"
)

type ProfileHandler struct {
	Repo     *repo.GormRepo
	Uploader *upload.Uploader
}

type profileRequest struct {
	Name   string `json:"name" form:"name" validate:"max=120"`
	Title  string `json:"title" form:"title" validate:"max=200"`
	Skills string `json:"skills" form:"skills" validate:"max=1000"`
	Bio    string `json:"bio" form:"bio" validate:"max=5000"`
}

// UpdateMe applies text fields and optional avatar/cv parts. Every present
// file is validated before any of them is stored, so a rejection leaves
// the profile untouched.
func (h *ProfileHandler) UpdateMe(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "profile_update")

	user, ok := authmw.Principal(c)
	if !ok {
		return apperrors.Unauthenticated("no token")
	}

	var req profileRequest
	if err := c.Bind(&req); err != nil {
		return bindError(err)
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	files := map[string]*multipart.FileHeader{}
	for _, field := range []string{upload.FieldAvatar, upload.FieldCV} {
		fh, err := formFile(c, field)
		if err != nil {
			return err
		}
		if fh == nil {
			continue
		}
		d, err := upload.Describe(field, fh)
		if err != nil {
			return apperrors.Internal(err)
		}
		if err := upload.ValidateField(d); err != nil {
			l.Warn("upload_rejected", "status", 400, "field", field, "size", d.Size, "content_type", d.ContentType, "sniffed", d.Sniffed)
			return uploadError(err)
		}
		files[field] = fh
	}

	fields := map[string]any{}
	if req.Name != "" {
		fields["name"] = req.Name
	}
	if req.Title != "" {
		fields["title"] = req.Title
	}
	if req.Skills != "" {
		fields["skills"] = req.Skills
	}
	if req.Bio != "" {
		fields["bio"] = req.Bio
	}

	if fh, ok := files[upload.FieldAvatar]; ok {
		stored, err := h.Uploader.Accept(ctx, upload.FieldAvatar, fh)
		if err != nil {
			return uploadError(err)
		}
		fields["avatar_url"] = stored.Ref
	}
	if fh, ok := files[upload.FieldCV]; ok {
		stored, err := h.Uploader.Accept(ctx, upload.FieldCV, fh)
		if err != nil {
			return uploadError(err)
		}
		fields["cv_path"] = stored.Ref
	}

	updated, err := h.Repo.UpdateProfile(ctx, user.ID, fields)
	if err != nil {
		return apperrors.Internal(err)
	}

	l.Info("profile_updated", "fields", len(fields))
	return c.JSON(http.StatusOK, echo.Map{"user": updated})
}
