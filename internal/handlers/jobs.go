package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/gigmarket/internal/apperrors"
	"github.com/Skotchmaster/gigmarket/internal/logging"
	authmw "github.com/Skotchmaster/gigmarket/internal/middleware/auth"
	"github.com/Skotchmaster/gigmarket/internal/models"
	"github.com/Skotchmaster/gigmarket/internal/mykafka"
	"github.com/Skotchmaster/gigmarket/internal/repo"
	"github.com/Skotchmaster/gigmarket/internal/service/search"
	"github.com/Skotchmaster/gigmarket/internal/upload"
	"github.com/Skotchmaster/gigmarket/internal/util"
)

// HeaderTotalCount carries the unpaginated total on list responses.
const HeaderTotalCount = "X-Total-Count"

type JobHandler struct {
	Repo     *repo.GormRepo
	Uploader *upload.Uploader
	Producer mykafka.Publisher
	Index    *search.JobIndex
}

type createJobRequest struct {
	Title       string `json:"title" form:"title" validate:"required,max=200"`
	Category    string `json:"category" form:"category"`
	Type        string `json:"type" form:"type"`
	Location    string `json:"location" form:"location"`
	Budget      string `json:"budget" form:"budget"`
	Skills      string `json:"skills" form:"skills"`
	Description string `json:"description" form:"description"`
}

func (h *JobHandler) GetJobs(c echo.Context) error {
	ctx := c.Request().Context()
	from, limit := util.FromQuery(c.QueryParam("page"), c.QueryParam("size"))

	jobs, total, err := h.Repo.ListJobs(ctx, from, limit)
	if err != nil {
		return apperrors.Internal(err)
	}

	c.Response().Header().Set(HeaderTotalCount, strconv.FormatInt(total, 10))
	return c.JSON(http.StatusOK, echo.Map{"jobs": jobs})
}

func (h *JobHandler) GetJob(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}

	job, err := h.Repo.GetJob(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return apperrors.NotFound("not found")
		}
		return apperrors.Internal(err)
	}
	return c.JSON(http.StatusOK, echo.Map{"job": job})
}

func (h *JobHandler) CreateJob(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "job_create")

	user, ok := authmw.Principal(c)
	if !ok {
		return apperrors.Unauthenticated("no token")
	}

	var req createJobRequest
	if err := c.Bind(&req); err != nil {
		return bindError(err)
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	job := &models.Job{
		Title:       req.Title,
		Category:    req.Category,
		Type:        req.Type,
		Location:    req.Location,
		Budget:      req.Budget,
		Skills:      req.Skills,
		Description: req.Description,
		OwnerID:     user.ID,
	}

	fh, err := formFile(c, upload.FieldAttachment)
	if err != nil {
		return err
	}
	var att *models.Attachment
	var stored *upload.Stored
	if fh != nil {
		stored, err = h.Uploader.Accept(ctx, upload.FieldAttachment, fh)
		if err != nil {
			l.Warn("upload_rejected", "status", 400, "field", upload.FieldAttachment, "size", fh.Size, "error", err)
			return uploadError(err)
		}
		att = &models.Attachment{Filename: fh.Filename, Path: stored.Ref}
	}

	if err := h.Repo.CreateJob(ctx, job, att); err != nil {
		if stored != nil {
			if derr := h.Uploader.Store.Delete(ctx, stored.Key); derr != nil {
				l.Error("attachment_cleanup_failed", "key", stored.Key, "error", derr)
			}
		}
		return apperrors.Internal(err)
	}

	publish(ctx, h.Producer, mykafka.TopicJobEvents, fmt.Sprint(job.ID), map[string]any{
		"type":     "job_created",
		"job_id":   job.ID,
		"owner_id": job.OwnerID,
		"title":    job.Title,
	})
	if h.Index != nil {
		if err := h.Index.IndexJob(ctx, *job); err != nil {
			l.Error("job_index_failed", "job_id", job.ID, "error", err)
		}
	}

	l.Info("job_created", "job_id", job.ID, "attachment", att != nil)
	return c.JSON(http.StatusCreated, echo.Map{"job": job})
}
