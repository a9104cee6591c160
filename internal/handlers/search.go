package handlers

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/gigmarket/internal/apperrors"
	"github.com/Skotchmaster/gigmarket/internal/service/search"
	"github.com/Skotchmaster/gigmarket/internal/util"
)

type SearchHandler struct {
	Index *search.JobIndex
}

func (h *SearchHandler) Search(c echo.Context) error {
	if h.Index == nil {
		return apperrors.Unavailable("search is not configured")
	}

	q := c.QueryParam("q")
	if q == "" {
		return apperrors.Validation("q: is required")
	}
	from, size := util.FromQuery(c.QueryParam("page"), c.QueryParam("size"))

	total, jobs, err := h.Index.Search(c.Request().Context(), q, from, size)
	if err != nil {
		return apperrors.Internal(err)
	}

	c.Response().Header().Set(HeaderTotalCount, strconv.FormatInt(total, 10))
	return c.JSON(http.StatusOK, echo.Map{"jobs": jobs})
}
