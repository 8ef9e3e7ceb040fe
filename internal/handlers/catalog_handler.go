package handlers

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"

	"github.com/yogamaster/yoga-client/internal/api"
	"github.com/yogamaster/yoga-client/internal/models"
)

// CatalogHandler serves the public browsing pages; they never require
// a session.
type CatalogHandler struct {
	api *api.Client
}

func NewCatalogHandler(client *api.Client) *CatalogHandler {
	return &CatalogHandler{api: client}
}

// Classes lists the class catalog.
func (h *CatalogHandler) Classes(c echo.Context) error {
	classes, err := h.api.ListClasses(c.Request().Context())
	if err != nil {
		log.Error().Err(err).Msg("Failed to load classes")
		return c.JSON(http.StatusBadGateway, models.ErrorResponse{Error: "failed to load classes"})
	}
	return c.JSON(http.StatusOK, classes)
}

// Class shows a single class.
func (h *CatalogHandler) Class(c echo.Context) error {
	class, err := h.api.GetClass(c.Request().Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, api.ErrNotFound) {
			return c.JSON(http.StatusNotFound, models.ErrorResponse{Error: "class not found"})
		}
		log.Error().Err(err).Str("id", c.Param("id")).Msg("Failed to load class")
		return c.JSON(http.StatusBadGateway, models.ErrorResponse{Error: "failed to load class"})
	}
	return c.JSON(http.StatusOK, class)
}

// Instructors lists the instructor directory.
func (h *CatalogHandler) Instructors(c echo.Context) error {
	instructors, err := h.api.ListInstructors(c.Request().Context())
	if err != nil {
		log.Error().Err(err).Msg("Failed to load instructors")
		return c.JSON(http.StatusBadGateway, models.ErrorResponse{Error: "failed to load instructors"})
	}
	return c.JSON(http.StatusOK, instructors)
}
