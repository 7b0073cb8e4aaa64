package api

import (
	"net/http"
	"travel_tax/internal/metrics"
	"travel_tax/internal/middleware"
	"travel_tax/internal/store"
	"travel_tax/internal/utils"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// SelectionRequest names the province to select
type SelectionRequest struct {
	ProvinceID uint `json:"province_id" binding:"required,gt=0"`
}

// ListSelectionsHandler returns the caller's selections
func ListSelectionsHandler(st *store.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, _ := middleware.CurrentUser(c)
		views, err := st.SelectionsFor(c.Request.Context(), user)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, views)
	}
}

// CreateSelectionHandler records a province selection for the caller
func CreateSelectionHandler(st *store.Store, cache *utils.Cache, m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, _ := middleware.CurrentUser(c)
		var req SelectionRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			invalidRequest(c)
			return
		}
		view, err := st.Select(c.Request.Context(), user, req.ProvinceID)
		if err != nil {
			respondError(c, err)
			return
		}
		invalidateProvinces(c, cache) // is_selected changed
		m.SelectionsCreated.Inc()
		logrus.WithFields(logrus.Fields{
			"user_id":     user.ID,
			"province_id": view.ProvinceID,
		}).Info("Province selected")
		c.JSON(http.StatusCreated, view)
	}
}

// DeleteSelectionHandler removes one of the caller's selections
func DeleteSelectionHandler(st *store.Store, cache *utils.Cache) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, _ := middleware.CurrentUser(c)
		id, ok := pathID(c, "id")
		if !ok {
			return
		}
		if err := st.Unselect(c.Request.Context(), id, user.ID); err != nil {
			respondError(c, err)
			return
		}
		invalidateProvinces(c, cache)
		logrus.WithFields(logrus.Fields{"user_id": user.ID, "selection_id": id}).Info("Selection removed")
		c.Status(http.StatusNoContent)
	}
}
