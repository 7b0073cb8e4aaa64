package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"travel_tax/internal/domain"
	"travel_tax/internal/store"
	"travel_tax/internal/utils"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/sirupsen/logrus"
)

// Cache key prefix shared by province and tax-reduction reads
const provincesCachePrefix = "provinces:"

// ProvinceRequest is the body of POST and PUT /provinces
type ProvinceRequest struct {
	Name         string   `json:"name" binding:"required"`
	Category     string   `json:"category" binding:"required"`
	DiscountRate *float64 `json:"discount_rate"` // used for target provinces only
}

// ProvincePatchRequest is the body of PATCH /provinces/:id
type ProvincePatchRequest struct {
	Name         *string  `json:"name"`
	Category     *string  `json:"category"`
	DiscountRate *float64 `json:"discount_rate"`
}

// CreateProvincesHandler accepts a single province object or an array of them
func CreateProvincesHandler(st *store.Store, cache *utils.Cache) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, err := c.GetRawData()
		raw = bytes.TrimSpace(raw)
		if err != nil || len(raw) == 0 {
			invalidRequest(c)
			return
		}
		batch := raw[0] == '['
		var reqs []ProvinceRequest
		if batch {
			err = json.Unmarshal(raw, &reqs)
		} else {
			var req ProvinceRequest
			err = json.Unmarshal(raw, &req)
			reqs = []ProvinceRequest{req}
		}
		if err != nil || len(reqs) == 0 {
			invalidRequest(c)
			return
		}
		inputs := make([]store.ProvinceInput, 0, len(reqs))
		for i := range reqs {
			if err := binding.Validator.ValidateStruct(&reqs[i]); err != nil {
				invalidRequest(c)
				return
			}
			category, err := domain.ParseCategory(reqs[i].Category)
			if err != nil {
				respondError(c, err)
				return
			}
			inputs = append(inputs, store.ProvinceInput{
				Name:         reqs[i].Name,
				Category:     category,
				DiscountRate: reqs[i].DiscountRate,
			})
		}
		created, err := st.CreateProvinces(c.Request.Context(), inputs)
		if err != nil {
			respondError(c, err)
			return
		}
		invalidateProvinces(c, cache)
		logrus.WithField("count", len(created)).Info("Provinces created")
		if batch {
			c.JSON(http.StatusCreated, created)
			return
		}
		c.JSON(http.StatusCreated, created[0])
	}
}

// ListProvincesHandler returns every province, served from cache when possible
func ListProvincesHandler(st *store.Store, cache *utils.Cache) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		cacheKey := provincesCachePrefix + "all"
		var provinces []domain.Province
		if found, err := cache.Get(ctx, cacheKey, &provinces); err == nil && found {
			c.JSON(http.StatusOK, provinces)
			return
		}
		provinces, err := st.ListProvinces(ctx)
		if err != nil {
			respondError(c, err)
			return
		}
		_ = cache.Set(ctx, cacheKey, provinces) // Cache the result, ignore errors
		c.JSON(http.StatusOK, provinces)
	}
}

// GetProvinceHandler returns one province
func GetProvinceHandler(st *store.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathID(c, "id")
		if !ok {
			return
		}
		p, err := st.GetProvince(c.Request.Context(), id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, p)
	}
}

// ReplaceProvinceHandler handles PUT: name and category are required and the
// rate is reset unless given
func ReplaceProvinceHandler(st *store.Store, cache *utils.Cache) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathID(c, "id")
		if !ok {
			return
		}
		var req ProvinceRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			invalidRequest(c)
			return
		}
		category, err := domain.ParseCategory(req.Category)
		if err != nil {
			respondError(c, err)
			return
		}
		rate := req.DiscountRate
		if rate == nil {
			zero := 0.0
			rate = &zero
		}
		updateProvince(c, st, cache, id, store.ProvincePatch{
			Name:         &req.Name,
			Category:     &category,
			DiscountRate: rate,
		})
	}
}

// UpdateProvinceHandler handles PATCH; absent fields are left alone
func UpdateProvinceHandler(st *store.Store, cache *utils.Cache) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathID(c, "id")
		if !ok {
			return
		}
		var req ProvincePatchRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			invalidRequest(c)
			return
		}
		patch := store.ProvincePatch{Name: req.Name, DiscountRate: req.DiscountRate}
		if req.Category != nil {
			category, err := domain.ParseCategory(*req.Category)
			if err != nil {
				respondError(c, err)
				return
			}
			patch.Category = &category
		}
		updateProvince(c, st, cache, id, patch)
	}
}

func updateProvince(c *gin.Context, st *store.Store, cache *utils.Cache, id uint, patch store.ProvincePatch) {
	p, err := st.UpdateProvince(c.Request.Context(), id, patch)
	if err != nil {
		respondError(c, err)
		return
	}
	invalidateProvinces(c, cache)
	logrus.WithFields(logrus.Fields{
		"province_id":   p.ID,
		"category":      p.Category,
		"discount_rate": p.DiscountRate,
	}).Info("Province updated")
	c.JSON(http.StatusOK, p)
}

// DeleteProvinceHandler removes a province that no selection references
func DeleteProvinceHandler(st *store.Store, cache *utils.Cache) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathID(c, "id")
		if !ok {
			return
		}
		if err := st.DeleteProvince(c.Request.Context(), id); err != nil {
			respondError(c, err)
			return
		}
		invalidateProvinces(c, cache)
		logrus.WithField("province_id", id).Info("Province deleted")
		c.Status(http.StatusNoContent)
	}
}

// invalidateProvinces drops cached province reads; failures only cost freshness
func invalidateProvinces(c *gin.Context, cache *utils.Cache) {
	if err := cache.Invalidate(c.Request.Context(), provincesCachePrefix); err != nil {
		logrus.WithError(err).Warn("Failed to invalidate province cache")
	}
}
