package api

import (
	"net/http"
	"travel_tax/internal/domain"
	"travel_tax/internal/store"
	"travel_tax/internal/utils"

	"github.com/gin-gonic/gin"
)

// TaxReductionsHandler lists tax-reduction views. With a nil fixed category it
// reads the optional :category path parameter.
func TaxReductionsHandler(st *store.Store, cache *utils.Cache, fixed *domain.Category) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		category := fixed
		if category == nil && c.Param("category") != "" {
			parsed, err := domain.ParseCategory(c.Param("category"))
			if err != nil {
				respondError(c, err)
				return
			}
			category = &parsed
		}
		cacheKey := provincesCachePrefix + "tax-reductions:all"
		if category != nil {
			cacheKey = provincesCachePrefix + "tax-reductions:" + string(*category)
		}

		var views []domain.TaxReduction
		if found, err := cache.Get(ctx, cacheKey, &views); err == nil && found {
			c.JSON(http.StatusOK, views)
			return
		}
		provinces, err := st.ProvincesByCategory(ctx, category)
		if err != nil {
			respondError(c, err)
			return
		}
		if len(provinces) == 0 {
			respondError(c, domain.NotFound("No provinces found"))
			return
		}
		views = make([]domain.TaxReduction, len(provinces))
		for i, p := range provinces {
			views[i] = domain.TaxReductionOf(p)
		}
		_ = cache.Set(ctx, cacheKey, views)
		c.JSON(http.StatusOK, views)
	}
}
