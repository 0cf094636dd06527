package api

import (
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"

	"warranty-backend/config"
	"warranty-backend/internal/mw"
	"warranty-backend/internal/store"
	"warranty-backend/internal/warranty"
)

// NewRouter creates and configures a new Gin router.
func NewRouter(svc *warranty.Service, s store.Store, cfg *config.Config, webpushOptions *webpush.Options) *gin.Engine {
	r := gin.Default()

	handler := NewHandler(svc, s, cfg, webpushOptions)

	limit := rate.Limit(cfg.Server.RateLimitPerSec)
	if limit <= 0 {
		limit = rate.Limit(10)
	}
	burst := cfg.Server.RateLimitBurst
	if burst <= 0 {
		burst = 5
	}
	rateLimiter := mw.RateLimiter(limit, burst)

	cacheTTL := time.Duration(cfg.Server.CacheTTLSeconds) * time.Second
	if cacheTTL <= 0 {
		cacheTTL = 5 * time.Minute
	}
	cacheStore := cache.New(cacheTTL, 2*cacheTTL)
	caching := mw.Cache(cacheStore, cacheTTL)

	api := r.Group("/api")
	api.Use(rateLimiter)
	{
		api.POST("/warranty/activate", handler.PostActivate)
		api.POST("/warranty/check", handler.PostCheck)
		api.GET("/warranty/verify/:token", handler.GetVerify)
		api.GET("/warranty/options", caching, handler.GetOptions)

		api.GET("/subscriptions", handler.GetSubscription)
		api.PUT("/subscriptions", handler.PutSubscription)
		api.DELETE("/subscriptions", handler.DeleteSubscription)
		api.GET("/vapid_public_key", handler.GetVAPIDPublicKey)

		api.POST("/admin/login", handler.PostLogin)
	}

	admin := api.Group("/admin")
	admin.Use(mw.AdminAuth(cfg.Admin.JWTSecret))
	{
		admin.GET("/warranties", handler.GetWarranties)
		admin.GET("/stats", handler.GetStats)
		admin.GET("/warranties/export", handler.GetExport)
		admin.POST("/warranties/import", handler.PostImport)
		admin.POST("/warranties/bulk", handler.PostBulk)
		admin.POST("/warranties", handler.PostWarranty)
		admin.GET("/warranties/:id", handler.GetWarranty)
		admin.PUT("/warranties/:id", handler.PutWarranty)
		admin.DELETE("/warranties/:id", handler.DeleteWarranty)
		admin.POST("/warranties/:id/activate", handler.PostApprove)
	}

	return r
}
