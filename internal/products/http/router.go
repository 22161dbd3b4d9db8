package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

const (
	healthStatusOK        = "ok"
	healthStatusUnhealthy = "unhealthy"

	apiPrefix = "/api/v1"
)

type HealthChecker interface {
	Health() error
}

// RegisterRoutes mounts the sale product and image endpoints. session runs
// only on the sale product group.
func RegisterRoutes(router *gin.Engine, handler *Handler, images *ImageHandler, session gin.HandlerFunc, checker HealthChecker) {
	api := router.Group(apiPrefix)

	sale := api.Group("/sale_product", session)
	sale.POST("/add", handler.AddProduct)
	sale.GET("/view", handler.ViewProduct)
	sale.GET("/view_all", handler.ViewAllProducts)
	sale.PATCH("/update/:id", handler.UpdateProduct)
	sale.DELETE("/delete/:id", handler.DeleteProduct)

	api.GET("/image/:name", images.DownloadImage)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.GET("/healthz", func(c *gin.Context) {
		if err := checker.Health(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": healthStatusUnhealthy})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": healthStatusOK})
	})
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
}
