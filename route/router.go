package route

import (
	"cs-portal/api"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func Register(r *gin.Engine, forms *api.FormHandler, store api.Pinger, session api.SessionOptions) {

	// health and metrics
	r.GET("/health", api.HealthHandler(store))
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// form pages
	page := r.Group("/", api.SessionMiddleware(session))
	{
		page.GET("", forms.Page)
		page.POST("submit", forms.SubmitForm)
		page.POST("reset", forms.ResetForm)
	}

	// JSON API
	apiGroup := r.Group("/api", api.SessionMiddleware(session))
	{
		apiGroup.GET("/state", forms.APIState)
		apiGroup.POST("/submit", forms.APISubmit)
		apiGroup.POST("/reset", forms.APIReset)
	}
}
