package handler

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-adp-datatable/internal/middleware"
)

// Routes holds the handlers shared by every table resource.
type Routes struct {
	Tokens middleware.TokenValidator
	Views  *ViewHandler
	Logger *zap.Logger
}

// RegisterTable mounts the endpoints of one table resource under api. Reads
// need any authenticated user; mutations need a view editor role.
func RegisterTable[T any](api *gin.RouterGroup, name string, tables *TableHandler[T], r Routes) {
	g := api.Group("/"+name, middleware.JWT(r.Tokens), middleware.WithResponseMeta())
	editors := middleware.RequireRoles(middleware.ViewEditors...)

	g.GET("", tables.List)
	g.GET("/columns", tables.Columns)
	g.POST("/bulk-deactivate", editors, middleware.Audit(r.Logger, "bulk_deactivate", name), tables.BulkDeactivate)

	g.GET("/views", r.Views.List(name))
	g.POST("/views", editors, middleware.Audit(r.Logger, "view_create", name), r.Views.Create(name))
	g.PATCH("/views/:id", editors, middleware.Audit(r.Logger, "view_update", name), r.Views.Update(name))
	g.DELETE("/views/:id", editors, middleware.Audit(r.Logger, "view_delete", name), r.Views.Delete(name))
}
