package router

import (
	"github.com/gin-gonic/gin"
)

// APIVersion is the path segment every resource is mounted under
const APIVersion = "v1"

// Route is one endpoint of a Resource. Guard, when set, runs before Handler;
// it is how per-route scope checks are attached.
type Route struct {
	Method  string
	Path    string
	Guard   gin.HandlerFunc
	Handler gin.HandlerFunc
}

// Resource is a set of routes sharing a path prefix and middleware
type Resource struct {
	Name       string
	Prefix     string
	Middleware []gin.HandlerFunc
	Routes     []Route
}

// Mount registers the resource on rg
func (res Resource) Mount(rg *gin.RouterGroup) {
	group := rg.Group(res.Prefix, res.Middleware...)
	for _, route := range res.Routes {
		handlers := []gin.HandlerFunc{route.Handler}
		if route.Guard != nil {
			handlers = []gin.HandlerFunc{route.Guard, route.Handler}
		}
		group.Handle(route.Method, route.Path, handlers...)
	}
}

// MountAPI creates /api/<APIVersion> on engine with the shared middleware
// and mounts every resource under it
func MountAPI(engine *gin.Engine, middleware []gin.HandlerFunc, resources ...Resource) *gin.RouterGroup {
	api := engine.Group("/api/"+APIVersion, middleware...)
	for _, res := range resources {
		res.Mount(api)
	}
	return api
}
