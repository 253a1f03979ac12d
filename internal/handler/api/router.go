package api

import (
	xhttp "TickAttrib/pkg/http"

	"github.com/labstack/echo/v4"
)

// Router bundles the REST and websocket handlers behind one registration.
type Router struct {
	handlers []xhttp.Handler
}

var _ xhttp.Handler = (*Router)(nil)

func NewRouter(handlers ...xhttp.Handler) *Router {
	return &Router{handlers: handlers}
}

func (r *Router) RegisterRoutes(e *echo.Echo) {
	for _, h := range r.handlers {
		h.RegisterRoutes(e)
	}
}
