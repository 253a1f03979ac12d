package http

import "github.com/labstack/echo/v4"

// Handler is implemented by anything that mounts routes on the shared
// Echo instance. The server accepts one Handler; compose several with a
// router before passing them in.
type Handler interface {
	RegisterRoutes(e *echo.Echo)
}
