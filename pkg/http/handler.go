package http

import "github.com/labstack/echo/v4"

// Handler registers a component's routes on the shared Echo instance.
type Handler interface {
	RegisterRoutes(e *echo.Echo)
}
