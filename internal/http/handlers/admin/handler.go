package admin

import "github.com/leafbox-next/internal/provider"

// Handler back-office endpoints. Every route sits behind the admin JWT
// middleware.
type Handler struct {
	*provider.Container
}

// New creates the admin handler
func New(c *provider.Container) *Handler {
	return &Handler{Container: c}
}
