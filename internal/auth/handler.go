package auth

import (
	"net/http"

	"github.com/froyplus000/pattarapol-focusbear-intern-repo/internal/middleware"
	"github.com/froyplus000/pattarapol-focusbear-intern-repo/internal/validation"
	"github.com/gin-gonic/gin"
)

type Handler struct {
	Service *Service
}

func (h *Handler) Register(rg gin.IRoutes) {
	rg.POST("/auth/login", h.Login)
}

func (h *Handler) Login(c *gin.Context) {
	var in LoginRequest
	if err := validation.BindJSON(c, &in, nil); err != nil {
		middleware.Fail(c, err)
		return
	}
	res, err := h.Service.Login(c.Request.Context(), in.Username, in.Password)
	if err != nil {
		middleware.Fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, res)
}
