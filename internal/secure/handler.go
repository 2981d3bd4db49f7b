package secure

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/froyplus000/pattarapol-focusbear-intern-repo/internal/apperr"
	"github.com/froyplus000/pattarapol-focusbear-intern-repo/internal/logging"
	"github.com/froyplus000/pattarapol-focusbear-intern-repo/internal/middleware"
	"github.com/froyplus000/pattarapol-focusbear-intern-repo/internal/users"
	"github.com/froyplus000/pattarapol-focusbear-intern-repo/internal/validation"
	"github.com/gin-gonic/gin"
)

var messages = validation.Catalog{
	"name.required":  "Name is required",
	"name.max":       "Name must be at most 100 characters",
	"email.required": "Email is required",
	"email.email":    "Please provide a valid email address",
	"email.max":      "Email must be at most 200 characters",
}

type Handler struct {
	Repo *Repository
}

func (h *Handler) Register(rg gin.IRoutes) {
	rg.POST("/users", h.Create)
	rg.GET("/users", h.List)
	rg.GET("/users/raw", h.Raw)
	rg.GET("/users/:id", h.Get)
	rg.DELETE("/users/:id", h.Delete)
}

func (h *Handler) Create(c *gin.Context) {
	var in CreateUserDto
	if err := validation.BindJSON(c, &in, messages); err != nil {
		middleware.Fail(c, err)
		return
	}
	u, err := h.Repo.Create(c.Request.Context(), in)
	if err != nil {
		middleware.Fail(c, apperr.Internal(err))
		return
	}
	logging.FromContext(c).WithField("user_id", u.ID).Info("encrypted user stored")
	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"message": "User created successfully",
		"data":    u,
	})
}

func (h *Handler) List(c *gin.Context) {
	list, err := h.Repo.FindAll(c.Request.Context())
	if err != nil {
		middleware.Fail(c, apperr.Internal(err))
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Users retrieved successfully",
		"data":    list,
		"count":   len(list),
	})
}

func (h *Handler) Raw(c *gin.Context) {
	rows, err := h.Repo.Raw(c.Request.Context())
	if err != nil {
		middleware.Fail(c, apperr.Internal(err))
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Raw encrypted data from database",
		"note":    "email, ssn and sensitiveNotes are stored encrypted",
		"data":    rows,
		"count":   len(rows),
	})
}

func (h *Handler) Get(c *gin.Context) {
	id, err := users.ParseID(c)
	if err != nil {
		middleware.Fail(c, err)
		return
	}
	u, err := h.Repo.FindOne(c.Request.Context(), id)
	if err != nil {
		middleware.Fail(c, notFoundOr(err, id))
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "User retrieved successfully",
		"data":    u,
	})
}

func (h *Handler) Delete(c *gin.Context) {
	id, err := users.ParseID(c)
	if err != nil {
		middleware.Fail(c, err)
		return
	}
	if err := h.Repo.Remove(c.Request.Context(), id); err != nil {
		middleware.Fail(c, notFoundOr(err, id))
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": fmt.Sprintf("User with ID %d deleted successfully", id),
	})
}

func notFoundOr(err error, id int) error {
	if errors.Is(err, ErrNotFound) {
		return apperr.NotFound(fmt.Sprintf("User with ID %d not found", id))
	}
	return apperr.Internal(err)
}
