package users

import (
	"net/http"
	"strconv"

	"github.com/froyplus000/pattarapol-focusbear-intern-repo/internal/apperr"
	"github.com/froyplus000/pattarapol-focusbear-intern-repo/internal/logging"
	"github.com/froyplus000/pattarapol-focusbear-intern-repo/internal/middleware"
	"github.com/froyplus000/pattarapol-focusbear-intern-repo/internal/validation"
	"github.com/gin-gonic/gin"
)

type Handler struct {
	Store *Store
}

// Register mounts the CRUD routes on rg.
func (h *Handler) Register(rg gin.IRoutes) {
	rg.POST("/users", h.Create)
	rg.GET("/users", h.List)
	rg.GET("/users/:id", h.Get)
	rg.PATCH("/users/:id", h.Update)
	rg.DELETE("/users/:id", h.Delete)
}

func (h *Handler) Create(c *gin.Context) {
	var in CreateUserDto
	if err := validation.BindJSON(c, &in, messages); err != nil {
		middleware.Fail(c, err)
		return
	}

	u := h.Store.Create(in)
	logging.FromContext(c).WithField("user_id", u.ID).Info("user created")
	c.JSON(http.StatusCreated, gin.H{"message": "User created successfully", "data": u})
}

func (h *Handler) List(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "Users retrieved successfully", "data": h.Store.List()})
}

func (h *Handler) Get(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	u, err := h.Store.Get(id)
	if err != nil {
		middleware.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "User retrieved successfully", "data": u})
}

func (h *Handler) Update(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	var in UpdateUserDto
	if err := validation.BindJSON(c, &in, messages); err != nil {
		middleware.Fail(c, err)
		return
	}

	u, err := h.Store.Update(id, in)
	if err != nil {
		middleware.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "User updated successfully", "data": u})
}

func (h *Handler) Delete(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	if err := h.Store.Delete(id); err != nil {
		middleware.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "User deleted successfully", "deletedId": id})
}

// ParseID reads a numeric :id path parameter.
func ParseID(c *gin.Context) (int, error) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return 0, apperr.BadRequest("Validation failed (numeric string is expected)")
	}
	return id, nil
}

func paramID(c *gin.Context) (int, bool) {
	id, err := ParseID(c)
	if err != nil {
		middleware.Fail(c, err)
		return 0, false
	}
	return id, true
}
