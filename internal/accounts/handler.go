package accounts

import (
	"errors"
	"net/http"

	"github.com/froyplus000/pattarapol-focusbear-intern-repo/internal/apperr"
	"github.com/froyplus000/pattarapol-focusbear-intern-repo/internal/logging"
	"github.com/froyplus000/pattarapol-focusbear-intern-repo/internal/middleware"
	"github.com/froyplus000/pattarapol-focusbear-intern-repo/internal/users"
	"github.com/froyplus000/pattarapol-focusbear-intern-repo/internal/validation"
	"github.com/gin-gonic/gin"
)

type Handler struct {
	Service *Service
}

// Register mounts the user routes, including the error demonstration ones.
func (h *Handler) Register(rg gin.IRoutes) {
	rg.GET("/users/test", h.Test)
	rg.GET("/users/test-error", h.TestError)
	rg.GET("/users/test-crash", h.TestCrash)
	rg.POST("/users", h.Create)
	rg.GET("/users", h.List)
	rg.GET("/users/:id", h.Get)
	rg.PUT("/users/:id", h.Update)
	rg.DELETE("/users/:id", h.Delete)
}

// Test returns a static user to show the password never leaves the server.
func (h *Handler) Test(c *gin.Context) {
	first, last, pw, age := "John", "Doe", "super-secret", 30
	c.JSON(http.StatusOK, Account{
		ID:        1,
		Username:  "john_doe",
		FirstName: &first,
		LastName:  &last,
		Password:  &pw,
		Age:       &age,
	})
}

func (h *Handler) TestError(c *gin.Context) {
	logging.FromContext(c).Info("about to throw a test error")
	middleware.Fail(c, apperr.BadRequest("This is a test error!"))
}

func (h *Handler) TestCrash(c *gin.Context) {
	middleware.Fail(c, errors.New("Something went wrong unexpectedly!"))
}

func (h *Handler) Create(c *gin.Context) {
	var in CreateAccountDto
	if err := validation.BindJSON(c, &in, messages); err != nil {
		middleware.Fail(c, err)
		return
	}
	a, err := h.Service.Create(c.Request.Context(), in)
	if err != nil {
		middleware.Fail(c, err)
		return
	}
	logging.FromContext(c).WithField("user_id", a.ID).Info("user created")
	c.JSON(http.StatusCreated, a)
}

func (h *Handler) List(c *gin.Context) {
	list, err := h.Service.FindAll(c.Request.Context())
	if err != nil {
		middleware.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func (h *Handler) Get(c *gin.Context) {
	id, err := users.ParseID(c)
	if err != nil {
		middleware.Fail(c, err)
		return
	}
	a, err := h.Service.FindOne(c.Request.Context(), id)
	if err != nil {
		middleware.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, a)
}

func (h *Handler) Update(c *gin.Context) {
	id, err := users.ParseID(c)
	if err != nil {
		middleware.Fail(c, err)
		return
	}
	var in UpdateAccountDto
	if err := validation.BindJSON(c, &in, messages); err != nil {
		middleware.Fail(c, err)
		return
	}
	a, err := h.Service.Update(c.Request.Context(), id, in)
	if err != nil {
		middleware.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, a)
}

func (h *Handler) Delete(c *gin.Context) {
	id, err := users.ParseID(c)
	if err != nil {
		middleware.Fail(c, err)
		return
	}
	if err := h.Service.Remove(c.Request.Context(), id); err != nil {
		middleware.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": true, "id": id})
}
