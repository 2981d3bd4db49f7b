// Package signup is the registration flow of the debugging service. Users
// are held in memory keyed by email.
package signup

import (
	"net/http"
	"strings"
	"sync"

	"github.com/froyplus000/pattarapol-focusbear-intern-repo/internal/apperr"
	"github.com/froyplus000/pattarapol-focusbear-intern-repo/internal/logging"
	"github.com/froyplus000/pattarapol-focusbear-intern-repo/internal/middleware"
	"github.com/gin-gonic/gin"
)

// Request is the body of POST /users.
type Request struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Profile is the public part of a registered user.
type Profile struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Entry is one element of the user listing.
type Entry struct {
	Email    string  `json:"email"`
	UserData Profile `json:"userData"`
}

type record struct {
	Profile
	password string
}

// Registry stores registered users.
type Registry struct {
	mu    sync.RWMutex
	users map[string]record
	order []string
}

func NewRegistry() *Registry {
	return &Registry{users: make(map[string]record)}
}

// Create registers a user after checking required fields, email shape and
// uniqueness.
func (r *Registry) Create(in Request) (Profile, error) {
	if in.Name == "" || in.Email == "" || in.Password == "" {
		return Profile{}, apperr.BadRequest("Name, email, and password are required")
	}
	if !strings.Contains(in.Email, "@") {
		return Profile{}, apperr.BadRequest("Invalid email format")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.users[in.Email]; exists {
		return Profile{}, apperr.Conflict("User with this email already exists")
	}
	p := Profile{Name: in.Name, Email: in.Email}
	r.users[in.Email] = record{Profile: p, password: in.Password}
	r.order = append(r.order, in.Email)
	return p, nil
}

// List returns registered users in registration order.
func (r *Registry) List() []Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Entry, 0, len(r.order))
	for _, email := range r.order {
		out = append(out, Entry{Email: email, UserData: r.users[email].Profile})
	}
	return out
}

type Handler struct {
	Registry *Registry
}

func (h *Handler) Register(rg gin.IRoutes) {
	rg.POST("/users", h.Create)
	rg.GET("/users", h.List)
}

func (h *Handler) Create(c *gin.Context) {
	var in Request
	if err := c.ShouldBindJSON(&in); err != nil {
		middleware.Fail(c, apperr.BadRequest("Name, email, and password are required"))
		return
	}
	logging.FromContext(c).WithField("email", in.Email).Debug("creating user")

	p, err := h.Registry.Create(in)
	if err != nil {
		middleware.Fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, p)
}

func (h *Handler) List(c *gin.Context) {
	c.JSON(http.StatusOK, h.Registry.List())
}
