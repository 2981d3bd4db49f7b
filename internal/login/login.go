// Package login holds the two login flavours used by the testing and
// logging services: email login issuing mock tokens, and a hard-coded
// admin login that logs every attempt.
package login

import (
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"sync"

	"github.com/froyplus000/pattarapol-focusbear-intern-repo/internal/apperr"
	"github.com/froyplus000/pattarapol-focusbear-intern-repo/internal/logging"
	"github.com/froyplus000/pattarapol-focusbear-intern-repo/internal/middleware"
	"github.com/froyplus000/pattarapol-focusbear-intern-repo/internal/validation"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

const tokenPrefix = "mock.jwt.token."

var tokenPattern = regexp.MustCompile(`^mock\.jwt\.token\.(\d+)$`)

// User is a directory entry. The password is never serialized.
type User struct {
	ID       int    `json:"id"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"-"`
}

// Request is the body of POST /users/login.
type Request struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
}

// Response is returned after a successful login.
type Response struct {
	AccessToken string `json:"access_token"`
	User        User   `json:"user"`
}

var messages = validation.Catalog{
	"email.required":    "Email is required",
	"email.email":       "Please provide a valid email address",
	"password.required": "Password is required",
	"password.min":      "Password must be at least 6 characters long",
}

// Directory authenticates users by email and password.
type Directory struct {
	mu    sync.RWMutex
	users map[string]User
}

// NewDirectory returns a directory holding users.
func NewDirectory(users ...User) *Directory {
	d := &Directory{users: make(map[string]User, len(users))}
	for _, u := range users {
		d.users[u.Email] = u
	}
	return d
}

// DemoDirectory holds John and Jane.
func DemoDirectory() *Directory {
	return NewDirectory(
		User{ID: 1, Name: "John Doe", Email: "john@example.com", Password: "password123"},
		User{ID: 2, Name: "Jane Smith", Email: "jane@example.com", Password: "password456"},
	)
}

// Login returns a mock token for matching credentials.
func (d *Directory) Login(email, password string) (*Response, error) {
	d.mu.RLock()
	u, ok := d.users[email]
	d.mu.RUnlock()

	if !ok || u.Password != password {
		return nil, apperr.Unauthorized("Invalid email or password")
	}
	return &Response{AccessToken: tokenPrefix + strconv.Itoa(u.ID), User: u}, nil
}

// ValidateToken returns the user a mock token was issued for.
func (d *Directory) ValidateToken(token string) (*User, bool) {
	m := tokenPattern.FindStringSubmatch(token)
	if m == nil {
		return nil, false
	}
	id, err := strconv.Atoi(m[1])
	if err != nil {
		return nil, false
	}

	d.mu.RLock()
	defer d.mu.RUnlock()
	for _, u := range d.users {
		if u.ID == id {
			return &u, true
		}
	}
	return nil, false
}

// Handler serves the email login routes.
type Handler struct {
	Directory *Directory
}

func (h *Handler) Register(rg gin.IRoutes) {
	rg.GET("/users/health", h.Health)
	rg.POST("/users/login", h.Login)
	rg.GET("/users/me", h.Me)
}

func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "message": "Users service is running"})
}

func (h *Handler) Login(c *gin.Context) {
	var in Request
	if err := validation.BindJSON(c, &in, messages); err != nil {
		middleware.Fail(c, err)
		return
	}
	res, err := h.Directory.Login(in.Email, in.Password)
	if err != nil {
		middleware.Fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, res)
}

// Me resolves the bearer token back to its user.
func (h *Handler) Me(c *gin.Context) {
	token := c.GetHeader("Authorization")
	if len(token) > 7 && token[:7] == "Bearer " {
		token = token[7:]
	}
	u, ok := h.Directory.ValidateToken(token)
	if !ok {
		middleware.Fail(c, apperr.Unauthorized("Invalid token"))
		return
	}
	c.JSON(http.StatusOK, u)
}

// AdminLogin is the logging service's mock login: admin/password succeeds,
// anything else is refused, and every step is logged.
type AdminLogin struct{}

type adminRequest struct {
	Username string `json:"username"`
	Password any    `json:"password"`
}

func (AdminLogin) Register(rg gin.IRoutes) {
	rg.POST("/login", AdminLogin{}.Login)
}

func (AdminLogin) Login(c *gin.Context) {
	log := logging.FromContext(c)

	var in adminRequest
	if err := c.ShouldBindJSON(&in); err != nil {
		middleware.Fail(c, apperr.BadRequest("Invalid request body"))
		return
	}
	log.WithField("username", in.Username).Info("login attempt")

	password, ok := in.Password.(string)
	if !ok {
		log.WithFields(logrus.Fields{
			"username":      in.Username,
			"password_type": fmt.Sprintf("%T", in.Password),
		}).Warn("password is not a string")
		middleware.Fail(c, apperr.BadRequest("Password must be a string"))
		return
	}

	if in.Username == "admin" && password == "password" {
		log.WithField("username", in.Username).Info("login successful")
		c.JSON(http.StatusCreated, gin.H{"success": true, "message": "Login successful!", "username": in.Username})
		return
	}

	log.WithField("username", in.Username).Warn("login failed")
	c.JSON(http.StatusCreated, "Invalid username or password")
}
