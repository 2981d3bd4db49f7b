package users

import "github.com/froyplus000/pattarapol-focusbear-intern-repo/internal/validation"

// CreateUserDto is the body of POST /users. Unknown fields are ignored.
type CreateUserDto struct {
	Name     string `json:"name" binding:"required,min=2"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
	Age      *int   `json:"age" binding:"omitempty,min=18"`
}

// UpdateUserDto is the body of PATCH /users/:id. Every field is optional.
type UpdateUserDto struct {
	Name     *string `json:"name" binding:"omitempty,min=2"`
	Email    *string `json:"email" binding:"omitempty,email"`
	Password *string `json:"password" binding:"omitempty,min=6"`
	Age      *int    `json:"age" binding:"omitempty,min=18"`
}

var messages = validation.Catalog{
	"name.min":       "name must be at least 2 characters long",
	"email.email":    "Please provide a valid email address",
	"password.min":   "Password must be at least 6 characters long",
	"age.min":        "Age must be at least 18",
	"name.required":  "name must be at least 2 characters long",
	"email.required": "Please provide a valid email address",
}
