// Package validation turns validator failures into the human readable
// messages the services return, and binds request bodies through gin.
package validation

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"reflect"
	"strings"
	"sync"

	"github.com/froyplus000/pattarapol-focusbear-intern-repo/internal/apperr"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// Catalog maps "field.tag" to the message reported when that rule fails.
type Catalog map[string]string

var once sync.Once

// UseJSONNames makes gin's validator report JSON field names.
func UseJSONNames() {
	once.Do(func() {
		if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
			v.RegisterTagNameFunc(TagName("json"))
		}
	})
}

// TagName returns a name function reading the first element of tag.
func TagName(tag string) func(reflect.StructField) string {
	return func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get(tag), ",")
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	}
}

// Messages lists one message per failed field, in struct order.
func Messages(err error, catalog Catalog) []string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []string{err.Error()}
	}

	out := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		if msg, ok := catalog[fe.Field()+"."+fe.Tag()]; ok {
			out = append(out, msg)
			continue
		}
		out = append(out, Default(fe))
	}
	return out
}

// Default renders a generic message for fe.
func Default(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "email":
		return field + " must be an email"
	case "url", "http_url":
		return field + " must be a valid URL"
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s]", field, strings.ReplaceAll(fe.Param(), " ", ", "))
	case "hexadecimal":
		return field + " must be a hexadecimal string"
	case "len":
		return fmt.Sprintf("%s must be exactly %s characters long", field, fe.Param())
	case "min":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("%s must be at least %s characters long", field, fe.Param())
		}
		return fmt.Sprintf("%s must not be less than %s", field, fe.Param())
	case "max":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("%s must be shorter than or equal to %s characters", field, fe.Param())
		}
		return fmt.Sprintf("%s must not be greater than %s", field, fe.Param())
	default:
		return fmt.Sprintf("%s failed on the %s rule", field, fe.Tag())
	}
}

// BindJSON decodes the request body into dst and validates it. An empty body
// is validated as an empty object so required rules report their messages.
func BindJSON(c *gin.Context, dst any, catalog Catalog) error {
	err := c.ShouldBindJSON(dst)
	if errors.Is(err, io.EOF) {
		err = binding.Validator.ValidateStruct(dst)
	}
	return badRequest(err, catalog)
}

// BindStrictJSON is BindJSON for whitelisted bodies: a property dst does not
// declare fails with "property <name> should not exist".
func BindStrictJSON(c *gin.Context, dst any, catalog Catalog) error {
	dec := json.NewDecoder(c.Request.Body)
	dec.DisallowUnknownFields()
	err := dec.Decode(dst)
	if errors.Is(err, io.EOF) {
		err = nil
	}
	if err != nil {
		if name, ok := strings.CutPrefix(err.Error(), `json: unknown field "`); ok {
			return apperr.BadRequest("Bad Request", "property "+strings.TrimSuffix(name, `"`)+" should not exist")
		}
		return apperr.BadRequest("Invalid request body", err.Error())
	}
	return badRequest(binding.Validator.ValidateStruct(dst), catalog)
}

func badRequest(err error, catalog Catalog) error {
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		return apperr.BadRequest("Bad Request", Messages(verrs, catalog)...)
	}
	return apperr.BadRequest("Invalid request body", err.Error())
}
