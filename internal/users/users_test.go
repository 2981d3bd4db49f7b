package users

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/froyplus000/pattarapol-focusbear-intern-repo/internal/middleware"
	"github.com/froyplus000/pattarapol-focusbear-intern-repo/internal/snapshot"
	"github.com/froyplus000/pattarapol-focusbear-intern-repo/internal/validation"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRouter(t *testing.T, store *Store) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	validation.UseJSONNames()

	r := gin.New()
	r.Use(middleware.ErrorResponder())
	(&Handler{Store: store}).Register(r)
	return r
}

func newStore(t *testing.T) *Store {
	t.Helper()
	log, _ := test.NewNullLogger()
	s, err := NewStore(nil, log)
	require.NoError(t, err)
	return s
}

func send(r http.Handler, method, path, body string) (*httptest.ResponseRecorder, map[string]any) {
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	var out map[string]any
	_ = json.Unmarshal(w.Body.Bytes(), &out)
	return w, out
}

func TestCreateAndGet(t *testing.T) {
	r := setupTestRouter(t, newStore(t))

	w, body := send(r, http.MethodPost, "/users", `{"name":"Folk","email":"folk@example.com","password":"secret1","age":25,"role":"admin"}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, "User created successfully", body["message"])
	data := body["data"].(map[string]any)
	assert.Equal(t, float64(1), data["id"])
	assert.NotContains(t, data, "password")
	assert.NotContains(t, data, "role")

	w, body = send(r, http.MethodGet, "/users/1", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "User retrieved successfully", body["message"])
	assert.Equal(t, "folk@example.com", body["data"].(map[string]any)["email"])
}

func TestCreateValidation(t *testing.T) {
	r := setupTestRouter(t, newStore(t))

	w, body := send(r, http.MethodPost, "/users", `{"name":"F","email":"nope","password":"123","age":16}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, []any{
		"name must be at least 2 characters long",
		"Please provide a valid email address",
		"Password must be at least 6 characters long",
		"Age must be at least 18",
	}, body["message"])
}

func TestListUpdateDelete(t *testing.T) {
	store := newStore(t)
	store.Create(CreateUserDto{Name: "Folk", Email: "folk@example.com", Password: "secret1"})
	store.Create(CreateUserDto{Name: "Jane", Email: "jane@example.com", Password: "secret2"})
	r := setupTestRouter(t, store)

	w, body := send(r, http.MethodGet, "/users", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Users retrieved successfully", body["message"])
	assert.Len(t, body["data"], 2)

	w, body = send(r, http.MethodPatch, "/users/2", `{"name":"Janet"}`)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "User updated successfully", body["message"])
	assert.Equal(t, "Janet", body["data"].(map[string]any)["name"])
	assert.Equal(t, "jane@example.com", body["data"].(map[string]any)["email"])

	w, body = send(r, http.MethodPatch, "/users/2", `{"age":10}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, []any{"Age must be at least 18"}, body["message"])

	w, body = send(r, http.MethodDelete, "/users/1", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "User deleted successfully", body["message"])
	assert.Equal(t, float64(1), body["deletedId"])

	w, body = send(r, http.MethodGet, "/users/1", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "User with ID 1 not found", body["message"])
}

func TestNonNumericID(t *testing.T) {
	r := setupTestRouter(t, newStore(t))

	w, body := send(r, http.MethodGet, "/users/abc", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Validation failed (numeric string is expected)", body["message"])
}

func TestSnapshotRoundTrip(t *testing.T) {
	log, _ := test.NewNullLogger()
	p, err := snapshot.NewPersistence(t.TempDir())
	require.NoError(t, err)

	s, err := NewStore(p, log)
	require.NoError(t, err)
	s.Create(CreateUserDto{Name: "Folk", Email: "folk@example.com", Password: "secret1"})
	s.Create(CreateUserDto{Name: "Jane", Email: "jane@example.com", Password: "secret2"})
	require.NoError(t, s.Delete(1))
	s.Wait()

	restored, err := NewStore(p, log)
	require.NoError(t, err)
	list := restored.List()
	require.Len(t, list, 1)
	assert.Equal(t, "Jane", list[0].Name)
	assert.Equal(t, "secret2", list[0].Password)

	u := restored.Create(CreateUserDto{Name: "Kim", Email: "kim@example.com", Password: "secret3"})
	assert.Equal(t, 3, u.ID)
}
