package http

import (
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/shaileshgontewar/crm-server/internal/api/dto"
	"github.com/shaileshgontewar/crm-server/internal/observability"
	apperrors "github.com/shaileshgontewar/crm-server/pkg/util"
)

func newTestApp(t *testing.T) *fiber.App {
	t.Helper()
	app := fiber.New()
	app.Use(errorHandlingMiddleware(zap.NewNop(), observability.NewMetrics()))
	return app
}

func doRequest(t *testing.T, app *fiber.App, path string) (int, map[string]any) {
	t.Helper()
	resp, err := app.Test(httptest.NewRequest("GET", path, nil))
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var payload map[string]any
	require.NoError(t, json.Unmarshal(body, &payload))
	return resp.StatusCode, payload
}

func TestErrorEnvelopeValidation(t *testing.T) {
	app := newTestApp(t)
	app.Get("/boom", func(c *fiber.Ctx) error {
		return apperrors.NewValidationError("name is required", map[string]any{
			"errors": []dto.FieldError{{Field: "name", Message: "name is required"}},
		})
	})

	status, payload := doRequest(t, app, "/boom")
	assert.Equal(t, 400, status)
	assert.Equal(t, false, payload["success"])
	assert.Equal(t, "name is required", payload["message"])

	errs, ok := payload["errors"].([]any)
	require.True(t, ok)
	require.Len(t, errs, 1)
	first := errs[0].(map[string]any)
	assert.Equal(t, "name", first["field"])
}

func TestErrorEnvelopeNotFoundAndForbidden(t *testing.T) {
	app := newTestApp(t)
	app.Get("/missing", func(c *fiber.Ctx) error {
		return apperrors.NewNotFound("Enquiry")
	})
	app.Get("/denied", func(c *fiber.Ctx) error {
		return apperrors.NewForbidden("not authorized to access this enquiry")
	})

	status, payload := doRequest(t, app, "/missing")
	assert.Equal(t, 404, status)
	assert.Equal(t, "Enquiry not found", payload["message"])
	_, hasErrors := payload["errors"]
	assert.False(t, hasErrors)

	status, payload = doRequest(t, app, "/denied")
	assert.Equal(t, 403, status)
	assert.Equal(t, "not authorized to access this enquiry", payload["message"])
}

func TestErrorEnvelopeInternalHidesDetail(t *testing.T) {
	app := newTestApp(t)
	app.Get("/internal", func(c *fiber.Ctx) error {
		return apperrors.NewInternalError(assert.AnError)
	})

	status, payload := doRequest(t, app, "/internal")
	assert.Equal(t, 500, status)
	assert.Equal(t, "internal server error", payload["message"])
	assert.NotContains(t, payload["message"], assert.AnError.Error())
}

func TestPanicRecovery(t *testing.T) {
	app := newTestApp(t)
	app.Get("/panic", func(c *fiber.Ctx) error {
		panic("unexpected")
	})

	status, payload := doRequest(t, app, "/panic")
	assert.Equal(t, 500, status)
	assert.Equal(t, false, payload["success"])
}
