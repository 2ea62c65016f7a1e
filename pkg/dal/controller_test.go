package dal

import (
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetIDParam(t *testing.T) {
	app := fiber.New()

	var gotID int64
	var gotErr error
	app.Get("/items/:id", func(c *fiber.Ctx) error {
		gotID, gotErr = GetIDParam(c)
		return c.SendStatus(fiber.StatusOK)
	})

	resp, err := app.Test(httptest.NewRequest("GET", "/items/42", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.NoError(t, gotErr)
	assert.Equal(t, int64(42), gotID)

	_, err = app.Test(httptest.NewRequest("GET", "/items/banana", nil))
	require.NoError(t, err)
	assert.Error(t, gotErr)
}

func TestGetIDsParam(t *testing.T) {
	app := fiber.New()

	var gotIDs []int64
	app.Delete("/items/batch/:ids", func(c *fiber.Ctx) error {
		var err error
		gotIDs, err = GetIDsParam(c)
		if err != nil {
			return c.SendStatus(fiber.StatusBadRequest)
		}
		return c.SendStatus(fiber.StatusOK)
	})

	resp, err := app.Test(httptest.NewRequest("DELETE", "/items/batch/1,2,3", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, []int64{1, 2, 3}, gotIDs)
}

func TestPagedResultShape(t *testing.T) {
	p := NewPagination(2, 10)
	result := NewPagedResult([]string{"a", "b"}, 12, p)

	assert.Equal(t, []string{"a", "b"}, result.Items)
	assert.Equal(t, int64(12), result.Total)
	assert.Equal(t, 2, result.Page)
	assert.Equal(t, 10, result.PageSize)
}
