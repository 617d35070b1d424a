package httpx

import (
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kitchenledger/kitchenledger/internal/money"
	"github.com/kitchenledger/kitchenledger/internal/shared"
)

type expenseRequest struct {
	Description string       `json:"description" validate:"required"`
	Amount      money.Amount `json:"amount"`
	Category    string       `json:"category" validate:"required,oneof=Ingredients Utilities Salary Other"`
}

func bind(body string) (expenseRequest, error) {
	var req expenseRequest
	r := httptest.NewRequest(http.MethodPost, "/api/expenses", strings.NewReader(body))
	err := Bind(httptest.NewRecorder(), r, &req)
	return req, err
}

func TestBind(t *testing.T) {
	req, err := bind(`{"description":"Gas","amount":1200.5,"category":"Utilities"}`)
	require.NoError(t, err)
	assert.Equal(t, "1200.50", req.Amount.String())

	_, err = bind(``)
	require.ErrorIs(t, err, shared.ErrValidation)
	assert.Equal(t, "request body is required", shared.UserSafeMessage(err))

	_, err = bind(`{"description":`)
	require.ErrorIs(t, err, shared.ErrValidation)

	_, err = bind(`{"description":"Gas","amount":1.001,"category":"Utilities"}`)
	require.ErrorIs(t, err, money.ErrTooPrecise)
	require.ErrorIs(t, err, shared.ErrValidation)

	_, err = bind(`{"description":"Gas","amount":1,"category":"Rent"}`)
	require.ErrorIs(t, err, shared.ErrValidation)
	assert.Equal(t, "category must be one of Ingredients Utilities Salary Other", shared.UserSafeMessage(err))

	_, err = bind(`{"amount":1,"category":"Other"}`)
	assert.Equal(t, "description is required", shared.UserSafeMessage(err))
}

func TestRespondError(t *testing.T) {
	cases := []struct {
		err    error
		status int
	}{
		{shared.Invalid("amount", "amount must be positive"), http.StatusBadRequest},
		{shared.ErrNotFound, http.StatusNotFound},
		{shared.ErrIdempotencyConflict, http.StatusConflict},
		{shared.ErrUnauthenticated, http.StatusUnauthorized},
		{shared.ErrCSRFTokenMismatch, http.StatusForbidden},
		{errors.New("pg down"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		rec := httptest.NewRecorder()
		RespondError(rec, slog.New(slog.NewTextHandler(&strings.Builder{}, nil)), tc.err)
		assert.Equal(t, tc.status, rec.Code, tc.err.Error())
		assert.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"))
	}

	rec := httptest.NewRecorder()
	RespondError(rec, nil, errors.New("pg down: password=secret"))
	assert.NotContains(t, rec.Body.String(), "secret")
}
