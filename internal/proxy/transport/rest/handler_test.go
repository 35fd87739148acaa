package rest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/abgdnv/smartstock/internal/postgrest"
	"github.com/abgdnv/smartstock/internal/proxy/service"
	"github.com/abgdnv/smartstock/pkg/logger"
	"github.com/abgdnv/smartstock/pkg/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockProductService struct {
	mock.Mock
}

func (m *MockProductService) List(ctx context.Context) (json.RawMessage, error) {
	args := m.Called(ctx)
	var data json.RawMessage
	if args.Get(0) != nil {
		data = args.Get(0).(json.RawMessage)
	}
	return data, args.Error(1)
}

func (m *MockProductService) Create(ctx context.Context, body json.RawMessage) (json.RawMessage, error) {
	args := m.Called(ctx, body)
	var data json.RawMessage
	if args.Get(0) != nil {
		data = args.Get(0).(json.RawMessage)
	}
	return data, args.Error(1)
}

func (m *MockProductService) Update(ctx context.Context, name string, body json.RawMessage) (json.RawMessage, error) {
	args := m.Called(ctx, name, body)
	var data json.RawMessage
	if args.Get(0) != nil {
		data = args.Get(0).(json.RawMessage)
	}
	return data, args.Error(1)
}

func (m *MockProductService) Delete(ctx context.Context, name string) error {
	return m.Called(ctx, name).Error(0)
}

func newRouter(svc service.ProductService) http.Handler {
	mux := server.NewChiRouter(logger.Discard())
	NewHandler(svc, logger.Discard()).RegisterRoutes(mux)
	return mux
}

func serve(h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

var storeErr = &postgrest.Error{StatusCode: http.StatusForbidden, Message: "permission denied for table products"}

func Test_HealthCheck(t *testing.T) {
	rec := serve(newRouter(new(MockProductService)), http.MethodGet, "/api/health", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"ok":true}`, rec.Body.String())
}

func Test_List(t *testing.T) {
	testCases := []struct {
		name         string
		data         json.RawMessage
		err          error
		expectedCode int
		expectedBody string
	}{
		{
			name:         "success",
			data:         json.RawMessage(`[{"product_name":"Bolt"}]`),
			expectedCode: http.StatusOK,
			expectedBody: `[{"product_name":"Bolt"}]`,
		},
		{
			name:         "store error",
			err:          storeErr,
			expectedCode: http.StatusInternalServerError,
			expectedBody: `{"message":"permission denied for table products"}`,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// given
			svc := new(MockProductService)
			svc.On("List", mock.Anything).Return(tc.data, tc.err)

			// when
			rec := serve(newRouter(svc), http.MethodGet, "/api/products", "")

			// then
			require.Equal(t, tc.expectedCode, rec.Code)
			assert.JSONEq(t, tc.expectedBody, rec.Body.String())
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
			svc.AssertExpectations(t)
		})
	}
}

func Test_Create(t *testing.T) {
	testCases := []struct {
		name         string
		body         string
		created      json.RawMessage
		err          error
		expectedCode int
		expectCall   bool
	}{
		{name: "success", body: `{"product_name":"Nut"}`, created: json.RawMessage(`{"product_id":"3","product_name":"Nut"}`), expectedCode: http.StatusCreated, expectCall: true},
		{name: "store error", body: `{"product_name":"Nut"}`, err: storeErr, expectedCode: http.StatusInternalServerError, expectCall: true},
		{name: "array body", body: `[{"product_name":"Nut"}]`, expectedCode: http.StatusBadRequest},
		{name: "malformed body", body: `{"product_name":`, expectedCode: http.StatusBadRequest},
		{name: "null body", body: `null`, expectedCode: http.StatusBadRequest},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// given
			svc := new(MockProductService)
			if tc.expectCall {
				svc.On("Create", mock.Anything, json.RawMessage(tc.body)).Return(tc.created, tc.err)
			}

			// when
			rec := serve(newRouter(svc), http.MethodPost, "/api/products", tc.body)

			// then
			assert.Equal(t, tc.expectedCode, rec.Code)
			if tc.created != nil {
				assert.JSONEq(t, string(tc.created), rec.Body.String())
			}
			if !tc.expectCall {
				svc.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
				assert.JSONEq(t, `{"message":"Invalid request body"}`, rec.Body.String())
			}
			svc.AssertExpectations(t)
		})
	}
}

func Test_Update(t *testing.T) {
	testCases := []struct {
		name         string
		target       string
		productName  string
		updated      json.RawMessage
		err          error
		expectedCode int
	}{
		{name: "success", target: "/api/products/Bolt", productName: "Bolt", updated: json.RawMessage(`{"product_name":"Bolt","quantity":9}`), expectedCode: http.StatusOK},
		{name: "escaped name", target: "/api/products/Hex%20Nut", productName: "Hex Nut", updated: json.RawMessage(`{"product_name":"Hex Nut"}`), expectedCode: http.StatusOK},
		{name: "escaped slash", target: "/api/products/M8%2F20", productName: "M8/20", updated: json.RawMessage(`{"product_name":"M8/20"}`), expectedCode: http.StatusOK},
		{name: "percent in name", target: "/api/products/Promo%2010%25AB", productName: "Promo 10%AB", updated: json.RawMessage(`{"product_name":"Promo 10%AB"}`), expectedCode: http.StatusOK},
		{name: "percent and escaped slash", target: "/api/products/50%25%2F50", productName: "50%/50", updated: json.RawMessage(`{"product_name":"50%/50"}`), expectedCode: http.StatusOK},
		{name: "not found", target: "/api/products/Nut", productName: "Nut", err: fmt.Errorf("%w: Nut", service.ErrProductNotFound), expectedCode: http.StatusNotFound},
		{name: "store error", target: "/api/products/Bolt", productName: "Bolt", err: errors.New("GET products: connection refused"), expectedCode: http.StatusInternalServerError},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// given
			svc := new(MockProductService)
			body := `{"quantity":9}`
			svc.On("Update", mock.Anything, tc.productName, json.RawMessage(body)).Return(tc.updated, tc.err)

			// when
			rec := serve(newRouter(svc), http.MethodPatch, tc.target, body)

			// then
			assert.Equal(t, tc.expectedCode, rec.Code)
			if tc.updated != nil {
				assert.JSONEq(t, string(tc.updated), rec.Body.String())
			}
			svc.AssertExpectations(t)
		})
	}
}

func Test_Delete_PercentInName(t *testing.T) {
	// given
	svc := new(MockProductService)
	svc.On("Delete", mock.Anything, "Promo 10%AB").Return(nil)

	// when
	rec := serve(newRouter(svc), http.MethodDelete, "/api/products/Promo%2010%25AB", "")

	// then
	require.Equal(t, http.StatusNoContent, rec.Code)
	svc.AssertExpectations(t)
}

func Test_Delete(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		svc := new(MockProductService)
		svc.On("Delete", mock.Anything, "Bolt").Return(nil)

		rec := serve(newRouter(svc), http.MethodDelete, "/api/products/Bolt", "")

		assert.Equal(t, http.StatusNoContent, rec.Code)
		assert.Empty(t, rec.Body.String())
		svc.AssertExpectations(t)
	})

	t.Run("store error", func(t *testing.T) {
		svc := new(MockProductService)
		svc.On("Delete", mock.Anything, "Bolt").Return(storeErr)

		rec := serve(newRouter(svc), http.MethodDelete, "/api/products/Bolt", "")

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.JSONEq(t, `{"message":"permission denied for table products"}`, rec.Body.String())
	})
}
