// Package rest provides the HTTP handlers of the proxy.
package rest

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/abgdnv/smartstock/internal/proxy/service"
	"github.com/abgdnv/smartstock/pkg/web"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// maxBodyBytes bounds a request body.
const maxBodyBytes = 1 << 20

type Handler struct {
	service service.ProductService
	logger  *slog.Logger
}

// NewHandler creates a new Handler forwarding to service.
func NewHandler(service service.ProductService, logger *slog.Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger.With("component", "rest"),
	}
}

// RegisterRoutes registers the proxy routes.
func (h *Handler) RegisterRoutes(r *chi.Mux) {
	r.Get("/api/health", h.HealthCheck)

	r.Route("/api/products", func(r chi.Router) {
		r.Get("/", h.List)
		r.Post("/", h.Create)

		r.Route("/{name}", func(r chi.Router) {
			r.Patch("/", h.Update)
			r.Delete("/", h.Delete)
		})
	})
}

// HealthCheck reports liveness.
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	web.RespondJSON(w, h.loggerWithReqID(r), http.StatusOK, map[string]bool{"ok": true})
}

// List returns every product ordered by name.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	list, err := h.service.List(r.Context())
	if err != nil {
		h.respondStoreError(w, mLogger, err, "Failed to fetch products")
		return
	}
	web.RespondRaw(w, http.StatusOK, list)
}

// Create inserts the product in the request body.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	body, ok := h.decodeObject(w, r, mLogger)
	if !ok {
		return
	}
	created, err := h.service.Create(r.Context(), body)
	if err != nil {
		h.respondStoreError(w, mLogger, err, "Failed to create product")
		return
	}
	mLogger.InfoContext(r.Context(), "Product created")
	web.RespondRaw(w, http.StatusCreated, created)
}

// Update patches the named product with the request body.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	name, ok := web.ParseName(w, r, mLogger, "name")
	if !ok {
		return
	}
	body, ok := h.decodeObject(w, r, mLogger)
	if !ok {
		return
	}
	updated, err := h.service.Update(r.Context(), name, body)
	if err != nil {
		if errors.Is(err, service.ErrProductNotFound) {
			mLogger.WarnContext(r.Context(), "Product not found", "name", name)
			web.RespondError(w, mLogger, http.StatusNotFound, fmt.Sprintf("Product %s not found", name))
			return
		}
		h.respondStoreError(w, mLogger, err, "Failed to update product")
		return
	}
	mLogger.InfoContext(r.Context(), "Product updated", "name", name)
	web.RespondRaw(w, http.StatusOK, updated)
}

// Delete removes the named product.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	name, ok := web.ParseName(w, r, mLogger, "name")
	if !ok {
		return
	}
	if err := h.service.Delete(r.Context(), name); err != nil {
		h.respondStoreError(w, mLogger, err, "Failed to delete product")
		return
	}
	mLogger.InfoContext(r.Context(), "Product deleted", "name", name)
	web.RespondJSON(w, mLogger, http.StatusNoContent, nil)
}

// decodeObject reads a body that must be a single JSON object.
func (h *Handler) decodeObject(w http.ResponseWriter, r *http.Request, logger *slog.Logger) (json.RawMessage, bool) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		logger.WarnContext(r.Context(), "Error reading request body", "error", err)
		web.RespondError(w, logger, http.StatusBadRequest, "Invalid request body")
		return nil, false
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil || fields == nil {
		logger.WarnContext(r.Context(), "Request body is not a JSON object", "error", err)
		web.RespondError(w, logger, http.StatusBadRequest, "Invalid request body")
		return nil, false
	}
	return data, true
}

// respondStoreError answers 500 with the store's message, or fallback when it has none.
func (h *Handler) respondStoreError(w http.ResponseWriter, logger *slog.Logger, err error, fallback string) {
	logger.Error("Store call failed", "error", err)
	message := err.Error()
	if message == "" {
		message = fallback
	}
	web.RespondError(w, logger, http.StatusInternalServerError, message)
}

func (h *Handler) loggerWithReqID(r *http.Request) *slog.Logger {
	return h.logger.With("request_id", middleware.GetReqID(r.Context()))
}
