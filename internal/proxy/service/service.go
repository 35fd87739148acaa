// Package service forwards proxy requests to the product store unchanged.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/abgdnv/smartstock/internal/postgrest"
	"github.com/abgdnv/smartstock/internal/product"
	"github.com/abgdnv/smartstock/internal/store"
)

// ErrProductNotFound is returned when an update matched no row.
var ErrProductNotFound = errors.New("product not found")

// ProductService re-exposes the store operations on raw JSON documents.
type ProductService interface {
	List(ctx context.Context) (json.RawMessage, error)
	Create(ctx context.Context, body json.RawMessage) (json.RawMessage, error)
	Update(ctx context.Context, name string, body json.RawMessage) (json.RawMessage, error)
	Delete(ctx context.Context, name string) error
}

// ErrorRecorder counts failed store calls.
type ErrorRecorder interface {
	StoreError(operation string)
}

// PassThrough implements ProductService with one store call per operation.
type PassThrough struct {
	client   store.Client
	relation string
	recorder ErrorRecorder
	logger   *slog.Logger
}

var _ ProductService = (*PassThrough)(nil)

// NewPassThrough creates a service over relation. recorder may be nil.
func NewPassThrough(client store.Client, relation string, recorder ErrorRecorder, logger *slog.Logger) *PassThrough {
	return &PassThrough{
		client:   client,
		relation: relation,
		recorder: recorder,
		logger:   logger.With("component", "proxy-service"),
	}
}

// List returns every row of the relation ordered by name.
func (s *PassThrough) List(ctx context.Context) (json.RawMessage, error) {
	q := postgrest.NewQuery().Select("*").Order(product.ColumnName, false).Values()
	data, err := s.client.Select(ctx, s.relation, q)
	if err != nil {
		return nil, s.fail(ctx, "list", err)
	}
	return data, nil
}

// Create inserts body as one row and returns the stored row.
func (s *PassThrough) Create(ctx context.Context, body json.RawMessage) (json.RawMessage, error) {
	data, err := s.client.Insert(ctx, s.relation, nil, body, postgrest.PreferRepresentation)
	if err != nil {
		return nil, s.fail(ctx, "create", err)
	}
	row, err := first(data)
	if err != nil {
		return nil, s.fail(ctx, "create", err)
	}
	if row == nil {
		return nil, s.fail(ctx, "create", errors.New("store returned no row"))
	}
	return row, nil
}

// Update patches the rows named name with body and returns the first updated row.
func (s *PassThrough) Update(ctx context.Context, name string, body json.RawMessage) (json.RawMessage, error) {
	data, err := s.client.Update(ctx, s.relation, postgrest.Eq(product.ColumnName, name), body)
	if err != nil {
		return nil, s.fail(ctx, "update", err)
	}
	row, err := first(data)
	if err != nil {
		return nil, s.fail(ctx, "update", err)
	}
	if row == nil {
		return nil, fmt.Errorf("%w: %s", ErrProductNotFound, name)
	}
	return row, nil
}

// Delete removes the rows named name.
func (s *PassThrough) Delete(ctx context.Context, name string) error {
	if err := s.client.Delete(ctx, s.relation, postgrest.Eq(product.ColumnName, name)); err != nil {
		return s.fail(ctx, "delete", err)
	}
	return nil
}

func (s *PassThrough) fail(ctx context.Context, operation string, err error) error {
	if s.recorder != nil {
		s.recorder.StoreError(operation)
	}
	s.logger.ErrorContext(ctx, "Store call failed", "operation", operation, "error", err)
	return err
}

// first returns the first element of a JSON array, nil when the array is empty.
func first(data []byte) (json.RawMessage, error) {
	var rows []json.RawMessage
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, fmt.Errorf("decode store response: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0], nil
}
