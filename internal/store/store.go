// Package store is the only boundary between the application and the remote
// product store. Every operation either succeeds or returns one error wrapping
// the operation's sentinel and the store's own message.
package store

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"

	"github.com/abgdnv/smartstock/internal/postgrest"
	"github.com/abgdnv/smartstock/internal/product"
	"github.com/google/uuid"
)

// ProductStore defines the operations on the remote product table.
type ProductStore interface {
	List(ctx context.Context, visibility product.Visibility) ([]product.Product, error)
	Create(ctx context.Context, fields product.Fields) (product.Product, error)
	Update(ctx context.Context, name string, fields product.Fields) (product.Product, error)
	SoftDelete(ctx context.Context, name string) error
	Restore(ctx context.Context, name string) error
	BulkUpsert(ctx context.Context, products []product.Product) error
}

// Client is the subset of postgrest.Client the store relies on.
type Client interface {
	Selector
	Insert(ctx context.Context, relation string, query url.Values, body any, prefer string) ([]byte, error)
	Update(ctx context.Context, relation string, filter url.Values, body any) ([]byte, error)
	Delete(ctx context.Context, relation string, filter url.Values) error
}

var _ ProductStore = (*RestStore)(nil)

const (
	DefaultTable       = "products"
	DefaultActiveView  = "active_products"
	DefaultConflictKey = product.ColumnName
)

// RestStore implements ProductStore over a PostgREST endpoint.
// It keeps no state between calls apart from its immutable settings.
type RestStore struct {
	client      Client
	caps        Capabilities
	table       string
	view        string
	conflictKey string
	logger      *slog.Logger
}

// Option customizes a RestStore.
type Option func(*RestStore)

// WithCapabilities sets the resolved schema capabilities.
func WithCapabilities(caps Capabilities) Option {
	return func(s *RestStore) { s.caps = caps }
}

// WithRelations overrides the base table and active view names.
func WithRelations(table, view string) Option {
	return func(s *RestStore) {
		if table != "" {
			s.table = table
		}
		if view != "" {
			s.view = view
		}
	}
}

// WithConflictKey sets the column the store merges on during BulkUpsert.
func WithConflictKey(column string) Option {
	return func(s *RestStore) {
		if column != "" {
			s.conflictKey = column
		}
	}
}

// NewRestStore creates a RestStore. Without WithCapabilities every schema
// capability is unknown and detected from error messages.
func NewRestStore(client Client, logger *slog.Logger, opts ...Option) *RestStore {
	s := &RestStore{
		client:      client,
		table:       DefaultTable,
		view:        DefaultActiveView,
		conflictKey: DefaultConflictKey,
		logger:      logger.With("component", "store"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Capabilities returns the schema capabilities the store was built with.
func (s *RestStore) Capabilities() Capabilities { return s.caps }

type listAttempt struct {
	relation string
	query    url.Values
}

// List returns the rows of the requested visibility ordered by name.
// For active rows it walks filtered table, active view, unfiltered table and
// takes the first answer; rows flagged inactive are dropped either way.
func (s *RestStore) List(ctx context.Context, visibility product.Visibility) ([]product.Product, error) {
	var attempts []listAttempt
	if visibility == product.VisibilityActive || visibility == "" {
		if s.caps.ActiveFlag != CapabilityAbsent {
			attempts = append(attempts, listAttempt{s.table, listQuery().Eq(product.ColumnActive, "true").Values()})
		}
		if s.caps.ActiveView != CapabilityAbsent {
			attempts = append(attempts, listAttempt{s.view, listQuery().Values()})
		}
	}
	attempts = append(attempts, listAttempt{s.table, listQuery().Values()})

	var lastErr error
	for _, a := range attempts {
		data, err := s.client.Select(ctx, a.relation, a.query)
		if err != nil {
			s.logger.DebugContext(ctx, "List attempt failed", "relation", a.relation, "error", err)
			lastErr = err
			continue
		}
		rows, problems, err := product.DecodeRows(data)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrFetch, err)
		}
		s.logProblems(ctx, a.relation, problems)
		return filterVisible(rows, visibility), nil
	}
	return nil, fmt.Errorf("%w: %w", ErrFetch, lastErr)
}

// logProblems reports columns that were read as zero.
func (s *RestStore) logProblems(ctx context.Context, relation string, problems []product.RowProblem) {
	for _, p := range problems {
		s.logger.WarnContext(ctx, "Unreadable column, using zero",
			"relation", relation, "row", p.Row, "name", p.Name, "column", p.Column, "error", p.Err)
	}
}

func listQuery() postgrest.Query {
	return postgrest.NewQuery().Select("*").Order(product.ColumnName, false)
}

func filterVisible(rows []product.Product, visibility product.Visibility) []product.Product {
	if visibility == product.VisibilityAll {
		return rows
	}
	out := make([]product.Product, 0, len(rows))
	for _, p := range rows {
		if visibility.Includes(p.IsActive) {
			out = append(out, p)
		}
	}
	return out
}

// Create inserts one product. A missing identifier is generated, the quantity
// is raised to at least one and a missing active flag defaults to true.
func (s *RestStore) Create(ctx context.Context, fields product.Fields) (product.Product, error) {
	fields = fields.ClampQuantity(true)
	if fields.ID == "" {
		fields.ID = uuid.NewString()
	}
	if fields.IsActive == nil {
		fields.IsActive = product.Bool(true)
	}

	data, err := s.writeWithFallback(ctx, "create", fields, func(payload map[string]any) ([]byte, error) {
		return s.client.Insert(ctx, s.table, nil, payload, postgrest.PreferRepresentation)
	})
	if err != nil {
		return product.Product{}, fmt.Errorf("%w: %w", ErrCreate, err)
	}
	rows, problems, err := product.DecodeRows(data)
	if err != nil {
		return product.Product{}, fmt.Errorf("%w: %w", ErrCreate, err)
	}
	s.logProblems(ctx, s.table, problems)
	if len(rows) == 0 {
		return product.Product{}, fmt.Errorf("%w: store returned no row", ErrCreate)
	}
	s.logger.InfoContext(ctx, "Product created", "id", rows[0].ID, "name", rows[0].Name)
	return rows[0], nil
}

// Update patches the product named name. A present quantity below one is raised to one.
func (s *RestStore) Update(ctx context.Context, name string, fields product.Fields) (product.Product, error) {
	fields = fields.ClampQuantity(false)

	data, err := s.writeWithFallback(ctx, "update", fields, func(payload map[string]any) ([]byte, error) {
		return s.client.Update(ctx, s.table, postgrest.Eq(product.ColumnName, name), payload)
	})
	if err != nil {
		return product.Product{}, fmt.Errorf("%w: %w", ErrUpdate, err)
	}
	rows, problems, err := product.DecodeRows(data)
	if err != nil {
		return product.Product{}, fmt.Errorf("%w: %w", ErrUpdate, err)
	}
	s.logProblems(ctx, s.table, problems)
	if len(rows) == 0 {
		return product.Product{}, fmt.Errorf("%w: %w: %s", ErrUpdate, ErrProductNotFound, name)
	}
	s.logger.InfoContext(ctx, "Product updated", "name", name)
	return rows[0], nil
}

// writeWithFallback sends the payload once and, when the store rejects it for
// an unknown column, once more without the legacy cost columns and, if the
// message names it, without the active flag.
func (s *RestStore) writeWithFallback(ctx context.Context, op string, fields product.Fields, send func(map[string]any) ([]byte, error)) ([]byte, error) {
	payload := fields.Payload()
	if s.caps.ActiveFlag == CapabilityAbsent {
		delete(payload, product.ColumnActive)
	}
	data, err := send(payload)
	if err == nil || !postgrest.IsSchemaMismatch(err) {
		return data, err
	}

	delete(payload, product.ColumnPrice)
	delete(payload, product.ColumnUnitPrice)
	if postgrest.MentionsColumn(err, product.ColumnActive) {
		delete(payload, product.ColumnActive)
	}
	s.logger.WarnContext(ctx, "Schema mismatch, retrying with narrowed payload", "operation", op, "error", err)
	return send(payload)
}

// SoftDelete marks the product inactive. When the store has no active flag the
// row is deleted instead.
func (s *RestStore) SoftDelete(ctx context.Context, name string) error {
	if s.caps.ActiveFlag != CapabilityAbsent {
		_, err := s.client.Update(ctx, s.table, postgrest.Eq(product.ColumnName, name), activePatch(false))
		if err == nil {
			s.logger.InfoContext(ctx, "Product soft deleted", "name", name)
			return nil
		}
		if !postgrest.MentionsColumn(err, product.ColumnActive) && !postgrest.IsSchemaMismatch(err) {
			return fmt.Errorf("%w: %w", ErrDelete, err)
		}
		s.logger.WarnContext(ctx, "Active flag missing, falling back to hard delete", "name", name, "error", err)
	}
	if err := s.client.Delete(ctx, s.table, postgrest.Eq(product.ColumnName, name)); err != nil {
		return fmt.Errorf("%w (hard delete attempted): %w", ErrDelete, err)
	}
	s.logger.InfoContext(ctx, "Product hard deleted", "name", name)
	return nil
}

// Restore marks the product active again.
func (s *RestStore) Restore(ctx context.Context, name string) error {
	if _, err := s.client.Update(ctx, s.table, postgrest.Eq(product.ColumnName, name), activePatch(true)); err != nil {
		return fmt.Errorf("%w: %w", ErrRestore, err)
	}
	s.logger.InfoContext(ctx, "Product restored", "name", name)
	return nil
}

// BulkUpsert writes all products in one request, merging rows that collide on the conflict key.
func (s *RestStore) BulkUpsert(ctx context.Context, products []product.Product) error {
	if len(products) == 0 {
		return nil
	}
	rows := make([]map[string]any, 0, len(products))
	for _, p := range products {
		row := p.Row()
		if s.caps.ActiveFlag == CapabilityAbsent {
			delete(row, product.ColumnActive)
		}
		rows = append(rows, row)
	}
	q := postgrest.NewQuery().OnConflict(s.conflictKey).Values()
	if _, err := s.client.Insert(ctx, s.table, q, rows, postgrest.PreferMergeMinimal); err != nil {
		return fmt.Errorf("%w: %w", ErrBulkUpload, err)
	}
	s.logger.InfoContext(ctx, "Products bulk upserted", "count", len(rows))
	return nil
}

func activePatch(active bool) map[string]any {
	return map[string]any{product.ColumnActive: active}
}
