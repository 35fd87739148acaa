// Package inventory holds the view and form state of the inventory screen and
// is the only caller of the product store.
package inventory

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"

	"github.com/abgdnv/smartstock/internal/importer"
	"github.com/abgdnv/smartstock/internal/product"
	"github.com/abgdnv/smartstock/internal/store"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"
)

var (
	ErrInvalidDraft   = errors.New("invalid product")
	ErrUnknownProduct = errors.New("no such product in the current list")
	ErrNothingStaged  = errors.New("no delete is awaiting confirmation")
)

// Controller owns the loaded list, the visibility mode, the search text, the
// loading flag, the form, the staged delete and the activity log.
// Its mutex is never held while the store is called.
type Controller struct {
	store    store.ProductStore
	logger   *slog.Logger
	validate *validator.Validate
	refresh  singleflight.Group
	activity *ActivityLog
	slot     *slot

	mu            sync.Mutex
	products      []product.Product
	visibility    product.Visibility
	search        string
	loading       bool
	form          FormState
	pendingDelete string
	started       uint64
	applied       uint64
}

// New creates a controller in active visibility with an empty list.
func New(st store.ProductStore, logger *slog.Logger) *Controller {
	return &Controller{
		store:      st,
		logger:     logger.With("component", "inventory"),
		validate:   newValidator(),
		activity:   NewActivityLog(DefaultActivityLimit),
		slot:       newSlot(),
		visibility: product.VisibilityActive,
	}
}

// Interactions delivers pending prompts. At most one is ever buffered.
func (c *Controller) Interactions() <-chan Interaction {
	return c.slot.ch
}

func (c *Controller) alert(format string, args ...any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.slot.post(Interaction{Kind: InteractionAlert, Message: fmt.Sprintf(format, args...)})
}

// Refresh reloads the list for the current visibility. On failure the previous
// list is kept and an alert is posted. quiet leaves the loading flag alone.
// Concurrent refreshes of the same visibility share one store call, and a
// result never replaces the list loaded by a later refresh.
func (c *Controller) Refresh(ctx context.Context, quiet bool) error {
	c.mu.Lock()
	visibility := c.visibility
	c.started++
	seq := c.started
	if !quiet {
		c.loading = true
	}
	c.mu.Unlock()

	res, err, _ := c.refresh.Do(string(visibility), func() (any, error) {
		return c.store.List(ctx, visibility)
	})

	c.mu.Lock()
	if !quiet {
		c.loading = false
	}
	if err == nil && c.visibility == visibility && seq > c.applied {
		c.products = res.([]product.Product)
		c.applied = seq
	}
	c.mu.Unlock()

	if err != nil {
		c.logger.ErrorContext(ctx, "Refresh failed", "visibility", visibility, "error", err)
		c.alert("Error fetching inventory: %s", err)
		return err
	}
	return nil
}

// reload refreshes after a write. It never joins a list call that started before the write.
func (c *Controller) reload(ctx context.Context) {
	c.refresh.Forget(string(c.Visibility()))
	_ = c.Refresh(ctx, true)
}

// Loading reports whether a non-quiet refresh is in flight.
func (c *Controller) Loading() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loading
}

// Products returns the loaded list.
func (c *Controller) Products() []product.Product {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.products)
}

// Visibility returns the current visibility mode.
func (c *Controller) Visibility() product.Visibility {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.visibility
}

// SetVisibility switches the mode and refreshes quietly.
func (c *Controller) SetVisibility(ctx context.Context, v product.Visibility) error {
	c.mu.Lock()
	c.visibility = v
	c.mu.Unlock()
	return c.Refresh(ctx, true)
}

// Search sets the search text and returns the matching loaded products.
func (c *Controller) Search(query string) []product.Product {
	c.mu.Lock()
	c.search = query
	c.mu.Unlock()
	return c.Visible()
}

// SearchText returns the current search text.
func (c *Controller) SearchText() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.search
}

// Visible filters the loaded list by a case-insensitive substring match on names.
func (c *Controller) Visible() []product.Product {
	c.mu.Lock()
	defer c.mu.Unlock()
	needle := strings.ToLower(c.search)
	out := make([]product.Product, 0, len(c.products))
	for _, p := range c.products {
		if strings.Contains(strings.ToLower(p.Name), needle) {
			out = append(out, p)
		}
	}
	return out
}

// Form returns the form state.
func (c *Controller) Form() FormState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.form
}

// OpenCreate opens an empty form.
func (c *Controller) OpenCreate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.form = FormState{Open: true, Draft: Draft{Quantity: product.Int64(product.MinQuantity)}}
}

// OpenEdit opens the form on the loaded product named name.
func (c *Controller) OpenEdit(name string) (Draft, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.findLocked(name)
	if !ok {
		return Draft{}, fmt.Errorf("%w: %s", ErrUnknownProduct, name)
	}
	c.form = FormState{Open: true, Editing: p.Name, Draft: DraftFrom(p)}
	return c.form.Draft, nil
}

// CloseForm discards the form.
func (c *Controller) CloseForm() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.form = FormState{}
}

// Save validates draft and sends it to the store, as an update when the form
// is editing a product and as a create otherwise. On success the form closes;
// on failure it stays open with draft in it.
func (c *Controller) Save(ctx context.Context, draft Draft) error {
	draft.Name = strings.TrimSpace(draft.Name)

	c.mu.Lock()
	c.form.Open = true
	c.form.Draft = draft
	editing := c.form.Editing
	c.mu.Unlock()

	if err := c.validateDraft(draft); err != nil {
		c.alert("Error saving product: %s", err)
		return err
	}

	fields := product.Fields{Name: draft.Name, Quantity: draft.Quantity, Cost: product.Decimal(draft.Cost)}
	var err error
	if editing != "" {
		_, err = c.store.Update(ctx, editing, fields)
	} else {
		fields.ID = uuid.NewString()
		_, err = c.store.Create(ctx, fields)
	}
	if err != nil {
		c.logger.ErrorContext(ctx, "Save failed", "editing", editing, "error", err)
		c.alert("Error saving product: %s", err)
		return err
	}

	if editing != "" {
		c.activity.Add(ActivityUpdate, "Manually updated "+editing)
	} else {
		c.activity.Add(ActivityCreate, "Manually added "+draft.Name)
	}
	c.CloseForm()
	c.reload(ctx)
	return nil
}

// RequestDelete stages name and asks for confirmation.
func (c *Controller) RequestDelete(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pendingDelete = name
	c.slot.post(Interaction{Kind: InteractionConfirm, Message: fmt.Sprintf("Delete %s from inventory?", name)})
}

// PendingDelete returns the staged name, empty when nothing is staged.
func (c *Controller) PendingDelete() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pendingDelete
}

// CancelDelete drops the staged name without touching the store.
func (c *Controller) CancelDelete() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pendingDelete = ""
}

// ConfirmDelete soft deletes the staged product.
func (c *Controller) ConfirmDelete(ctx context.Context) error {
	c.mu.Lock()
	name := c.pendingDelete
	c.pendingDelete = ""
	c.mu.Unlock()
	if name == "" {
		return ErrNothingStaged
	}

	if err := c.store.SoftDelete(ctx, name); err != nil {
		c.logger.ErrorContext(ctx, "Delete failed", "name", name, "error", err)
		c.alert("Error deleting product: %s", err)
		return err
	}
	c.activity.Add(ActivityDelete, "Deleted product: "+name)
	c.reload(ctx)
	return nil
}

// Restore reactivates a soft-deleted product.
func (c *Controller) Restore(ctx context.Context, name string) error {
	if err := c.store.Restore(ctx, name); err != nil {
		c.logger.ErrorContext(ctx, "Restore failed", "name", name, "error", err)
		c.alert("Error restoring product: %s", err)
		return err
	}
	c.activity.Add(ActivityUpdate, "Restored product: "+name)
	c.reload(ctx)
	return nil
}

// Check looks name up in the loaded list and records the stock level.
func (c *Controller) Check(name string) (product.Product, error) {
	c.mu.Lock()
	p, ok := c.findLocked(name)
	c.mu.Unlock()
	if !ok {
		return product.Product{}, fmt.Errorf("%w: %s", ErrUnknownProduct, name)
	}
	c.activity.Add(ActivityCheck, fmt.Sprintf("Checked %s: %d in stock", p.Name, p.Quantity))
	return p, nil
}

// Import commits a staged batch through the store's bulk upsert.
func (c *Controller) Import(ctx context.Context, batch *importer.Batch) error {
	count := batch.Len()
	if err := batch.Commit(ctx, c.store); err != nil {
		var invalid *importer.InvalidRowsError
		if errors.As(err, &invalid) {
			c.alert("%s", invalid.Error())
			return err
		}
		c.logger.ErrorContext(ctx, "Import failed", "rows", count, "error", err)
		c.alert("Error saving uploaded rows: %s", err)
		return err
	}
	c.activity.Add(ActivityCreate, fmt.Sprintf("Bulk uploaded %d products", count))
	c.reload(ctx)
	return nil
}

// Stats summarizes the loaded list.
func (c *Controller) Stats() Stats {
	return ComputeStats(c.Products())
}

// Activity returns the activity log, newest first.
func (c *Controller) Activity() []Activity {
	return c.activity.Entries()
}

// findLocked matches name exactly first and then ignoring case.
func (c *Controller) findLocked(name string) (product.Product, bool) {
	for _, p := range c.products {
		if p.Name == name {
			return p, true
		}
	}
	for _, p := range c.products {
		if strings.EqualFold(p.Name, name) {
			return p, true
		}
	}
	return product.Product{}, false
}
