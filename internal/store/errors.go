package store

import "errors"

var (
	ErrFetch           = errors.New("failed to fetch inventory")
	ErrCreate          = errors.New("failed to create product")
	ErrUpdate          = errors.New("failed to update product")
	ErrDelete          = errors.New("failed to delete product")
	ErrRestore         = errors.New("failed to restore product")
	ErrBulkUpload      = errors.New("failed to bulk upsert products")
	ErrProductNotFound = errors.New("product not found")
)
