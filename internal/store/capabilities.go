package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/abgdnv/smartstock/internal/postgrest"
	"github.com/abgdnv/smartstock/internal/product"
	"github.com/abgdnv/smartstock/pkg/config"
)

// Capability records whether an optional part of the store schema exists.
type Capability int

const (
	// CapabilityUnknown leaves the decision to the error-message fallbacks.
	CapabilityUnknown Capability = iota
	CapabilityPresent
	CapabilityAbsent
)

func (c Capability) String() string {
	switch c {
	case CapabilityPresent:
		return "present"
	case CapabilityAbsent:
		return "absent"
	default:
		return "unknown"
	}
}

// ParseCapability maps a configured value onto a Capability. "auto" and "" are unknown.
func ParseCapability(s string) (Capability, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", config.CapabilityAuto:
		return CapabilityUnknown, nil
	case config.CapabilityPresent:
		return CapabilityPresent, nil
	case config.CapabilityAbsent:
		return CapabilityAbsent, nil
	default:
		return CapabilityUnknown, fmt.Errorf("unknown schema capability %q", s)
	}
}

// Capabilities describe the optional schema features of the store.
// They are settled once at startup and never change afterwards.
type Capabilities struct {
	ActiveFlag Capability
	ActiveView Capability
}

// CapabilitiesFromConfig converts the declared schema settings.
func CapabilitiesFromConfig(cfg config.SchemaConfig) (Capabilities, error) {
	flag, err := ParseCapability(cfg.ActiveFlag)
	if err != nil {
		return Capabilities{}, fmt.Errorf("activeflag: %w", err)
	}
	view, err := ParseCapability(cfg.ActiveView)
	if err != nil {
		return Capabilities{}, fmt.Errorf("activeview: %w", err)
	}
	return Capabilities{ActiveFlag: flag, ActiveView: view}, nil
}

// Selector is the read side of the store client.
type Selector interface {
	Select(ctx context.Context, relation string, query url.Values) ([]byte, error)
}

// Probe resolves the unknown members of declared with zero-row metadata queries
// against table and view. Declared members are kept as they are. A probe that
// fails for an unrelated reason leaves its member unknown.
func Probe(ctx context.Context, client Selector, declared Capabilities, table, view string, logger *slog.Logger) Capabilities {
	caps := declared
	if caps.ActiveFlag == CapabilityUnknown {
		q := postgrest.NewQuery().Select(product.ColumnActive).Limit(0).Values()
		_, err := client.Select(ctx, table, q)
		switch {
		case err == nil:
			caps.ActiveFlag = CapabilityPresent
		case postgrest.IsSchemaMismatch(err) || postgrest.MentionsColumn(err, product.ColumnActive):
			caps.ActiveFlag = CapabilityAbsent
		default:
			logger.WarnContext(ctx, "Active flag probe failed, falling back to runtime detection", "error", err)
		}
	}
	if caps.ActiveView == CapabilityUnknown {
		q := postgrest.NewQuery().Select(product.ColumnID).Limit(0).Values()
		_, err := client.Select(ctx, view, q)
		switch {
		case err == nil:
			caps.ActiveView = CapabilityPresent
		case missingRelation(err):
			caps.ActiveView = CapabilityAbsent
		default:
			logger.WarnContext(ctx, "Active view probe failed, falling back to runtime detection", "error", err)
		}
	}
	logger.InfoContext(ctx, "Store schema capabilities resolved",
		"active_flag", caps.ActiveFlag.String(),
		"active_view", caps.ActiveView.String(),
	)
	return caps
}

// missingRelation reports a 404 or an undefined-table answer.
func missingRelation(err error) bool {
	var pe *postgrest.Error
	if !errors.As(err, &pe) {
		return false
	}
	return pe.StatusCode == http.StatusNotFound || pe.Code == "PGRST205" || pe.Code == "42P01"
}
