// Package collector holds the per-transport signal readers. Each collector
// turns one source (link manager, kernel counters, probes, satellite API,
// modem, tunnel, radio) into a PartialMetrics contribution.
package collector

import (
	"context"
	"errors"
	"fmt"
	"time"

	"wanhealth/internal/classify"
	"wanhealth/internal/execx"
	"wanhealth/internal/model"
)

var (
	// ErrNoData means the source had nothing to say (tool missing, no
	// reply). The cycle continues without a contribution.
	ErrNoData = errors.New("no data")
	// ErrGated means the collector did not run because the interface is
	// not online.
	ErrGated = errors.New("gated: interface not online")
)

// Interface is what a collector sees of the interface it is reading.
type Interface struct {
	ID             string
	Class          classify.Class
	ConnectionType model.ConnectionType
	// Current is the merge of every contribution earlier in the chain.
	Current model.InterfaceRecord
}

// Online reports whether earlier collectors left the interface online.
func (i Interface) Online() bool {
	return i.Current.Status == model.StatusOnline
}

// Collector reads one signal source for one interface.
type Collector interface {
	Name() string
	Collect(ctx context.Context, iface Interface) (model.PartialMetrics, error)
}

// noData wraps err so callers can match ErrNoData while the log keeps the cause.
func noData(err error) error {
	if err == nil {
		return ErrNoData
	}
	return fmt.Errorf("%w: %w", ErrNoData, err)
}

// shareBudget gives the next of n remaining steps an equal share of what is
// left before ctx's deadline. Without a deadline the step inherits ctx.
func shareBudget(ctx context.Context, n int) (context.Context, context.CancelFunc) {
	deadline, ok := ctx.Deadline()
	if !ok || n <= 1 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, time.Until(deadline)/time.Duration(n))
}

// classifyErr maps tool-absent to ErrNoData and passes everything else through.
func classifyErr(err error) error {
	if errors.Is(err, execx.ErrToolAbsent) {
		return noData(err)
	}
	return err
}
