package exchange

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"statarb-go/internal/execution"
	"statarb-go/internal/metrics"
)

// Submitter is the dry-run order path. It assigns IDs, logs the order as the
// live venue client would, and acknowledges without touching the venue.
type Submitter struct {
	log zerolog.Logger
}

// NewSubmitter builds the simulated order submitter.
func NewSubmitter(log zerolog.Logger) *Submitter {
	return &Submitter{log: log}
}

// Submit acknowledges the request with a fresh order ID.
func (s *Submitter) Submit(ctx context.Context, req execution.Request) (execution.Confirmation, error) {
	if err := ctx.Err(); err != nil {
		return execution.Confirmation{}, &execution.OrderError{Market: req.Market, Err: err}
	}

	clientID := req.ClientID
	if clientID == "" {
		clientID = uuid.NewString()
	}
	conf := execution.Confirmation{
		OrderID: uuid.NewString(),
		Market:  req.Market,
		Status:  "FILLED",
	}

	metrics.OrdersTotal.WithLabelValues(req.Market, string(req.Side)).Inc()
	s.log.Info().
		Str("market", req.Market).
		Str("side", string(req.Side)).
		Float64("size", req.Size).
		Float64("price", req.Price).
		Bool("reduce_only", req.ReduceOnly).
		Str("client_id", clientID).
		Str("order_id", conf.OrderID).
		Msg("simulated order accepted")
	return conf, nil
}
