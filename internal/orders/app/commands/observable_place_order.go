package commands

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/shopworks/storefront/internal/orders/metrics"
	"github.com/shopworks/storefront/internal/telemetry"
)

// ObservableCommandHandler decorates order placement with tracing,
// logging, and metrics.
type ObservableCommandHandler struct {
	handler CommandHandler
	logger  *slog.Logger
	metrics *metrics.Metrics
}

func NewObservableCommandHandler(handler CommandHandler, logger *slog.Logger, metrics *metrics.Metrics) *ObservableCommandHandler {
	return &ObservableCommandHandler{
		handler: handler,
		logger:  logger,
		metrics: metrics,
	}
}

func (o *ObservableCommandHandler) Handle(ctx context.Context, cmd PlaceOrderCommand) (*PlaceOrderResult, error) {
	ctx, span := telemetry.StartSpan(ctx, "PlaceOrderCommand.Handle")
	defer span.End()

	start := time.Now()
	outcome := "error"
	defer func() {
		o.metrics.RecordPlacementDuration(ctx, time.Since(start).Seconds())
		o.metrics.RecordOrderPlaced(ctx, outcome)
	}()

	o.logger.InfoContext(ctx, "placing order",
		"buyer_id", cmd.BuyerID,
		"item_count", len(cmd.ProductIDs),
		"transaction_id", cmd.Payment.TransactionID,
	)

	result, err := o.handler.Handle(ctx, cmd)
	if err != nil {
		telemetry.RecordSpanError(span, err)
		o.logger.ErrorContext(ctx, "failed to place order",
			"error", err,
			"buyer_id", cmd.BuyerID,
			"transaction_id", cmd.Payment.TransactionID,
		)
		return nil, err
	}

	outcome = "placed"
	if result.AlreadyPlaced {
		outcome = "deduplicated"
	}

	telemetry.AddSpanAttributes(span,
		attribute.String("order.id", result.Order.ID),
		attribute.Int64("order.total_cents", result.Order.TotalCents),
		attribute.Bool("order.already_placed", result.AlreadyPlaced),
	)

	o.logger.InfoContext(ctx, "order placed",
		"order_id", result.Order.ID,
		"buyer_id", result.Order.BuyerID,
		"total_cents", result.Order.TotalCents,
		"already_placed", result.AlreadyPlaced,
	)

	telemetry.SetSpanSuccess(span)

	return result, nil
}
