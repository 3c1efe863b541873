package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/shopworks/storefront/internal/auth"
	cartdomain "github.com/shopworks/storefront/internal/cart/domain"
	"github.com/shopworks/storefront/internal/checkout/domain"
	"github.com/shopworks/storefront/internal/checkout/metrics"
	"github.com/shopworks/storefront/internal/checkout/ports"
	orderscommands "github.com/shopworks/storefront/internal/orders/app/commands"
	ordersdomain "github.com/shopworks/storefront/internal/orders/domain"
	"github.com/shopworks/storefront/internal/payment"
	"github.com/shopworks/storefront/internal/telemetry"
)

var (
	// ErrEmptyCart blocks checkout entry and submission for carts with
	// nothing to buy.
	ErrEmptyCart = errors.New("cart is empty")

	// ErrNoClientToken rejects submissions for sessions that never got a
	// gateway token. The client must retry the token fetch first.
	ErrNoClientToken = errors.New("no client token, retry the token fetch first")

	// ErrMissingNonce rejects submissions without a payment nonce.
	ErrMissingNonce = errors.New("payment nonce is required")

	// ErrAttemptSuperseded marks a late result for an attempt the
	// session has moved past; its effects on the session are discarded.
	ErrAttemptSuperseded = errors.New("checkout attempt superseded")
)

// Carts is the slice of the cart service checkout needs.
type Carts interface {
	Get(ctx context.Context, cartKey string) (*cartdomain.Cart, error)
	Clear(ctx context.Context, cartKey string) error
}

// Orders is the slice of the order service checkout needs.
type Orders interface {
	PlaceOrder(ctx context.Context, cmd orderscommands.PlaceOrderCommand) (*orderscommands.PlaceOrderResult, error)
}

// Service drives a checkout session through token fetch, payment
// capture, and order creation. The cart is cleared exactly once, only
// after the order write commits; every failure leaves it intact.
type Service struct {
	sessions ports.SessionStore
	carts    Carts
	gateway  payment.Gateway
	orders   Orders
	logger   *slog.Logger
	metrics  *metrics.Metrics
}

func NewService(
	sessions ports.SessionStore,
	carts Carts,
	gateway payment.Gateway,
	orders Orders,
	logger *slog.Logger,
	metrics *metrics.Metrics,
) *Service {
	return &Service{
		sessions: sessions,
		carts:    carts,
		gateway:  gateway,
		orders:   orders,
		logger:   logger,
		metrics:  metrics,
	}
}

// Begin opens a checkout session for the actor's cart and fetches the
// gateway client token. Guests and empty carts never get a session;
// handlers turn those errors into the login and cart redirects.
func (s *Service) Begin(ctx context.Context, actor auth.Actor) (*domain.Session, error) {
	ctx, span := telemetry.StartSpan(ctx, "Checkout.Begin")
	defer span.End()

	if !actor.Authenticated() {
		return nil, auth.ErrUnauthenticated
	}

	cart, err := s.carts.Get(ctx, actor.CartKey())
	if err != nil {
		telemetry.RecordSpanError(span, err)
		return nil, err
	}
	if cart.Empty() {
		return nil, ErrEmptyCart
	}

	session := domain.NewSession(actor.ID)
	if err := session.TransitionTo(domain.StateTokenLoading); err != nil {
		return nil, err
	}

	s.fetchToken(ctx, session)

	if err := s.sessions.Save(ctx, session); err != nil {
		telemetry.RecordSpanError(span, err)
		return nil, fmt.Errorf("save checkout session: %w", err)
	}

	telemetry.AddSpanAttributes(span,
		attribute.String("checkout.session_id", session.ID),
		attribute.String("checkout.state", string(session.State)),
	)

	return session, nil
}

// RetryToken re-enters token loading for a failed session.
func (s *Service) RetryToken(ctx context.Context, actor auth.Actor, sessionID string) (*domain.Session, error) {
	session, err := s.ownedSession(ctx, actor, sessionID)
	if err != nil {
		return nil, err
	}

	if err := session.TransitionTo(domain.StateTokenLoading); err != nil {
		return nil, err
	}
	session.FailureReason = ""

	s.fetchToken(ctx, session)

	if err := s.sessions.Save(ctx, session); err != nil {
		return nil, fmt.Errorf("save checkout session: %w", err)
	}

	return session, nil
}

// Get returns the actor's session for state polling.
func (s *Service) Get(ctx context.Context, actor auth.Actor, sessionID string) (*domain.Session, error) {
	return s.ownedSession(ctx, actor, sessionID)
}

// Submit runs one payment attempt: capture the nonce, persist the order,
// clear the cart. At most one submission is in flight per session; the
// rest bounce off the submit lock. Every attempt needs a nonce that was
// not used by a previous attempt.
func (s *Service) Submit(ctx context.Context, actor auth.Actor, sessionID, nonce string) (*domain.Session, error) {
	ctx, span := telemetry.StartSpan(ctx, "Checkout.Submit")
	defer span.End()

	start := time.Now()
	outcome := "error"
	defer func() {
		s.metrics.RecordSubmitDuration(ctx, time.Since(start).Seconds())
		s.metrics.RecordSubmission(ctx, outcome)
	}()

	if !actor.Authenticated() {
		return nil, auth.ErrUnauthenticated
	}
	if strings.TrimSpace(nonce) == "" {
		return nil, ErrMissingNonce
	}

	if _, err := s.ownedSession(ctx, actor, sessionID); err != nil {
		return nil, err
	}

	if err := s.sessions.AcquireSubmitLock(ctx, sessionID); err != nil {
		if errors.Is(err, ports.ErrSubmissionInFlight) {
			outcome = "duplicate_ignored"
		}
		return nil, err
	}
	defer func() {
		// Release even when the request was abandoned mid-attempt.
		releaseCtx := context.WithoutCancel(ctx)
		if err := s.sessions.ReleaseSubmitLock(releaseCtx, sessionID); err != nil {
			s.logger.WarnContext(releaseCtx, "failed to release submit lock", "session_id", sessionID, "error", err)
		}
	}()

	// Reload under the lock so this attempt starts from settled state.
	session, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	if session.State == domain.StateSucceeded {
		outcome = "already_succeeded"
		return session, nil
	}
	if session.ClientToken == "" {
		return nil, ErrNoClientToken
	}
	if nonce == session.LastNonce {
		return nil, payment.ErrNonceAlreadyUsed
	}

	if session.State == domain.StateFailed {
		if err := session.TransitionTo(domain.StateReady); err != nil {
			return nil, err
		}
	}

	cart, err := s.carts.Get(ctx, actor.CartKey())
	if err != nil {
		return nil, err
	}
	if cart.Empty() || cart.TotalCents() <= 0 {
		return nil, ErrEmptyCart
	}

	session.Attempt++
	attempt := session.Attempt
	session.LastNonce = nonce
	if err := session.TransitionTo(domain.StateSubmitting); err != nil {
		return nil, err
	}
	if err := s.sessions.Save(ctx, session); err != nil {
		return nil, fmt.Errorf("save checkout session: %w", err)
	}

	telemetry.AddSpanAttributes(span,
		attribute.String("checkout.session_id", session.ID),
		attribute.Int("checkout.attempt", attempt),
		attribute.Int64("checkout.total_cents", cart.TotalCents()),
	)

	// A transaction id left over from a failed order write means the
	// payment is already captured; retry skips straight to the order.
	transactionID := session.TransactionID
	paymentStatus := "captured"
	if transactionID == "" {
		sale, err := s.gateway.Sale(ctx, payment.SaleRequest{
			Nonce:       nonce,
			AmountCents: cart.TotalCents(),
			OrderRef:    session.ID,
		})
		if err != nil {
			telemetry.RecordSpanError(span, err)
			return s.failAttempt(ctx, session, attempt, failureReason(err), err)
		}
		transactionID = sale.TransactionID
		paymentStatus = sale.Status
		session.TransactionID = transactionID
	}

	result, err := s.orders.PlaceOrder(ctx, orderscommands.PlaceOrderCommand{
		BuyerID:    actor.ID,
		BuyerEmail: actor.Email,
		ProductIDs: cart.ProductIDs(),
		Payment:    ordersdomain.PaymentResult{TransactionID: transactionID, Status: paymentStatus},
	})
	if err != nil {
		// Payment stands. The transaction id stays on the session so a
		// retry resumes at the order write instead of charging again.
		telemetry.RecordSpanError(span, err)
		s.logger.ErrorContext(ctx, "payment captured but order write failed",
			"session_id", session.ID,
			"transaction_id", transactionID,
			"error", err,
		)
		return s.failAttempt(ctx, session, attempt, "order could not be saved, your card was not charged twice", err)
	}

	if err := s.guardAttempt(ctx, session, attempt); err != nil {
		// The order stands either way; transaction id de-duplication
		// protects any retry. Only this attempt's view is stale.
		return nil, err
	}

	if err := session.TransitionTo(domain.StateSucceeded); err != nil {
		return nil, err
	}
	session.OrderID = result.Order.ID
	session.FailureReason = ""

	if err := s.carts.Clear(ctx, actor.CartKey()); err != nil {
		// The order is durable, so this is not a money problem; the
		// buyer just sees stale items until the next cart mutation.
		s.logger.ErrorContext(ctx, "order placed but cart clear failed",
			"session_id", session.ID,
			"order_id", result.Order.ID,
			"error", err,
		)
	}

	if err := s.sessions.Save(ctx, session); err != nil {
		return nil, fmt.Errorf("save checkout session: %w", err)
	}

	outcome = "succeeded"
	telemetry.SetSpanSuccess(span)

	s.logger.InfoContext(ctx, "checkout succeeded",
		"session_id", session.ID,
		"order_id", result.Order.ID,
		"already_placed", result.AlreadyPlaced,
	)

	return session, nil
}

func (s *Service) fetchToken(ctx context.Context, session *domain.Session) {
	token, err := s.gateway.ClientToken(ctx)
	s.metrics.RecordTokenFetch(ctx, err == nil)
	if err != nil {
		s.logger.WarnContext(ctx, "client token fetch failed",
			"session_id", session.ID, "error", err)
		_ = session.Fail("payment gateway unavailable, please retry")
		return
	}

	session.ClientToken = token
	_ = session.TransitionTo(domain.StateReady)
}

func (s *Service) ownedSession(ctx context.Context, actor auth.Actor, sessionID string) (*domain.Session, error) {
	if !actor.Authenticated() {
		return nil, auth.ErrUnauthenticated
	}

	session, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	// Another buyer's session is indistinguishable from a missing one.
	if session.BuyerID != actor.ID {
		return nil, ports.ErrSessionNotFound
	}

	return session, nil
}

func (s *Service) failAttempt(ctx context.Context, session *domain.Session, attempt int, reason string, cause error) (*domain.Session, error) {
	if err := s.guardAttempt(ctx, session, attempt); err != nil {
		return nil, err
	}

	if err := session.Fail(reason); err != nil {
		return nil, err
	}
	if err := s.sessions.Save(ctx, session); err != nil {
		s.logger.ErrorContext(ctx, "failed to save failed checkout session",
			"session_id", session.ID, "error", err)
	}

	return session, cause
}

// guardAttempt discards late results: a canceled request or a session
// that moved past this attempt must not have stale effects applied. When
// the request itself was abandoned, the stored session is settled first
// so the buyer can retry.
func (s *Service) guardAttempt(ctx context.Context, session *domain.Session, attempt int) error {
	if err := ctx.Err(); err != nil {
		s.settleAbandoned(ctx, session, attempt)
		return fmt.Errorf("%w: %w", ErrAttemptSuperseded, err)
	}

	current, err := s.sessions.Get(ctx, session.ID)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrAttemptSuperseded, err)
	}
	if current.Attempt != attempt || current.State != domain.StateSubmitting {
		return ErrAttemptSuperseded
	}

	return nil
}

// settleAbandoned moves a session whose submission lost its request back
// to failed, carrying any captured transaction id into the store. The
// stored copy would otherwise sit in submitting, which has no retry edge,
// and a capture known only to the dead request would charge the card
// again on a fresh session.
func (s *Service) settleAbandoned(ctx context.Context, session *domain.Session, attempt int) {
	// The request context is already canceled; the settling writes must
	// outlive it.
	ctx = context.WithoutCancel(ctx)

	current, err := s.sessions.Get(ctx, session.ID)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to load abandoned checkout session",
			"session_id", session.ID, "error", err)
		return
	}
	// Someone else already moved the session past this attempt.
	if current.Attempt != attempt || current.State != domain.StateSubmitting {
		return
	}

	if session.TransactionID != "" {
		current.TransactionID = session.TransactionID
	}
	if err := current.Fail("checkout was interrupted, please retry"); err != nil {
		return
	}
	if err := s.sessions.Save(ctx, current); err != nil {
		s.logger.ErrorContext(ctx, "failed to settle abandoned checkout session",
			"session_id", session.ID,
			"transaction_id", session.TransactionID,
			"error", err,
		)
	}
}

func failureReason(err error) string {
	switch {
	case errors.Is(err, payment.ErrCardDeclined):
		return "card declined, please try another card"
	case errors.Is(err, payment.ErrNonceAlreadyUsed), errors.Is(err, payment.ErrInvalidNonce):
		return "payment details expired, please re-enter your card"
	case errors.Is(err, payment.ErrGatewayUnavailable):
		return "payment gateway unavailable, please retry"
	default:
		return "payment failed, please retry"
	}
}
