package billing

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/portal/backend/internal/domain/billing"
	"github.com/portal/backend/internal/domain/shared"
	"github.com/portal/backend/internal/domain/shared/valueobject"
)

// valueCurrency maps a gateway currency code onto the domain currency,
// defaulting when the gateway omits it
func valueCurrency(code string) valueobject.Currency {
	if code == "" {
		return valueobject.DefaultCurrency
	}
	return valueobject.Currency(code)
}

// WebhookService is the lifecycle controller for gateway webhooks. Every
// delivery runs the same pipeline: remote signature verification (fail
// closed), boundary parse into a tagged event, idempotency claim on the event
// ID, dispatch through the entity state machines with the ordering watermark,
// and best-effort notification that never rolls back a transition.
type WebhookService struct {
	gateway          billing.GatewayClient
	invoiceRepo      billing.InvoiceRepository
	paymentRepo      billing.PaymentRepository
	subscriptionRepo billing.SubscriptionRepository
	payments         *PaymentService
	idempotency      shared.IdempotencyStore
	idempotencyCfg   shared.IdempotencyConfig
	notifier         shared.Notifier
	notifyRecipient  string
	logger           *zap.Logger
}

// WebhookServiceConfig contains the collaborators of WebhookService
type WebhookServiceConfig struct {
	Gateway          billing.GatewayClient
	InvoiceRepo      billing.InvoiceRepository
	PaymentRepo      billing.PaymentRepository
	SubscriptionRepo billing.SubscriptionRepository
	Payments         *PaymentService
	Idempotency      shared.IdempotencyStore
	IdempotencyCfg   shared.IdempotencyConfig
	Notifier         shared.Notifier
	NotifyRecipient  string
	Logger           *zap.Logger
}

// NewWebhookService creates a new WebhookService
func NewWebhookService(cfg WebhookServiceConfig) *WebhookService {
	return &WebhookService{
		gateway:          cfg.Gateway,
		invoiceRepo:      cfg.InvoiceRepo,
		paymentRepo:      cfg.PaymentRepo,
		subscriptionRepo: cfg.SubscriptionRepo,
		payments:         cfg.Payments,
		idempotency:      cfg.Idempotency,
		idempotencyCfg:   cfg.IdempotencyCfg,
		notifier:         cfg.Notifier,
		notifyRecipient:  cfg.NotifyRecipient,
		logger:           cfg.Logger,
	}
}

// WebhookResult reports what happened to a delivery
type WebhookResult struct {
	EventID   string `json:"event_id,omitempty"`
	EventType string `json:"event_type,omitempty"`
	Processed bool   `json:"processed"`
	Message   string `json:"message,omitempty"`
}

// HandleGatewayWebhook processes one gateway webhook delivery. Redelivered,
// unknown, stale and illegally-ordered events all return success so the
// sender stops retrying; only verification failures (401-equivalent) and
// transient processing failures (retried by the sender) surface as errors.
func (s *WebhookService) HandleGatewayWebhook(ctx context.Context, body []byte, transmission billing.WebhookTransmission) (*WebhookResult, error) {
	verified, err := s.gateway.VerifyWebhookSignature(ctx, transmission, body)
	if err != nil || !verified {
		s.logger.Warn("Gateway webhook rejected",
			zap.String("transmission_id", transmission.TransmissionID),
			zap.Error(err),
		)
		return nil, shared.ErrSignatureRejected
	}

	event, err := billing.ParseGatewayEvent(body)
	if err != nil {
		return nil, err
	}
	if event == nil {
		// Unknown event type: acknowledged, never applied.
		return &WebhookResult{Processed: false, Message: "Event type not handled"}, nil
	}

	fresh, err := s.idempotency.MarkProcessed(ctx, event.ID, s.idempotencyCfg.TTL)
	if err != nil {
		return nil, fmt.Errorf("idempotency claim failed: %w", err)
	}
	if !fresh {
		s.logger.Info("Duplicate webhook delivery ignored",
			zap.String("event_id", event.ID),
			zap.String("event_type", string(event.Type)),
		)
		return &WebhookResult{
			EventID:   event.ID,
			EventType: string(event.Type),
			Processed: false,
			Message:   "Event already processed",
		}, nil
	}

	if err := s.dispatch(ctx, event); err != nil {
		// Release the claim so the sender's redelivery can succeed.
		if unmarkErr := s.idempotency.Unmark(ctx, event.ID); unmarkErr != nil {
			s.logger.Error("Failed to release idempotency claim",
				zap.String("event_id", event.ID),
				zap.Error(unmarkErr),
			)
		}
		s.logger.Error("Failed to process webhook event",
			zap.String("event_id", event.ID),
			zap.String("event_type", string(event.Type)),
			zap.Error(err),
		)
		return nil, err
	}

	return &WebhookResult{
		EventID:   event.ID,
		EventType: string(event.Type),
		Processed: true,
	}, nil
}

// dispatch routes a verified, deduplicated event to its handler
func (s *WebhookService) dispatch(ctx context.Context, event *billing.GatewayEvent) error {
	switch event.Type {
	case billing.EventSubscriptionActivated, billing.EventSubscriptionCancelled,
		billing.EventSubscriptionSuspended, billing.EventSubscriptionExpired:
		return s.handleSubscriptionLifecycle(ctx, event)
	case billing.EventSubscriptionPaymentOK:
		return s.handleCyclePaid(ctx, event)
	case billing.EventOrderCaptureCompleted:
		return s.handleOrderCapture(ctx, event)
	}
	return nil
}

// handleSubscriptionLifecycle applies an activation/cancellation/suspension/
// expiration event through the subscription state machine
func (s *WebhookService) handleSubscriptionLifecycle(ctx context.Context, event *billing.GatewayEvent) error {
	subscription, err := s.subscriptionRepo.FindByGatewayID(ctx, event.SubscriptionID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			// Not ours, or the pending row was never created. Acknowledge so
			// the gateway stops retrying.
			s.logger.Warn("Subscription not found for gateway event",
				zap.String("gateway_subscription_id", event.SubscriptionID),
				zap.String("event_id", event.ID),
			)
			return nil
		}
		return err
	}

	previousStatus := subscription.Status
	switch event.Type {
	case billing.EventSubscriptionActivated:
		err = subscription.Activate(event.EventTime)
	case billing.EventSubscriptionCancelled:
		err = subscription.Cancel("Cancelled at gateway", event.EventTime)
	case billing.EventSubscriptionSuspended:
		err = subscription.Suspend(event.EventTime)
	case billing.EventSubscriptionExpired:
		err = subscription.Expire(event.EventTime)
	}
	if err != nil {
		if s.isDroppableTransition(err) {
			s.logger.Warn("Subscription event dropped",
				zap.String("subscription_id", subscription.ID.String()),
				zap.String("event_id", event.ID),
				zap.String("event_type", string(event.Type)),
				zap.String("current_status", subscription.Status.String()),
				zap.Error(err),
			)
			return nil
		}
		return err
	}

	if err := s.subscriptionRepo.Save(ctx, subscription); err != nil {
		return err
	}

	s.logger.Info("Subscription transitioned",
		zap.String("subscription_id", subscription.ID.String()),
		zap.String("from", previousStatus.String()),
		zap.String("to", subscription.Status.String()),
		zap.String("event_id", event.ID),
	)

	s.notify(ctx,
		fmt.Sprintf("Subscription %s is now %s", subscription.ID, subscription.Status),
		fmt.Sprintf("Subscription %s for tenant %s moved from %s to %s.",
			subscription.ID, subscription.TenantID, previousStatus, subscription.Status),
	)
	return nil
}

// handleCyclePaid records a subscription cycle payment and advances the next
// billing date
func (s *WebhookService) handleCyclePaid(ctx context.Context, event *billing.GatewayEvent) error {
	subscription, err := s.subscriptionRepo.FindByGatewayID(ctx, event.SubscriptionID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			s.logger.Warn("Subscription not found for cycle payment",
				zap.String("gateway_subscription_id", event.SubscriptionID),
				zap.String("event_id", event.ID),
			)
			return nil
		}
		return err
	}

	payment, err := billing.NewSubscriptionPayment(subscription.TenantID, subscription.ID,
		event.Amount, valueCurrency(event.Currency), event.TransactionID, event.EventTime)
	if err != nil {
		return err
	}

	created, err := s.paymentRepo.CreateIfAbsent(ctx, payment)
	if err != nil {
		return err
	}
	if !created {
		s.logger.Info("Duplicate cycle payment ignored",
			zap.String("transaction_id", event.TransactionID),
		)
		return nil
	}

	subscription.RenewCycle(event.EventTime)
	if err := s.subscriptionRepo.Save(ctx, subscription); err != nil {
		return err
	}

	s.logger.Info("Subscription cycle paid",
		zap.String("subscription_id", subscription.ID.String()),
		zap.String("transaction_id", event.TransactionID),
		zap.String("amount", event.Amount.String()),
	)

	s.notify(ctx,
		fmt.Sprintf("Subscription payment received (%s %s)", event.Amount, event.Currency),
		fmt.Sprintf("Cycle payment %s for subscription %s was captured.",
			event.TransactionID, subscription.ID),
	)
	return nil
}

// handleOrderCapture records a one-off capture against its invoice
func (s *WebhookService) handleOrderCapture(ctx context.Context, event *billing.GatewayEvent) error {
	invoiceID, err := uuid.Parse(event.InvoiceID)
	if err != nil {
		// Capture for an order not created by this system.
		s.logger.Warn("Capture event has no usable invoice reference",
			zap.String("event_id", event.ID),
			zap.String("order_id", event.OrderID),
		)
		return nil
	}

	invoice, err := s.invoiceRepo.FindByID(ctx, invoiceID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			s.logger.Warn("Invoice not found for capture event",
				zap.String("invoice_id", invoiceID.String()),
				zap.String("event_id", event.ID),
			)
			return nil
		}
		return err
	}

	_, err = s.payments.RecordInvoicePayment(ctx, invoice, event.TransactionID,
		event.Amount, valueCurrency(event.Currency), event.EventTime)
	if err != nil {
		if s.isDroppableTransition(err) {
			s.logger.Warn("Capture event dropped",
				zap.String("invoice_id", invoice.ID.String()),
				zap.String("event_id", event.ID),
				zap.Error(err),
			)
			return nil
		}
		return err
	}

	s.notify(ctx,
		fmt.Sprintf("Invoice %s paid", invoice.Number),
		fmt.Sprintf("Capture %s settled invoice %s (%s %s).",
			event.TransactionID, invoice.Number, event.Amount, event.Currency),
	)
	return nil
}

// isDroppableTransition reports whether a processing error is an ordering or
// state-machine rejection. Those are dropped with a log line and acknowledged;
// retrying them can never succeed.
func (s *WebhookService) isDroppableTransition(err error) bool {
	if errors.Is(err, billing.ErrStaleSubscriptionEvent) {
		return true
	}
	var domainErr *shared.DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Code == "INVALID_STATE"
	}
	return false
}

// notify sends a best-effort notification. Failures are logged and swallowed:
// the state transition is the source of truth.
func (s *WebhookService) notify(ctx context.Context, subject, body string) {
	if s.notifier == nil {
		return
	}
	err := s.notifier.Send(ctx, shared.Notification{
		Recipient: s.notifyRecipient,
		Subject:   subject,
		Body:      body,
	})
	if err != nil {
		s.logger.Warn("Notification failed", zap.String("subject", subject), zap.Error(err))
	}
}
