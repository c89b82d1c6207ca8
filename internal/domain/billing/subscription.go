package billing

import (
	"time"

	"github.com/google/uuid"

	"github.com/portal/backend/internal/domain/shared"
)

// BillingCycle represents the recurring billing interval
type BillingCycle string

const (
	BillingCycleMonthly BillingCycle = "MONTHLY"
	BillingCycleAnnual  BillingCycle = "ANNUAL"
)

// IsValid checks if the billing cycle is valid
func (c BillingCycle) IsValid() bool {
	return c == BillingCycleMonthly || c == BillingCycleAnnual
}

// String returns the string representation of BillingCycle
func (c BillingCycle) String() string {
	return string(c)
}

// Period returns the length of one billing cycle starting at the given time
func (c BillingCycle) Period(from time.Time) time.Time {
	if c == BillingCycleAnnual {
		return from.AddDate(1, 0, 0)
	}
	return from.AddDate(0, 1, 0)
}

// SubscriptionStatus represents the lifecycle state of a subscription
type SubscriptionStatus string

const (
	SubscriptionStatusPending   SubscriptionStatus = "PENDING"   // Created at the gateway, awaiting approval
	SubscriptionStatusActive    SubscriptionStatus = "ACTIVE"    // Billing and access in effect
	SubscriptionStatusCancelled SubscriptionStatus = "CANCELLED" // Cancelled, runs until period end
	SubscriptionStatusExpired   SubscriptionStatus = "EXPIRED"   // Final cycle complete (terminal)
	SubscriptionStatusSuspended SubscriptionStatus = "SUSPENDED" // Payment failures past retry threshold
)

// IsValid checks if the status is a valid SubscriptionStatus
func (s SubscriptionStatus) IsValid() bool {
	switch s {
	case SubscriptionStatusPending, SubscriptionStatusActive, SubscriptionStatusCancelled,
		SubscriptionStatusExpired, SubscriptionStatusSuspended:
		return true
	}
	return false
}

// String returns the string representation of SubscriptionStatus
func (s SubscriptionStatus) String() string {
	return string(s)
}

// IsTerminal returns true when no further events apply
func (s SubscriptionStatus) IsTerminal() bool {
	return s == SubscriptionStatusExpired
}

// IsNonTerminal reports whether the subscription still occupies the
// one-per-(tenant, package) slot. Cancelled subscriptions free the slot
// immediately even though access runs until period end.
func (s SubscriptionStatus) IsNonTerminal() bool {
	return s == SubscriptionStatusPending || s == SubscriptionStatusActive
}

// SubscriptionEvent is an input to the subscription state machine
type SubscriptionEvent string

const (
	SubscriptionEventActivate   SubscriptionEvent = "ACTIVATE"
	SubscriptionEventCancel     SubscriptionEvent = "CANCEL"
	SubscriptionEventSuspend    SubscriptionEvent = "SUSPEND"
	SubscriptionEventReactivate SubscriptionEvent = "REACTIVATE"
	SubscriptionEventExpire     SubscriptionEvent = "EXPIRE"
)

// subscriptionTransitions is the explicit transition table. Absent pairs are
// illegal; they are dropped and logged by the lifecycle controller, never
// applied silently.
var subscriptionTransitions = map[SubscriptionStatus]map[SubscriptionEvent]SubscriptionStatus{
	SubscriptionStatusPending: {
		SubscriptionEventActivate: SubscriptionStatusActive,
		SubscriptionEventCancel:   SubscriptionStatusCancelled,
		SubscriptionEventExpire:   SubscriptionStatusExpired,
	},
	SubscriptionStatusActive: {
		SubscriptionEventCancel:  SubscriptionStatusCancelled,
		SubscriptionEventSuspend: SubscriptionStatusSuspended,
		SubscriptionEventExpire:  SubscriptionStatusExpired,
	},
	SubscriptionStatusSuspended: {
		SubscriptionEventReactivate: SubscriptionStatusActive,
		SubscriptionEventCancel:     SubscriptionStatusCancelled,
		SubscriptionEventExpire:     SubscriptionStatusExpired,
	},
	SubscriptionStatusCancelled: {
		SubscriptionEventExpire: SubscriptionStatusExpired,
	},
}

// NextSubscriptionStatus resolves the transition table. The second return
// value is false when the transition is illegal.
func NextSubscriptionStatus(current SubscriptionStatus, event SubscriptionEvent) (SubscriptionStatus, bool) {
	next, ok := subscriptionTransitions[current][event]
	return next, ok
}

// Subscription is the recurring billing aggregate. It is created in pending
// state when a gateway subscription is initiated and driven exclusively by
// verified gateway events afterwards.
type Subscription struct {
	shared.TenantEntity
	ServicePackageID      uuid.UUID          `json:"service_package_id"`
	GatewaySubscriptionID string             `json:"gateway_subscription_id"`
	Cycle                 BillingCycle       `json:"billing_cycle"`
	Status                SubscriptionStatus `json:"status"`
	StartDate             *time.Time         `json:"start_date,omitempty"`
	NextBillingDate       *time.Time         `json:"next_billing_date,omitempty"`
	CancelAtPeriodEnd     bool               `json:"cancel_at_period_end"`
	CancelReason          string             `json:"cancel_reason,omitempty"`
	// LastEventAt is the watermark of the newest gateway event already
	// applied. Webhook delivery is unordered; events with an older timestamp
	// are stale and must be dropped.
	LastEventAt *time.Time `json:"last_event_at,omitempty"`
}

// NewSubscription creates a pending subscription bound to a gateway
// subscription ID
func NewSubscription(tenantID, servicePackageID uuid.UUID, gatewaySubscriptionID string, cycle BillingCycle) (*Subscription, error) {
	if tenantID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_TENANT", "Tenant ID cannot be empty")
	}
	if servicePackageID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_PACKAGE", "Service package ID cannot be empty")
	}
	if gatewaySubscriptionID == "" {
		return nil, shared.NewDomainError("INVALID_SUBSCRIPTION", "Gateway subscription ID cannot be empty")
	}
	if !cycle.IsValid() {
		return nil, shared.NewDomainError("INVALID_BILLING_CYCLE", "Billing cycle must be MONTHLY or ANNUAL")
	}
	return &Subscription{
		TenantEntity:          shared.NewTenantEntity(tenantID),
		ServicePackageID:      servicePackageID,
		GatewaySubscriptionID: gatewaySubscriptionID,
		Cycle:                 cycle,
		Status:                SubscriptionStatusPending,
	}, nil
}

// ErrStaleSubscriptionEvent is returned when an event predates the watermark
var ErrStaleSubscriptionEvent = shared.NewDomainError("STALE_EVENT",
	"Event is older than the last applied subscription event")

// Apply runs one gateway event through the transition table, guarded by the
// event-time watermark. Stale events return ErrStaleSubscriptionEvent; illegal
// transitions return an INVALID_STATE error. Either way the subscription is
// unchanged.
func (s *Subscription) Apply(event SubscriptionEvent, eventTime time.Time) error {
	if s.LastEventAt != nil && eventTime.Before(*s.LastEventAt) {
		return ErrStaleSubscriptionEvent
	}
	next, ok := NextSubscriptionStatus(s.Status, event)
	if !ok {
		return shared.NewDomainError("INVALID_STATE",
			"Subscription cannot transition from "+s.Status.String()+" on "+string(event))
	}
	s.Status = next
	t := eventTime
	s.LastEventAt = &t
	s.Touch()
	return nil
}

// Activate applies a verified activation event and starts the billing clock.
// The gateway sends the same activation event type for a first activation and
// for a reactivation after suspension; SubscriptionEventFor picks the
// transition from the current status.
func (s *Subscription) Activate(eventTime time.Time) error {
	event, _ := SubscriptionEventFor(EventSubscriptionActivated, s.Status)
	if err := s.Apply(event, eventTime); err != nil {
		return err
	}
	if s.StartDate == nil {
		t := eventTime
		s.StartDate = &t
	}
	next := s.Cycle.Period(eventTime)
	s.NextBillingDate = &next
	return nil
}

// Cancel marks the subscription cancelled effective at period end: the status
// flips immediately but access and billing continue until NextBillingDate.
func (s *Subscription) Cancel(reason string, eventTime time.Time) error {
	if err := s.Apply(SubscriptionEventCancel, eventTime); err != nil {
		return err
	}
	s.CancelAtPeriodEnd = true
	s.CancelReason = reason
	return nil
}

// Suspend applies a payment-failure suspension event
func (s *Subscription) Suspend(eventTime time.Time) error {
	return s.Apply(SubscriptionEventSuspend, eventTime)
}

// Expire applies the terminal expiration event
func (s *Subscription) Expire(eventTime time.Time) error {
	return s.Apply(SubscriptionEventExpire, eventTime)
}

// RenewCycle advances the next billing date after a paid cycle
func (s *Subscription) RenewCycle(paidAt time.Time) {
	next := s.Cycle.Period(paidAt)
	s.NextBillingDate = &next
	s.Touch()
}

// HasAccess reports whether the tenant currently has access to the package.
// A cancelled subscription retains access until its period ends.
func (s *Subscription) HasAccess(now time.Time) bool {
	switch s.Status {
	case SubscriptionStatusActive:
		return true
	case SubscriptionStatusCancelled:
		return s.NextBillingDate != nil && now.Before(*s.NextBillingDate)
	default:
		return false
	}
}
