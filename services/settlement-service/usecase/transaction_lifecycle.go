package usecase

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/isectech/bulkshare/pkg/logging"
	"github.com/isectech/bulkshare/pkg/metrics"
	"github.com/isectech/bulkshare/services/settlement-service/domain/entity"
	"github.com/isectech/bulkshare/services/settlement-service/domain/repository"
	"github.com/isectech/bulkshare/shared/common"
)

// Phase is where a transaction session is in its load cycle
type Phase string

const (
	PhaseLoading  Phase = "loading"
	PhaseReady    Phase = "ready"
	PhaseNotFound Phase = "not_found"
)

type transition struct {
	action           string
	listingStatus    entity.ListingStatus
	settlementStatus entity.SettlementStatus
	eventType        entity.EventType
}

var (
	confirmTransition = transition{
		action:           "confirm",
		listingStatus:    entity.ListingStatusFulfilled,
		settlementStatus: entity.SettlementStatusFulfilled,
		eventType:        entity.EventTransactionConfirmed,
	}
	declineTransition = transition{
		action:           "decline",
		listingStatus:    entity.ListingStatusActive,
		settlementStatus: entity.SettlementStatusDeclined,
		eventType:        entity.EventTransactionDeclined,
	}
)

// TransactionLifecycle loads settlements for review and drives
// confirm/decline against the originating listing.
type TransactionLifecycle struct {
	lookups     repository.OrderLookupRepository
	listings    repository.ListingRepository
	settlements repository.SettlementRepository
	publisher   EventPublisher
	logger      *logging.Logger
	metrics     *metrics.Collector
}

// NewTransactionLifecycle creates a lifecycle controller
func NewTransactionLifecycle(
	lookups repository.OrderLookupRepository,
	listings repository.ListingRepository,
	settlements repository.SettlementRepository,
	publisher EventPublisher,
	logger *logging.Logger,
	collector *metrics.Collector,
) *TransactionLifecycle {
	return &TransactionLifecycle{
		lookups:     lookups,
		listings:    listings,
		settlements: settlements,
		publisher:   publisher,
		logger:      logger.WithComponent("transaction-lifecycle"),
		metrics:     collector,
	}
}

// Open resolves the order's listing, then fetches the listing and the
// settlement concurrently. A miss anywhere returns the session in
// PhaseNotFound together with a NotFound error. Store failures return a
// nil session.
func (l *TransactionLifecycle) Open(ctx context.Context, orderID string) (*TransactionSession, error) {
	logger := l.logger.WithContext(ctx).WithFields(logging.OrderID(orderID))
	timer := metrics.NewTimer()

	if strings.TrimSpace(orderID) == "" {
		return nil, common.NewAppErrorWithCause(common.ErrCodeInvalidInput, "order id is required", entity.ErrInvalidOrderID)
	}

	session := &TransactionSession{
		lifecycle: l,
		orderID:   orderID,
		phase:     PhaseLoading,
	}

	listingID, err := l.lookups.ListingIDForOrder(ctx, orderID)
	if err != nil {
		return session.loadFailed(logger, classifyStoreError(l.metrics, "lookup_order", "order", err))
	}
	session.listingID = listingID

	var (
		listing *entity.Listing
		record  *entity.SettlementRecord
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		listing, err = l.listings.GetByID(gctx, listingID)
		if err != nil {
			return classifyStoreError(l.metrics, "get_listing", "listing", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		record, err = l.settlements.FindByOrderID(gctx, orderID)
		if err != nil {
			return classifyStoreError(l.metrics, "get_settlement", "settlement", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return session.loadFailed(logger, err)
	}

	session.listing = listing
	session.settlement = record
	session.phase = PhaseReady

	l.metrics.RecordTransactionLoad(string(PhaseReady))
	logger.LogPerformance("open_transaction", timer.Duration(), logging.ListingID(listingID))

	return session, nil
}

// TransactionSession is one party's view of a settlement. Confirm and
// Decline are rejected while another action on the same session is in
// flight; separate sessions race last-write-wins.
type TransactionSession struct {
	lifecycle *TransactionLifecycle

	mu         sync.Mutex
	orderID    string
	listingID  string
	phase      Phase
	listing    *entity.Listing
	settlement *entity.SettlementRecord
	inFlight   bool
}

// TransactionView is a point-in-time snapshot of a session
type TransactionView struct {
	OrderID        string                   `json:"order_id"`
	ListingID      string                   `json:"listing_id,omitempty"`
	Phase          Phase                    `json:"phase"`
	Listing        *entity.Listing          `json:"listing,omitempty"`
	Settlement     *entity.SettlementRecord `json:"settlement,omitempty"`
	Reconciliation *entity.Reconciliation   `json:"reconciliation,omitempty"`
	InFlight       bool                     `json:"in_flight"`
}

func (s *TransactionSession) loadFailed(logger *logging.Logger, err error) (*TransactionSession, error) {
	if common.HasErrorCode(err, common.ErrCodeNotFound) {
		s.phase = PhaseNotFound
		s.lifecycle.metrics.RecordTransactionLoad(string(PhaseNotFound))
		logger.Info("Transaction not found", zap.Error(err))
		return s, err
	}

	s.lifecycle.metrics.RecordTransactionLoad("error")
	logger.Error("Failed to load transaction", zap.Error(err))
	return nil, err
}

// Phase returns the session phase
func (s *TransactionSession) Phase() Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}

// View returns a snapshot safe to hand out
func (s *TransactionSession) View() TransactionView {
	s.mu.Lock()
	defer s.mu.Unlock()

	view := TransactionView{
		OrderID:   s.orderID,
		ListingID: s.listingID,
		Phase:     s.phase,
		InFlight:  s.inFlight,
	}
	if s.listing != nil {
		listing := *s.listing
		view.Listing = &listing
	}
	if s.settlement != nil {
		settlement := *s.settlement
		settlement.CounterPartyItems = append([]entity.LineItem(nil), s.settlement.CounterPartyItems...)
		view.Settlement = &settlement

		reconciliation := s.settlement.Reconcile()
		view.Reconciliation = &reconciliation
	}
	return view
}

// Confirm marks the listing fulfilled and mirrors it on the settlement
func (s *TransactionSession) Confirm(ctx context.Context) error {
	return s.apply(ctx, confirmTransition)
}

// Decline returns the listing to active and marks the settlement declined
func (s *TransactionSession) Decline(ctx context.Context) error {
	return s.apply(ctx, declineTransition)
}

// apply writes the listing first, then echoes the status into the
// settlement record. The two writes are not atomic: when the echo fails
// the listing keeps its new status and ConsistencyGap is returned.
func (s *TransactionSession) apply(ctx context.Context, t transition) error {
	l := s.lifecycle
	timer := metrics.NewTimer()

	s.mu.Lock()
	if s.phase != PhaseReady {
		phase := s.phase
		s.mu.Unlock()
		return common.NewAppErrorWithCause(common.ErrCodeInvalidState, "transaction is not ready", entity.ErrTransactionNotReady).
			WithContext("phase", string(phase))
	}
	if s.inFlight {
		s.mu.Unlock()
		return common.NewAppErrorWithCause(common.ErrCodeOperationNotAllowed,
			"another action is in progress", entity.ErrTransitionInFlight)
	}
	s.inFlight = true
	orderID, listingID := s.orderID, s.listingID
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.inFlight = false
		s.mu.Unlock()
	}()

	logger := l.logger.WithContext(ctx).WithFields(
		logging.OrderID(orderID),
		logging.ListingID(listingID),
		zap.String("action", t.action))

	if err := l.listings.UpdateStatus(ctx, listingID, t.listingStatus); err != nil {
		l.metrics.RecordTransition(t.action, "error", timer.Duration())
		logger.Error("Failed to update listing status", zap.Error(err))
		return classifyStoreError(l.metrics, "update_listing", "listing", err)
	}

	s.mu.Lock()
	s.listing.Status = t.listingStatus
	s.mu.Unlock()

	if err := l.settlements.UpdateStatus(ctx, orderID, t.settlementStatus); err != nil {
		l.metrics.RecordTransition(t.action, "consistency_gap", timer.Duration())
		l.metrics.RecordConsistencyGap(t.action)
		logger.Error("Listing updated but settlement status was not",
			logging.Status(string(t.listingStatus)),
			zap.String("settlement_status", string(t.settlementStatus)),
			zap.Error(err))
		return common.ErrConsistencyGap(
			fmt.Sprintf("listing %s is %s, settlement %s not updated to %s",
				listingID, t.listingStatus, orderID, t.settlementStatus),
			err)
	}

	s.mu.Lock()
	s.settlement.Status = t.settlementStatus
	record := *s.settlement
	s.mu.Unlock()

	l.metrics.RecordTransition(t.action, "ok", timer.Duration())
	logger.LogBusinessEvent(string(t.eventType), "transaction "+t.action+"ed",
		logging.Status(string(t.settlementStatus)))

	publishBestEffort(ctx, l.publisher, entity.NewSettlementEvent(t.eventType, &record, listingID), logger)
	return nil
}
