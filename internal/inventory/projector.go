package inventory

import (
	"context"
	"sort"
	"sync"

	"github.com/asaskevich/EventBus"
	"github.com/pkg/errors"
	"github.com/stockpiled/stockpile/internal/domain"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// Projector maintains live, sorted views of per-owner product sets.
// Every store change for an owner re-queries the full set once (change
// bursts are coalesced through singleflight) and pushes a full-replace
// snapshot to each of the owner's subscriptions.
type Projector struct {
	repo  ProductRepository
	bus   EventBus.Bus
	group singleflight.Group
}

func NewProjector(repo ProductRepository, bus EventBus.Bus) *Projector {
	return &Projector{repo: repo, bus: bus}
}

// Subscription is one live view over an owner's products. Updates carries
// complete sorted snapshots; the latest snapshot wins when the consumer
// lags. Close is idempotent and releases the bus handler.
type Subscription struct {
	ownerID int64
	updates chan []domain.Product

	mu    sync.Mutex
	order SortOrder
	last  []domain.Product

	closeOnce sync.Once
	done      chan struct{}
	handler   func()
}

// Subscribe opens a live view for an owner. The first snapshot is emitted
// before Subscribe returns.
func (p *Projector) Subscribe(ownerID int64, order SortOrder) (*Subscription, error) {
	if ownerID == 0 {
		return nil, errors.Wrap(ErrInvalidInput, "owner id is required")
	}

	sub := &Subscription{
		ownerID: ownerID,
		order:   order,
		updates: make(chan []domain.Product, 1),
		done:    make(chan struct{}),
	}
	sub.handler = func() {
		p.refresh(sub)
	}

	if err := p.bus.Subscribe(TopicOwnerChanged(ownerID), sub.handler); err != nil {
		return nil, errors.Wrap(err, "subscribe failed")
	}
	p.refresh(sub)
	return sub, nil
}

// refresh re-queries the owner's products and emits a snapshot. Concurrent
// refreshes for the same owner share one store query.
func (p *Projector) refresh(sub *Subscription) {
	v, err, _ := p.group.Do(TopicOwnerChanged(sub.ownerID), func() (interface{}, error) {
		return p.repo.ListByOwner(context.Background(), sub.ownerID, SortDesc)
	})
	if err != nil {
		zap.L().Error("live view refresh failed",
			zap.Int64("owner_id", sub.ownerID),
			zap.Error(err))
		return
	}
	sub.replace(v.([]domain.Product))
}

// Unsubscribe tears down a subscription. Safe to call more than once.
func (p *Projector) Unsubscribe(sub *Subscription) {
	sub.closeOnce.Do(func() {
		close(sub.done)
		if err := p.bus.Unsubscribe(TopicOwnerChanged(sub.ownerID), sub.handler); err != nil {
			zap.L().Warn("bus unsubscribe failed",
				zap.Int64("owner_id", sub.ownerID),
				zap.Error(err))
		}
	})
}

// Updates returns the snapshot channel.
func (s *Subscription) Updates() <-chan []domain.Product {
	return s.updates
}

// OwnerID returns the owner this subscription projects.
func (s *Subscription) OwnerID() int64 {
	return s.ownerID
}

// SetOrder changes the sort order and re-emits the current snapshot
// without touching the store.
func (s *Subscription) SetOrder(order SortOrder) {
	s.mu.Lock()
	s.order = order
	snapshot := make([]domain.Product, len(s.last))
	copy(snapshot, s.last)
	s.mu.Unlock()
	s.emit(snapshot)
}

// replace installs a fresh store snapshot and emits it.
func (s *Subscription) replace(products []domain.Product) {
	s.mu.Lock()
	s.last = products
	snapshot := make([]domain.Product, len(products))
	copy(snapshot, products)
	s.mu.Unlock()
	s.emit(snapshot)
}

func (s *Subscription) emit(products []domain.Product) {
	s.mu.Lock()
	order := s.order
	s.mu.Unlock()

	SortByQuantity(products, order)

	select {
	case <-s.done:
		return
	default:
	}

	// latest snapshot wins, never block the publisher
	select {
	case s.updates <- products:
	default:
		select {
		case <-s.updates:
		default:
		}
		select {
		case s.updates <- products:
		default:
		}
	}
}

// SortByQuantity stable-sorts products by quantity in the given order.
func SortByQuantity(products []domain.Product, order SortOrder) {
	sort.SliceStable(products, func(i, j int) bool {
		if order == SortAsc {
			return products[i].Quantity < products[j].Quantity
		}
		return products[i].Quantity > products[j].Quantity
	})
}
