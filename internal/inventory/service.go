package inventory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/asaskevich/EventBus"
	"github.com/pkg/errors"
	"github.com/stockpiled/stockpile/internal/domain"
	"github.com/stockpiled/stockpile/pkg/common"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// SortOrder is the quantity ordering of a product listing.
type SortOrder string

const (
	SortAsc  SortOrder = "asc"
	SortDesc SortOrder = "desc"
)

// ParseSortOrder normalizes a client-supplied order, defaulting to desc.
func ParseSortOrder(s string) SortOrder {
	if s == string(SortAsc) {
		return SortAsc
	}
	return SortDesc
}

func (o SortOrder) SQL() string {
	if o == SortAsc {
		return "ASC"
	}
	return "DESC"
}

// Outcome reports how an upsert resolved.
type Outcome string

const (
	OutcomeCreated Outcome = "created"
	OutcomeMerged  Outcome = "merged"
)

var (
	ErrNotFound     = errors.New("product not found")
	ErrInvalidInput = errors.New("invalid input")
	// ErrDuplicateRef marks the detected inconsistency of more than one
	// product holding the same (owner, ref) pair. No winner is chosen.
	ErrDuplicateRef = errors.New("duplicate reference for owner")
)

// TopicOwnerChanged is the event bus topic published after every store
// mutation of an owner's products.
func TopicOwnerChanged(ownerID int64) string {
	return fmt.Sprintf("inventory.changed.%d", ownerID)
}

// refLock is a reference-counted mutex for one (owner, ref) key.
type refLock struct {
	mu   sync.Mutex
	refs int
}

type keyLocker struct {
	mu    sync.Mutex
	locks map[string]*refLock
}

func newKeyLocker() *keyLocker {
	return &keyLocker{locks: make(map[string]*refLock)}
}

func (l *keyLocker) lock(key string) {
	l.mu.Lock()
	entry, ok := l.locks[key]
	if !ok {
		entry = &refLock{}
		l.locks[key] = entry
	}
	entry.refs++
	l.mu.Unlock()
	entry.mu.Lock()
}

func (l *keyLocker) unlock(key string) {
	l.mu.Lock()
	entry := l.locks[key]
	entry.refs--
	if entry.refs == 0 {
		delete(l.locks, key)
	}
	l.mu.Unlock()
	entry.mu.Unlock()
}

// Service reconciles candidate products against the store and owns all
// product mutations. Reconciliation for one (owner, ref) key is serialized
// through an in-process keyed lock so the read-then-write sequence cannot
// interleave with itself.
type Service struct {
	db      *gorm.DB
	repo    ProductRepository
	bus     EventBus.Bus
	upserts *keyLocker
}

func NewService(db *gorm.DB, repo ProductRepository, bus EventBus.Bus) *Service {
	return &Service{
		db:      db,
		repo:    repo,
		bus:     bus,
		upserts: newKeyLocker(),
	}
}

// Bus returns the change notification bus shared with projectors.
func (s *Service) Bus() EventBus.Bus {
	return s.bus
}

func (s *Service) notify(ownerID int64) {
	s.bus.Publish(TopicOwnerChanged(ownerID))
}

// Upsert merges delta into the owner's existing product with the same ref,
// or inserts a new product when none exists. The merge path only touches
// quantity; name and image of the existing record are left as they are.
func (s *Service) Upsert(ctx context.Context, ownerID int64, name string, ref, delta int64, image string) (Outcome, *domain.Product, error) {
	if ownerID == 0 {
		return "", nil, errors.Wrap(ErrInvalidInput, "owner id is required")
	}
	if delta <= 0 {
		return "", nil, errors.Wrap(ErrInvalidInput, "quantity must be positive")
	}

	key := fmt.Sprintf("%d:%d", ownerID, ref)
	s.upserts.lock(key)
	defer s.upserts.unlock(key)

	var outcome Outcome
	var product domain.Product
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&domain.Product{}).
			Where("owner_id = ? AND ref = ?", ownerID, ref).
			Count(&count).Error; err != nil {
			return err
		}

		switch {
		case count > 1:
			zap.L().Error("duplicate reference detected",
				zap.Int64("owner_id", ownerID),
				zap.Int64("ref", ref),
				zap.Int64("count", count))
			return ErrDuplicateRef
		case count == 1:
			if err := tx.Where("owner_id = ? AND ref = ?", ownerID, ref).
				First(&product).Error; err != nil {
				return err
			}
			if err := tx.Model(&domain.Product{}).
				Where("id = ?", product.ID).
				Updates(map[string]interface{}{
					"quantity":   gorm.Expr("quantity + ?", delta),
					"updated_at": time.Now(),
				}).Error; err != nil {
				return err
			}
			product.Quantity += delta
			outcome = OutcomeMerged
			return nil
		default:
			if name == "" {
				return errors.Wrap(ErrInvalidInput, "name is required")
			}
			product = domain.Product{
				ID:       common.UUIDint64(),
				OwnerID:  ownerID,
				Name:     name,
				Ref:      ref,
				Quantity: delta,
				Image:    image,
			}
			if err := tx.Create(&product).Error; err != nil {
				return err
			}
			outcome = OutcomeCreated
			return nil
		}
	})
	if err != nil {
		if errors.Is(err, ErrDuplicateRef) || errors.Is(err, ErrInvalidInput) {
			return "", nil, err
		}
		return "", nil, errors.Wrap(err, "upsert persistence failed")
	}

	s.notify(ownerID)
	return outcome, &product, nil
}

// AdjustQuantity adds delta to a product's quantity with a store-level
// increment. A result of zero or below deletes the product and returns a
// nil product.
func (s *Service) AdjustQuantity(ctx context.Context, ownerID, productID, delta int64) (*domain.Product, error) {
	var out *domain.Product
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var p domain.Product
		if err := tx.First(&p, productID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}
		if p.OwnerID != ownerID {
			return ErrNotFound
		}

		if err := tx.Model(&domain.Product{}).
			Where("id = ?", productID).
			Update("quantity", gorm.Expr("quantity + ?", delta)).Error; err != nil {
			return err
		}
		if err := tx.First(&p, productID).Error; err != nil {
			return err
		}
		if p.Quantity <= 0 {
			return tx.Delete(&domain.Product{}, productID).Error
		}
		out = &p
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, err
		}
		return nil, errors.Wrap(err, "adjust persistence failed")
	}

	s.notify(ownerID)
	return out, nil
}

// Update edits the mutable fields of an owned product. A ref change that
// collides with another product of the same owner is refused.
func (s *Service) Update(ctx context.Context, ownerID, productID int64, name string, ref, quantity int64) (*domain.Product, error) {
	if name == "" {
		return nil, errors.Wrap(ErrInvalidInput, "name is required")
	}
	if quantity <= 0 {
		return nil, errors.Wrap(ErrInvalidInput, "quantity must be positive")
	}

	var updated domain.Product
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var p domain.Product
		if err := tx.First(&p, productID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}
		if p.OwnerID != ownerID {
			return ErrNotFound
		}

		if ref != p.Ref {
			var count int64
			if err := tx.Model(&domain.Product{}).
				Where("owner_id = ? AND ref = ? AND id != ?", ownerID, ref, productID).
				Count(&count).Error; err != nil {
				return err
			}
			if count > 0 {
				return ErrDuplicateRef
			}
		}

		if err := tx.Model(&domain.Product{}).
			Where("id = ?", productID).
			Updates(map[string]interface{}{
				"name":       name,
				"ref":        ref,
				"quantity":   quantity,
				"updated_at": time.Now(),
			}).Error; err != nil {
			return err
		}
		return tx.First(&updated, productID).Error
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) || errors.Is(err, ErrDuplicateRef) || errors.Is(err, ErrInvalidInput) {
			return nil, err
		}
		return nil, errors.Wrap(err, "update persistence failed")
	}

	s.notify(ownerID)
	return &updated, nil
}

// Delete removes an owned product.
func (s *Service) Delete(ctx context.Context, ownerID, productID int64) error {
	p, err := s.repo.GetByID(ctx, productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return errors.Wrap(err, "delete persistence failed")
	}
	if p.OwnerID != ownerID {
		return ErrNotFound
	}
	if err := s.repo.Delete(ctx, productID); err != nil {
		return errors.Wrap(err, "delete persistence failed")
	}

	s.notify(ownerID)
	return nil
}

// Get retrieves an owned product.
func (s *Service) Get(ctx context.Context, ownerID, productID int64) (*domain.Product, error) {
	p, err := s.repo.GetByID(ctx, productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, errors.Wrap(err, "query failed")
	}
	if p.OwnerID != ownerID {
		return nil, ErrNotFound
	}
	return p, nil
}

// List retrieves the owner's products sorted by quantity.
func (s *Service) List(ctx context.Context, ownerID int64, order SortOrder) ([]domain.Product, error) {
	products, err := s.repo.ListByOwner(ctx, ownerID, order)
	if err != nil {
		return nil, errors.Wrap(err, "query failed")
	}
	return products, nil
}
