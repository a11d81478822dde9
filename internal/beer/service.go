package beer

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Service is the set of beer operations exposed over REST and GraphQL.
// Get reports absence through its bool result; the mutating operations
// return ErrNotFound when the id is unknown.
type Service interface {
	List(ctx context.Context) ([]Beer, error)
	Get(ctx context.Context, id uuid.UUID) (Beer, bool, error)
	Create(ctx context.Context, in Beer) (uuid.UUID, error)
	Update(ctx context.Context, id uuid.UUID, in Beer) error
	Delete(ctx context.Context, id uuid.UUID) error
	Patch(ctx context.Context, id uuid.UUID, p Patch) error
}

type BeerService struct {
	store   Store
	log     *zap.Logger
	metrics *Metrics
	now     func() time.Time
}

func NewService(store Store, log *zap.Logger, metrics *Metrics) *BeerService {
	if log == nil {
		log = zap.NewNop()
	}
	return &BeerService{
		store:   store,
		log:     log,
		metrics: metrics,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

func (s *BeerService) List(ctx context.Context) ([]Beer, error) {
	s.log.Debug("list beers")
	return s.store.List(ctx)
}

func (s *BeerService) Get(ctx context.Context, id uuid.UUID) (Beer, bool, error) {
	s.log.Debug("get beer", zap.Stringer("beer_id", id))
	return s.store.Get(ctx, id)
}

func (s *BeerService) Create(ctx context.Context, in Beer) (uuid.UUID, error) {
	now := s.now()
	b := Beer{
		ID:             uuid.New(),
		Version:        1,
		Name:           in.Name,
		Style:          in.Style,
		UPC:            in.UPC,
		QuantityOnHand: in.QuantityOnHand,
		Price:          in.Price,
		CreatedDate:    now,
		UpdateDate:     now,
	}

	if err := s.store.Put(ctx, b); err != nil {
		s.metrics.observe(opCreate, err)
		return uuid.Nil, err
	}
	s.metrics.observe(opCreate, nil)

	s.log.Debug("beer created", zap.Stringer("beer_id", b.ID))
	return b.ID, nil
}

// Update replaces every business field of an existing beer. The version is
// reset to 1 rather than incremented and the created date is kept.
func (s *BeerService) Update(ctx context.Context, id uuid.UUID, in Beer) error {
	now := s.now()
	_, found, err := s.store.Update(ctx, id, func(b *Beer) {
		b.Version = 1
		b.Name = in.Name
		b.Style = in.Style
		b.UPC = in.UPC
		b.QuantityOnHand = in.QuantityOnHand
		b.Price = in.Price
		b.UpdateDate = now
	})
	return s.finish(opUpdate, id, found, err)
}

func (s *BeerService) Delete(ctx context.Context, id uuid.UUID) error {
	found, err := s.store.Delete(ctx, id)
	return s.finish(opDelete, id, found, err)
}

// Patch overwrites only the supplied, non-blank fields. Version and update
// date are left untouched.
func (s *BeerService) Patch(ctx context.Context, id uuid.UUID, p Patch) error {
	_, found, err := s.store.Update(ctx, id, p.apply)
	return s.finish(opPatch, id, found, err)
}

func (s *BeerService) finish(op string, id uuid.UUID, found bool, err error) error {
	if err == nil && !found {
		err = ErrNotFound
	}
	s.metrics.observe(op, err)

	if err != nil {
		s.log.Debug("beer mutation failed", zap.String("op", op), zap.Stringer("beer_id", id), zap.Error(err))
		return err
	}
	s.log.Debug("beer mutated", zap.String("op", op), zap.Stringer("beer_id", id))
	return nil
}
