package beer

import (
	"context"
	"sort"

	"github.com/google/uuid"
)

// Store is the keyed collection of beers. Implementations must be safe for
// concurrent use; Update runs fn atomically with respect to other mutations of
// the same id.
type Store interface {
	List(ctx context.Context) ([]Beer, error)
	Get(ctx context.Context, id uuid.UUID) (Beer, bool, error)
	Put(ctx context.Context, b Beer) error
	Update(ctx context.Context, id uuid.UUID, fn func(*Beer)) (Beer, bool, error)
	Delete(ctx context.Context, id uuid.UUID) (bool, error)
	Ping(ctx context.Context) error
}

func sortBeers(out []Beer) {
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedDate.Equal(out[j].CreatedDate) {
			return out[i].CreatedDate.Before(out[j].CreatedDate)
		}
		return out[i].ID.String() < out[j].ID.String()
	})
}
