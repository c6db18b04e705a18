package services

import (
	"context"
	"slices"
	"time"

	"github.com/patrickmn/go-cache"

	"teleshop/models"
)

const staffCacheKey = "staff"

// StaffDirectory serves the staff list to the notifier, caching it for ttl.
// A zero ttl disables caching.
type StaffDirectory struct {
	ttl   time.Duration
	cache *cache.Cache
	load  func(ctx context.Context) ([]models.User, error)
}

func NewStaffDirectory(ttl time.Duration) *StaffDirectory {
	return newStaffDirectory(ttl, ListStaff)
}

func newStaffDirectory(ttl time.Duration, load func(ctx context.Context) ([]models.User, error)) *StaffDirectory {
	return &StaffDirectory{
		ttl:   ttl,
		cache: cache.New(ttl, 2*ttl),
		load:  load,
	}
}

// Staff returns a copy of the cached list. Load errors are not cached.
func (d *StaffDirectory) Staff(ctx context.Context) ([]models.User, error) {
	if d.ttl > 0 {
		if v, ok := d.cache.Get(staffCacheKey); ok {
			return slices.Clone(v.([]models.User)), nil
		}
	}
	staff, err := d.load(ctx)
	if err != nil {
		return nil, err
	}
	if d.ttl > 0 {
		d.cache.SetDefault(staffCacheKey, slices.Clone(staff))
	}
	return staff, nil
}

// Invalidate drops the cached list, e.g. after a staff member binds a chat.
func (d *StaffDirectory) Invalidate() {
	d.cache.Delete(staffCacheKey)
}
