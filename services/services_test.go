package services

import (
	"context"
	"errors"
	"regexp"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"teleshop/models"
)

func TestNewLinkCode(t *testing.T) {
	re := regexp.MustCompile(`^[0-9A-F]{8}$`)
	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		code := NewLinkCode()
		assert.Regexp(t, re, code)
		seen[code] = true
	}
	assert.Greater(t, len(seen), 95)
}

func TestNormalizeLinkCode(t *testing.T) {
	assert.Equal(t, "AB12CD34", NormalizeLinkCode("  ab12cd34\n"))
}

func TestValidateOrderInput(t *testing.T) {
	valid := models.CreateOrderInput{
		UserID: 1,
		Items:  []models.CreateOrderItem{{ProductID: 1, Quantity: 2}},
	}
	require.NoError(t, ValidateOrderInput(valid))

	tests := []struct {
		name  string
		input models.CreateOrderInput
	}{
		{"no user", models.CreateOrderInput{Items: valid.Items}},
		{"no items", models.CreateOrderInput{UserID: 1}},
		{"zero quantity", models.CreateOrderInput{UserID: 1, Items: []models.CreateOrderItem{{ProductID: 1}}}},
		{"no product", models.CreateOrderInput{UserID: 1, Items: []models.CreateOrderItem{{Quantity: 1}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, ValidateOrderInput(tt.input), ErrInvalidOrder)
		})
	}
}

func TestParseDeliveryTime(t *testing.T) {
	moscow, err := time.LoadLocation("Europe/Moscow")
	require.NoError(t, err)

	got, err := ParseDeliveryTime("", moscow)
	require.NoError(t, err)
	assert.Nil(t, got)

	got, err = ParseDeliveryTime("2025-01-17 12:00", moscow)
	require.NoError(t, err)
	assert.True(t, got.Equal(time.Date(2025, 1, 17, 9, 0, 0, 0, time.UTC)))

	got, err = ParseDeliveryTime("2025-01-17T09:00:00Z", moscow)
	require.NoError(t, err)
	assert.True(t, got.Equal(time.Date(2025, 1, 17, 9, 0, 0, 0, time.UTC)))

	_, err = ParseDeliveryTime("tomorrow", moscow)
	assert.ErrorIs(t, err, ErrInvalidOrder)
}

func TestUpdateOrderStatus_RejectsUnknownStatus(t *testing.T) {
	_, _, ok, err := UpdateOrderStatus(context.Background(), 1, "lost")
	assert.False(t, ok)
	assert.ErrorIs(t, err, ErrInvalidStatus)
}

func TestOrderFilter_Validate(t *testing.T) {
	day := time.Date(2025, 1, 17, 0, 0, 0, 0, time.UTC)
	tests := []struct {
		name    string
		filter  OrderFilter
		wantErr error
	}{
		{"zero", OrderFilter{}, nil},
		{"status", OrderFilter{Status: "in_delivery"}, nil},
		{"all except completed", OrderFilter{Status: StatusAllExceptCompleted}, nil},
		{"unknown status", OrderFilter{Status: "lost"}, ErrInvalidStatus},
		{"range", OrderFilter{From: day, To: day.AddDate(0, 0, 1)}, nil},
		{"only from", OrderFilter{From: day}, nil},
		{"reversed range", OrderFilter{From: day, To: day.AddDate(0, 0, -1)}, ErrInvalidFilter},
		{"empty range", OrderFilter{From: day, To: day}, ErrInvalidFilter},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.filter.Validate()
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestListOrdersQuery(t *testing.T) {
	from := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		isStaff   bool
		filter    OrderFilter
		wantWhere string
		wantArgs  []any
	}{
		{
			name:    "staff, no filter",
			isStaff: true,
		},
		{
			name:      "customer, no filter",
			filter:    OrderFilter{},
			wantWhere: "WHERE o.user_id = $1 AND o.status <> $2",
			wantArgs:  []any{int64(7), "completed"},
		},
		{
			name:      "staff, single status",
			isStaff:   true,
			filter:    OrderFilter{Status: "accepted"},
			wantWhere: "WHERE o.status = $1",
			wantArgs:  []any{"accepted"},
		},
		{
			name:      "staff, all except completed",
			isStaff:   true,
			filter:    OrderFilter{Status: StatusAllExceptCompleted},
			wantWhere: "WHERE o.status <> $1",
			wantArgs:  []any{"completed"},
		},
		{
			name:      "customer, all except completed adds nothing",
			filter:    OrderFilter{Status: StatusAllExceptCompleted},
			wantWhere: "WHERE o.user_id = $1 AND o.status <> $2",
			wantArgs:  []any{int64(7), "completed"},
		},
		{
			name:      "staff, status and range",
			isStaff:   true,
			filter:    OrderFilter{Status: "created", From: from, To: to},
			wantWhere: "WHERE o.status = $1 AND o.created_at >= $2 AND o.created_at < $3",
			wantArgs:  []any{"created", from, to},
		},
		{
			name:    "half-open range is ignored",
			isStaff: true,
			filter:  OrderFilter{From: from},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			query, args := listOrdersQuery(7, tt.isStaff, tt.filter)
			assert.Contains(t, query, "ORDER BY o.created_at DESC, o.id DESC")
			if tt.wantWhere == "" {
				assert.NotContains(t, query, "WHERE")
				assert.Empty(t, args)
				return
			}
			assert.Contains(t, query, tt.wantWhere)
			assert.Equal(t, tt.wantArgs, args)
		})
	}
}

func TestStaffDirectory_Caches(t *testing.T) {
	var loads atomic.Int32
	d := newStaffDirectory(time.Minute, func(context.Context) ([]models.User, error) {
		loads.Add(1)
		return []models.User{{ID: 1, TelegramID: "1", IsStaff: true}}, nil
	})

	for i := 0; i < 3; i++ {
		staff, err := d.Staff(context.Background())
		require.NoError(t, err)
		require.Len(t, staff, 1)
		staff[0].TelegramID = "mutated"
	}
	assert.Equal(t, int32(1), loads.Load())

	staff, _ := d.Staff(context.Background())
	assert.Equal(t, "1", staff[0].TelegramID)

	d.Invalidate()
	_, _ = d.Staff(context.Background())
	assert.Equal(t, int32(2), loads.Load())
}

func TestStaffDirectory_ZeroTTLDisablesCache(t *testing.T) {
	var loads atomic.Int32
	d := newStaffDirectory(0, func(context.Context) ([]models.User, error) {
		loads.Add(1)
		return nil, nil
	})
	_, _ = d.Staff(context.Background())
	_, _ = d.Staff(context.Background())
	assert.Equal(t, int32(2), loads.Load())
}

func TestStaffDirectory_ErrorsAreNotCached(t *testing.T) {
	fail := true
	d := newStaffDirectory(time.Minute, func(context.Context) ([]models.User, error) {
		if fail {
			return nil, errors.New("db down")
		}
		return []models.User{{ID: 2}}, nil
	})

	_, err := d.Staff(context.Background())
	require.Error(t, err)

	fail = false
	staff, err := d.Staff(context.Background())
	require.NoError(t, err)
	assert.Len(t, staff, 1)
}
