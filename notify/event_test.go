package notify

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"teleshop/models"
)

func TestNewEvent_Snapshot(t *testing.T) {
	o := sampleOrder()
	dt := time.Now()
	want := dt
	o.DeliveryTime = &dt

	ev := NewEvent(o, models.OrderStatusAccepted, false)
	o.Items[0].Quantity = 99
	*o.DeliveryTime = dt.Add(time.Hour)

	assert.Equal(t, 2, ev.Order.Items[0].Quantity)
	assert.True(t, ev.Order.DeliveryTime.Equal(want))
	assert.Equal(t, models.OrderStatusAccepted, ev.Previous)
	assert.Equal(t, models.OrderStatusInProgress, ev.Current)
	assert.True(t, ev.StatusChanged())
}

func TestNewEvent_CreatedIgnoresPrevious(t *testing.T) {
	ev := NewEvent(sampleOrder(), models.OrderStatusAccepted, true)
	assert.True(t, ev.IsNew)
	assert.Empty(t, ev.Previous)
	assert.False(t, ev.StatusChanged())
}
