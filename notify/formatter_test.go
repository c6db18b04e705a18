package notify

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"teleshop/models"
)

func TestFormat_StatusChange(t *testing.T) {
	ev := NewEvent(sampleOrder(), models.OrderStatusAccepted, false)

	msg, err := testFormatter().Format(ev)
	require.NoError(t, err)

	body := msg.Body
	assert.Contains(t, body, "Статус заказа изменен")
	assert.NotContains(t, body, "Новый заказ")
	assert.Contains(t, body, "Заказ #42")
	assert.Contains(t, body, "Статус: Находится в работе")
	assert.Contains(t, body, "Дата создания: 2025-01-17 03:00:00")
	assert.Contains(t, body, "Сумма: 380.50 руб.")
	assert.Contains(t, body, "Адрес доставки: Самовывоз")
	assert.Contains(t, body, "Время доставки: Не указано")
	assert.Contains(t, body, "Rose x 2")
	assert.Contains(t, body, "Tulip x 1")
	assert.True(t, strings.HasSuffix(body, "\n\nСтатус изменен: Принят к работе → Находится в работе"), body)

	assert.Equal(t, []string{"http://shop.test/media/products/rose.jpg", ""}, msg.Media)
}

func TestFormat_NewOrder(t *testing.T) {
	o := sampleOrder()
	o.Status = models.OrderStatusCreated
	o.Address = "ул. Ленина, 1 <кв. 5>"
	dt := time.Date(2025, 1, 18, 9, 0, 0, 0, time.UTC)
	o.DeliveryTime = &dt
	o.Comment = "Я люблю Лепесток"

	msg, err := testFormatter().Format(NewEvent(o, "", true))
	require.NoError(t, err)

	assert.Contains(t, msg.Body, "Новый заказ")
	assert.Contains(t, msg.Body, "Статус: Создан")
	assert.Contains(t, msg.Body, "Адрес доставки: ул. Ленина, 1 &lt;кв. 5&gt;")
	assert.Contains(t, msg.Body, "Время доставки: 2025-01-18 12:00")
	assert.Contains(t, msg.Body, "Комментарий: Я люблю Лепесток")
	assert.NotContains(t, msg.Body, "Статус изменен")
}

func TestFormat_SameStatusHasNoChangeLine(t *testing.T) {
	o := sampleOrder()
	msg, err := testFormatter().Format(Event{Order: o, Previous: o.Status, Current: o.Status})
	require.NoError(t, err)
	assert.NotContains(t, msg.Body, "Статус изменен")
}

func TestFormat_Suppressed(t *testing.T) {
	tests := []struct {
		name  string
		items []models.OrderItem
	}{
		{"no items", nil},
		{"zero total", []models.OrderItem{{Product: product("Gift card", "0", ""), Quantity: 3}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := sampleOrder()
			o.Items = tt.items
			_, err := testFormatter().Format(NewEvent(o, models.OrderStatusAccepted, false))
			assert.ErrorIs(t, err, ErrNoItemsOrZeroTotal)
			assert.ErrorIs(t, err, ErrSuppressedNotification)
		})
	}
}

func TestFormat_English(t *testing.T) {
	f := NewFormatter("en", time.UTC, "http://shop.test", "/media/")
	msg, err := f.Format(NewEvent(sampleOrder(), models.OrderStatusAccepted, false))
	require.NoError(t, err)
	assert.Contains(t, msg.Body, "Order #42")
	assert.Contains(t, msg.Body, "Delivery address: Pickup")
	assert.Contains(t, msg.Body, "Status changed: Accepted → In progress")
}

func TestStatusLabel_Unknown(t *testing.T) {
	assert.Equal(t, "on_hold", testFormatter().StatusLabel("on_hold"))
}

func TestImageURL(t *testing.T) {
	f := testFormatter()
	tests := []struct {
		path string
		want string
	}{
		{"", ""},
		{"products/a.jpg", "http://shop.test/media/products/a.jpg"},
		{"/products/a.jpg", "http://shop.test/media/products/a.jpg"},
		{"https://cdn.test/a.jpg", "https://cdn.test/a.jpg"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, f.ImageURL(models.Product{ImagePath: tt.path}), tt.path)
	}
}

func TestCard_MatchesNotificationBody(t *testing.T) {
	f := testFormatter()
	o := sampleOrder()

	card := f.Card(o)
	msg, err := f.Format(NewEvent(o, models.OrderStatusAccepted, false))
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(card, "<b>Заказ #42</b>\nСтатус: Находится в работе"), card)
	assert.Contains(t, msg.Body, card)
	assert.NotContains(t, card, "Статус изменен")
}

func TestCard_ZeroItemsIsStillRendered(t *testing.T) {
	o := sampleOrder()
	o.Items = nil
	card := testFormatter().Card(o)
	assert.Contains(t, card, "Сумма: 0.00 руб.")
}
