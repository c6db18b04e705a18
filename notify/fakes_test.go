package notify

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"teleshop/models"
)

type sentCall struct {
	Recipient string
	Kind      string
	Body      string
	Media     string
}

type fakeSender struct {
	latency   time.Duration
	failText  map[string]bool
	failMedia map[string]bool

	mu    sync.Mutex
	calls []sentCall
}

func (s *fakeSender) SendText(ctx context.Context, recipient, body string) error {
	time.Sleep(s.latency)
	s.mu.Lock()
	s.calls = append(s.calls, sentCall{Recipient: recipient, Kind: KindText, Body: body})
	s.mu.Unlock()
	if s.failText[recipient] {
		return fmt.Errorf("%w: chat %s: forbidden", ErrChannelUnavailable, recipient)
	}
	return nil
}

func (s *fakeSender) SendMedia(ctx context.Context, recipient string, media Media) error {
	time.Sleep(s.latency)
	s.mu.Lock()
	s.calls = append(s.calls, sentCall{Recipient: recipient, Kind: KindMedia, Media: media.URL})
	s.mu.Unlock()
	if s.failMedia[media.URL] {
		return fmt.Errorf("%w: %s", ErrMediaUnavailable, media.URL)
	}
	return nil
}

func (s *fakeSender) Calls() []sentCall {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]sentCall, len(s.calls))
	copy(out, s.calls)
	return out
}

func (s *fakeSender) callsFor(recipient string) []sentCall {
	var out []sentCall
	for _, c := range s.Calls() {
		if c.Recipient == recipient {
			out = append(out, c)
		}
	}
	return out
}

type fakeStaff struct {
	users []models.User
	err   error
}

func (f fakeStaff) Staff(context.Context) ([]models.User, error) {
	return f.users, f.err
}

type fakeNotifier struct {
	mu     sync.Mutex
	events []Event
	err    error
}

func (n *fakeNotifier) Dispatch(ev Event) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, ev)
	return n.err
}

type failingSubmitter struct{ err error }

func (s failingSubmitter) Submit(func()) error { return s.err }

type syncSubmitter struct{}

func (syncSubmitter) Submit(task func()) error {
	task()
	return nil
}

func product(name, price, image string) models.Product {
	return models.Product{Name: name, Price: decimal.RequireFromString(price), ImagePath: image}
}

// sampleOrder is order #42: Rose x2 and Tulip x1, pickup, no delivery time.
func sampleOrder() models.Order {
	return models.Order{
		ID:        42,
		Owner:     models.User{ID: 7, Username: "olga", TelegramID: "1007"},
		Status:    models.OrderStatusInProgress,
		CreatedAt: time.Date(2025, 1, 17, 0, 0, 0, 0, time.UTC),
		Items: []models.OrderItem{
			{Product: product("Rose", "150.00", "products/rose.jpg"), Quantity: 2},
			{Product: product("Tulip", "80.50", ""), Quantity: 1},
		},
	}
}

func testFormatter() *Formatter {
	loc, err := time.LoadLocation("Europe/Moscow")
	if err != nil {
		panic(err)
	}
	return NewFormatter("ru", loc, "http://shop.test", "/media/")
}
