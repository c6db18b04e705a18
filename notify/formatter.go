package notify

import (
	"fmt"
	"html"
	"net/url"
	"strings"
	"time"

	"teleshop/lang"
	"teleshop/models"
)

const (
	createdAtLayout    = "2006-01-02 15:04:05"
	deliveryTimeLayout = "2006-01-02 15:04"
)

// Message is what every recipient of one event gets: an HTML body and one media
// entry per order item, in item order. An item without an image has an empty entry.
type Message struct {
	Body  string
	Media []string
}

// Formatter renders events. BaseURL and MediaURL make product image paths absolute.
type Formatter struct {
	Lang     string
	Location *time.Location
	BaseURL  string
	MediaURL string
}

func NewFormatter(langCode string, loc *time.Location, baseURL, mediaURL string) *Formatter {
	if loc == nil {
		loc = time.Local
	}
	if langCode == "" {
		langCode = lang.Ru
	}
	return &Formatter{Lang: langCode, Location: loc, BaseURL: baseURL, MediaURL: mediaURL}
}

// Format renders ev. It returns ErrNoItemsOrZeroTotal for an order whose total is zero.
func (f *Formatter) Format(ev Event) (Message, error) {
	o := ev.Order
	total := o.Total()
	if len(o.Items) == 0 || total.IsZero() {
		return Message{}, fmt.Errorf("%w: order_id=%d", ErrNoItemsOrZeroTotal, o.ID)
	}

	l := f.Lang
	var b strings.Builder
	if ev.IsNew {
		b.WriteString(lang.T(l, "hdr_new_order"))
	} else {
		b.WriteString(lang.T(l, "hdr_status_changed"))
	}
	b.WriteString("\n\n")
	b.WriteString(f.card(o, ev.Current))

	media := make([]string, 0, len(o.Items))
	for _, it := range o.Items {
		media = append(media, f.ImageURL(it.Product))
	}

	if ev.StatusChanged() {
		b.WriteString("\n\n" + lang.T(l, "status_change", f.StatusLabel(ev.Previous), f.StatusLabel(ev.Current)))
	}

	return Message{Body: b.String(), Media: media}, nil
}

// Card renders the order details block shared by notifications and the bot's
// order list: id, status, dates, total, address, comment and items.
func (f *Formatter) Card(o models.Order) string {
	return f.card(o, o.Status)
}

func (f *Formatter) card(o models.Order, status models.OrderStatus) string {
	l := f.Lang
	var b strings.Builder
	b.WriteString(lang.T(l, "order_id", o.ID) + "\n")
	b.WriteString(lang.T(l, "status", f.StatusLabel(status)) + "\n")
	b.WriteString(lang.T(l, "created_at", o.CreatedAt.In(f.Location).Format(createdAtLayout)) + "\n")
	b.WriteString(lang.T(l, "total", o.Total().StringFixed(2)) + "\n")

	address := lang.T(l, "pickup")
	if a := strings.TrimSpace(o.Address); a != "" {
		address = html.EscapeString(a)
	}
	b.WriteString(lang.T(l, "address", address) + "\n")

	deliveryTime := lang.T(l, "not_specified")
	if o.DeliveryTime != nil {
		deliveryTime = o.DeliveryTime.In(f.Location).Format(deliveryTimeLayout)
	}
	b.WriteString(lang.T(l, "delivery_time", deliveryTime) + "\n")
	if c := strings.TrimSpace(o.Comment); c != "" {
		b.WriteString(lang.T(l, "comment", html.EscapeString(c)) + "\n")
	}

	b.WriteString("\n" + lang.T(l, "items"))
	for _, it := range o.Items {
		fmt.Fprintf(&b, "\n%s x %d", html.EscapeString(it.Product.Name), it.Quantity)
	}
	return b.String()
}

// StatusLabel is the human-readable name of s; unknown statuses are shown raw.
func (f *Formatter) StatusLabel(s models.OrderStatus) string {
	key := "status_" + string(s)
	if label := lang.T(f.Lang, key); label != key {
		return label
	}
	return string(s)
}

// ImageURL returns the absolute URL of the product image, or "" if it has none.
func (f *Formatter) ImageURL(p models.Product) string {
	path := strings.TrimSpace(p.ImagePath)
	if path == "" {
		return ""
	}
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	u, err := url.JoinPath(f.BaseURL, f.MediaURL, path)
	if err != nil {
		return ""
	}
	return u
}
