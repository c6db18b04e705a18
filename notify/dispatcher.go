package notify

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/samber/lo"
	"github.com/sourcegraph/conc"
	"github.com/sourcegraph/conc/panics"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"teleshop/models"
)

const (
	KindText  = "text"
	KindMedia = "media"

	defaultMaxConcurrency = 10
)

// Media is one attachment: a remote URL or an already-loaded payload.
type Media struct {
	URL  string
	Data []byte
	Name string
}

// Sender is the external chat channel. Implementations return errors wrapping
// ErrChannelUnavailable (text) or ErrMediaUnavailable (media) and never retry.
type Sender interface {
	SendText(ctx context.Context, recipient, body string) error
	SendMedia(ctx context.Context, recipient string, media Media) error
}

// StaffDirectory lists staff users together with their chat identities.
type StaffDirectory interface {
	Staff(ctx context.Context) ([]models.User, error)
}

// Submitter runs a task on an execution context owned by someone else.
type Submitter interface {
	Submit(task func()) error
}

// goSubmitter is used when no Submitter is configured.
type goSubmitter struct{}

func (goSubmitter) Submit(task func()) error {
	go task()
	return nil
}

// Attempt is the outcome of one send to one recipient.
type Attempt struct {
	Recipient string
	Kind      string
	Media     string
	Err       error
}

// Report collects the attempts made for one event.
type Report struct {
	OrderID    int64
	Suppressed bool
	Attempts   []Attempt
}

func (r Report) Sent() int {
	return lo.CountBy(r.Attempts, func(a Attempt) bool { return a.Err == nil })
}

func (r Report) Failed() int {
	return len(r.Attempts) - r.Sent()
}

// Err aggregates failed attempts, nil if everything was sent.
func (r Report) Err() error {
	var result *multierror.Error
	for _, a := range r.Attempts {
		if a.Err != nil {
			result = multierror.Append(result, a.Err)
		}
	}
	return result.ErrorOrNil()
}

type Dispatcher struct {
	sender         Sender
	staff          StaffDirectory
	formatter      *Formatter
	submitter      Submitter
	metrics        *Metrics
	logger         *zap.Logger
	maxConcurrency int
}

type Option func(*Dispatcher)

// WithSubmitter hands fan-out tasks to s instead of bare goroutines.
func WithSubmitter(s Submitter) Option {
	return func(d *Dispatcher) { d.submitter = s }
}

func WithMetrics(m *Metrics) Option {
	return func(d *Dispatcher) { d.metrics = m }
}

// WithMaxConcurrency caps how many recipients are served at once for one event.
func WithMaxConcurrency(n int) Option {
	return func(d *Dispatcher) {
		if n > 0 {
			d.maxConcurrency = n
		}
	}
}

func NewDispatcher(sender Sender, staff StaffDirectory, formatter *Formatter, logger *zap.Logger, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		sender:         sender,
		staff:          staff,
		formatter:      formatter,
		submitter:      goSubmitter{},
		logger:         logger,
		maxConcurrency: defaultMaxConcurrency,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Dispatch schedules the fan-out for ev and returns immediately. The only error
// is ErrRuntimeScheduling, when the task could not be handed off.
func (d *Dispatcher) Dispatch(ev Event) error {
	err := d.submitter.Submit(func() {
		d.Deliver(context.Background(), ev)
	})
	if err != nil {
		d.metrics.observeEvent("unscheduled")
		return errors.Join(ErrRuntimeScheduling, err)
	}
	return nil
}

// Deliver runs the fan-out for ev and waits for every attempt to finish.
func (d *Dispatcher) Deliver(ctx context.Context, ev Event) Report {
	log := d.logger.With(zap.Int64("order_id", ev.Order.ID), zap.String("status", string(ev.Current)), zap.Bool("new_order", ev.IsNew))
	report := Report{OrderID: ev.Order.ID}

	msg, err := d.formatter.Format(ev)
	if err != nil {
		if errors.Is(err, ErrNoItemsOrZeroTotal) {
			log.Warn("notification suppressed", zap.Error(err))
			d.metrics.observeEvent("suppressed")
			report.Suppressed = true
			return report
		}
		log.Error("format notification", zap.Error(err))
		d.metrics.observeEvent("error")
		return report
	}

	var staff []models.User
	if d.staff != nil {
		staff, err = d.staff.Staff(ctx)
		if err != nil {
			log.Error("load staff recipients, notifying owner only", zap.Error(err))
			staff = nil
		}
	}
	recipients := ResolveRecipients(ev.Order.Owner, staff)
	if len(recipients) == 0 {
		log.Info("notification skipped", zap.Error(ErrNoRecipients))
		d.metrics.observeEvent("no_recipients")
		return report
	}

	media := lo.Compact(msg.Media)

	var (
		mu sync.Mutex
		eg errgroup.Group
	)
	record := func(a Attempt) {
		mu.Lock()
		report.Attempts = append(report.Attempts, a)
		mu.Unlock()
	}
	eg.SetLimit(d.maxConcurrency)
	for _, r := range recipients {
		r := r
		eg.Go(func() error {
			if rec := panics.Try(func() { d.deliverTo(ctx, r, msg.Body, media, record) }); rec != nil {
				log.Error("delivery panicked", zap.String("recipient", r), zap.Any("panic", rec.Value))
			}
			return nil
		})
	}
	_ = eg.Wait()

	if err := report.Err(); err != nil {
		log.Warn("notification partially delivered",
			zap.Int("recipients", len(recipients)),
			zap.Int("sent", report.Sent()),
			zap.Int("failed", report.Failed()),
			zap.Error(err),
		)
		d.metrics.observeEvent("partial")
		return report
	}
	log.Info("notification delivered",
		zap.Int("recipients", len(recipients)),
		zap.Int("sent", report.Sent()),
	)
	d.metrics.observeEvent("delivered")
	return report
}

// deliverTo sends the text first, then all media at once. A failed text does not
// stop the media.
func (d *Dispatcher) deliverTo(ctx context.Context, recipient, body string, media []string, record func(Attempt)) {
	start := time.Now()
	err := d.sender.SendText(ctx, recipient, body)
	d.metrics.observeAttempt(KindText, err, time.Since(start))
	if err != nil {
		d.logger.Warn("send text failed", zap.String("recipient", recipient), zap.Error(err))
	}
	record(Attempt{Recipient: recipient, Kind: KindText, Err: err})

	var wg conc.WaitGroup
	for _, u := range media {
		u := u
		wg.Go(func() {
			start := time.Now()
			err := d.sender.SendMedia(ctx, recipient, Media{URL: u})
			d.metrics.observeAttempt(KindMedia, err, time.Since(start))
			if err != nil {
				d.logger.Warn("send media failed", zap.String("recipient", recipient), zap.String("media", u), zap.Error(err))
			}
			record(Attempt{Recipient: recipient, Kind: KindMedia, Media: u, Err: err})
		})
	}
	if rec := wg.WaitAndRecover(); rec != nil {
		d.logger.Error("media delivery panicked", zap.String("recipient", recipient), zap.Any("panic", rec.Value))
	}
}
