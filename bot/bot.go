package bot

import (
	"context"
	"fmt"
	"html"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"teleshop/lang"
	"teleshop/models"
	"teleshop/notify"
	"teleshop/services"
)

const maxListedOrders = 10

// Store is what the bot reads and writes.
type Store interface {
	RedeemLinkCode(ctx context.Context, code, identity string) (int64, bool, error)
	UserByTelegramID(ctx context.Context, identity string) (models.User, bool, error)
	ListOrders(ctx context.Context, userID int64, isStaff bool, filter services.OrderFilter) ([]models.Order, error)
	LinkThrottleWait(ctx context.Context, identity string) (int, error)
	RecordLinkFailed(ctx context.Context, identity string) error
	RecordLinkSuccess(ctx context.Context, identity string) error
}

// DBStore is the Store backed by the services package.
type DBStore struct{}

func (DBStore) RedeemLinkCode(ctx context.Context, code, identity string) (int64, bool, error) {
	return services.RedeemLinkCode(ctx, code, identity)
}

func (DBStore) UserByTelegramID(ctx context.Context, identity string) (models.User, bool, error) {
	return services.GetUserByTelegramID(ctx, identity)
}

func (DBStore) ListOrders(ctx context.Context, userID int64, isStaff bool, filter services.OrderFilter) ([]models.Order, error) {
	return services.ListOrders(ctx, userID, isStaff, filter)
}

func (DBStore) LinkThrottleWait(ctx context.Context, identity string) (int, error) {
	return services.LinkThrottleWaitSeconds(ctx, identity)
}

func (DBStore) RecordLinkFailed(ctx context.Context, identity string) error {
	return services.RecordLinkFailed(ctx, identity)
}

func (DBStore) RecordLinkSuccess(ctx context.Context, identity string) error {
	return services.RecordLinkSuccess(ctx, identity)
}

// Bot is the chat front end: account binding and a read-only order list.
type Bot struct {
	api       *tgbotapi.BotAPI
	store     Store
	formatter *notify.Formatter
	logger    *zap.Logger

	onLinked func(userID int64)
}

func New(api *tgbotapi.BotAPI, store Store, formatter *notify.Formatter, logger *zap.Logger) *Bot {
	return &Bot{api: api, store: store, formatter: formatter, logger: logger}
}

// SetOnLinked registers a callback run after a chat is bound to a user.
func (b *Bot) SetOnLinked(fn func(userID int64)) {
	b.onLinked = fn
}

func (b *Bot) setBotCommands() error {
	l := b.formatter.Lang
	cfg := tgbotapi.NewSetMyCommands(
		tgbotapi.BotCommand{Command: "link", Description: lang.T(l, "cmd_link")},
		tgbotapi.BotCommand{Command: "orders", Description: lang.T(l, "cmd_orders")},
		tgbotapi.BotCommand{Command: "help", Description: lang.T(l, "cmd_help")},
	)
	_, err := b.api.Request(cfg)
	return err
}

// Start polls for updates until ctx is cancelled.
func (b *Bot) Start(ctx context.Context) {
	if err := b.setBotCommands(); err != nil {
		b.logger.Warn("set bot commands", zap.Error(err))
	}
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := b.api.GetUpdatesChan(u)

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			if update.Message == nil {
				continue
			}
			msg := update.Message
			reply := b.handle(ctx, strconv.FormatInt(msg.Chat.ID, 10), msg.Text)
			if reply != "" {
				b.send(msg.Chat.ID, reply)
			}
		}
	}
}

func (b *Bot) send(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	if _, err := b.api.Send(msg); err != nil {
		b.logger.Warn("send reply", zap.Int64("chat_id", chatID), zap.Error(err))
	}
}

// handle returns the HTML reply for one incoming message, "" for none.
func (b *Bot) handle(ctx context.Context, identity, text string) string {
	cmd, arg := splitCommand(text)
	switch cmd {
	case "/start":
		if arg == "" {
			return b.text("bot_welcome")
		}
		return b.handleLink(ctx, identity, arg)
	case "/link":
		if arg == "" {
			return b.text("bot_link_usage")
		}
		return b.handleLink(ctx, identity, arg)
	case "/orders":
		return b.handleOrders(ctx, identity, arg)
	case "/help":
		return b.text("bot_help")
	}
	return ""
}

func (b *Bot) handleLink(ctx context.Context, identity, code string) string {
	log := b.logger.With(zap.String("chat", identity))

	wait, err := b.store.LinkThrottleWait(ctx, identity)
	if err != nil {
		log.Error("link throttle lookup", zap.Error(err))
		return b.text("bot_error")
	}
	if wait > 0 {
		return b.text("bot_link_wait", wait)
	}

	userID, ok, err := b.store.RedeemLinkCode(ctx, code, identity)
	if err != nil {
		log.Error("redeem link code", zap.Error(err))
		return b.text("bot_error")
	}
	if !ok {
		if err := b.store.RecordLinkFailed(ctx, identity); err != nil {
			log.Warn("record failed link attempt", zap.Error(err))
		}
		return b.text("bot_code_unknown")
	}

	if err := b.store.RecordLinkSuccess(ctx, identity); err != nil {
		log.Warn("reset link throttle", zap.Error(err))
	}
	log.Info("chat linked", zap.Int64("user_id", userID))
	if b.onLinked != nil {
		b.onLinked(userID)
	}
	return b.text("bot_linked")
}

func (b *Bot) handleOrders(ctx context.Context, identity, arg string) string {
	filter, err := parseOrderFilter(arg, b.formatter.Location)
	if err != nil {
		return b.text("bot_orders_usage")
	}
	user, ok, err := b.store.UserByTelegramID(ctx, identity)
	if err != nil {
		b.logger.Error("lookup user by chat", zap.String("chat", identity), zap.Error(err))
		return b.text("bot_error")
	}
	if !ok {
		return b.text("bot_not_linked")
	}
	orders, err := b.store.ListOrders(ctx, user.ID, user.IsStaff, filter)
	if err != nil {
		b.logger.Error("list orders", zap.Int64("user_id", user.ID), zap.Error(err))
		return b.text("bot_error")
	}
	if len(orders) == 0 {
		if filter != (services.OrderFilter{}) {
			return b.text("bot_no_orders_found")
		}
		return b.text("bot_no_orders")
	}
	if len(orders) > maxListedOrders {
		orders = orders[:maxListedOrders]
	}
	cards := make([]string, len(orders))
	for i, o := range orders {
		cards[i] = b.formatter.Card(o)
	}
	return strings.Join(cards, "\n\n")
}

// parseOrderFilter reads "[status] [from to]" with dates as YYYY-MM-DD in loc.
// Both dates are inclusive.
func parseOrderFilter(arg string, loc *time.Location) (services.OrderFilter, error) {
	var filter services.OrderFilter
	fields := strings.Fields(arg)
	if len(fields)%2 == 1 {
		filter.Status = strings.ToLower(fields[0])
		fields = fields[1:]
	}
	switch len(fields) {
	case 0:
	case 2:
		from, err := time.ParseInLocation(time.DateOnly, fields[0], loc)
		if err != nil {
			return services.OrderFilter{}, err
		}
		to, err := time.ParseInLocation(time.DateOnly, fields[1], loc)
		if err != nil {
			return services.OrderFilter{}, err
		}
		filter.From, filter.To = from, to.AddDate(0, 0, 1)
	default:
		return services.OrderFilter{}, fmt.Errorf("%w: %q", services.ErrInvalidFilter, arg)
	}
	if err := filter.Validate(); err != nil {
		return services.OrderFilter{}, err
	}
	return filter, nil
}

func (b *Bot) text(key string, args ...interface{}) string {
	return html.EscapeString(lang.T(b.formatter.Lang, key, args...))
}

// splitCommand splits "/link@shop_bot ABC" into "/link" and "ABC".
func splitCommand(text string) (cmd, arg string) {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "/") {
		return "", ""
	}
	cmd, arg, _ = strings.Cut(text, " ")
	if at := strings.IndexByte(cmd, '@'); at >= 0 {
		cmd = cmd[:at]
	}
	return strings.ToLower(cmd), strings.TrimSpace(arg)
}
