// Package lang holds user-facing strings for notifications and the chat bot.
package lang

import "fmt"

const (
	Ru = "ru"
	En = "en"
)

var dict = map[string]map[string]string{
	Ru: {
		"status_created":     "Создан",
		"status_accepted":    "Принят к работе",
		"status_in_progress": "Находится в работе",
		"status_in_delivery": "В доставке",
		"status_completed":   "Выполнен",

		"hdr_new_order":      "🆕 <b>Новый заказ!</b>",
		"hdr_status_changed": "🔄 <b>Статус заказа изменен</b>",
		"order_id":           "<b>Заказ #%d</b>",
		"status":             "Статус: %s",
		"created_at":         "Дата создания: %s",
		"total":              "Сумма: %s руб.",
		"address":            "Адрес доставки: %s",
		"delivery_time":      "Время доставки: %s",
		"comment":            "Комментарий: %s",
		"items":              "Товары:",
		"pickup":             "Самовывоз",
		"not_specified":      "Не указано",
		"status_change":      "Статус изменен: %s → %s",

		"bot_welcome":         "Привет! Я бот магазина цветов. Чтобы получать уведомления о заказах, отправьте код привязки из личного кабинета: /link <код>",
		"bot_help":            "/link <код> - привязать аккаунт\n/orders [статус] [с по] - мои заказы\n/help - помощь",
		"bot_linked":          "✅ Аккаунт привязан. Теперь вы будете получать уведомления о заказах.",
		"bot_code_unknown":    "❌ Код привязки не найден или уже использован.",
		"bot_link_usage":      "Использование: /link <код>",
		"bot_not_linked":      "Аккаунт не привязан. Отправьте /link <код>.",
		"bot_no_orders":       "Активных заказов нет.",
		"bot_no_orders_found": "Заказов не найдено.",
		"bot_orders_usage":    "Использование: /orders [статус] [ГГГГ-ММ-ДД ГГГГ-ММ-ДД]\nСтатусы: created, accepted, in_progress, in_delivery, completed, all_except_completed",
		"bot_error":           "Произошла ошибка, попробуйте позже.",
		"bot_link_wait":       "Слишком много попыток. Повторите через %d сек.",
		"cmd_link":            "Привязать аккаунт",
		"cmd_orders":          "Мои заказы",
		"cmd_help":            "Помощь",
	},
	En: {
		"status_created":     "Created",
		"status_accepted":    "Accepted",
		"status_in_progress": "In progress",
		"status_in_delivery": "Out for delivery",
		"status_completed":   "Completed",

		"hdr_new_order":      "🆕 <b>New order!</b>",
		"hdr_status_changed": "🔄 <b>Order status changed</b>",
		"order_id":           "<b>Order #%d</b>",
		"status":             "Status: %s",
		"created_at":         "Created: %s",
		"total":              "Total: %s",
		"address":            "Delivery address: %s",
		"delivery_time":      "Delivery time: %s",
		"comment":            "Comment: %s",
		"items":              "Items:",
		"pickup":             "Pickup",
		"not_specified":      "Not specified",
		"status_change":      "Status changed: %s → %s",

		"bot_welcome":         "Hi! This is the flower shop bot. Send the binding code from your account page to get order notifications: /link <code>",
		"bot_help":            "/link <code> - bind account\n/orders [status] [from to] - my orders\n/help - help",
		"bot_linked":          "✅ Account bound. You will now receive order notifications.",
		"bot_code_unknown":    "❌ Binding code not found or already used.",
		"bot_link_usage":      "Usage: /link <code>",
		"bot_not_linked":      "Account is not bound. Send /link <code>.",
		"bot_no_orders":       "No active orders.",
		"bot_no_orders_found": "No orders found.",
		"bot_orders_usage":    "Usage: /orders [status] [YYYY-MM-DD YYYY-MM-DD]\nStatuses: created, accepted, in_progress, in_delivery, completed, all_except_completed",
		"bot_error":           "Something went wrong, try again later.",
		"bot_link_wait":       "Too many attempts. Try again in %d s.",
		"cmd_link":            "Bind account",
		"cmd_orders":          "My orders",
		"cmd_help":            "Help",
	},
}

// T returns the string for key in langCode, formatted with args.
// Unknown languages fall back to Russian, unknown keys are returned as is.
func T(langCode, key string, args ...interface{}) string {
	m, ok := dict[langCode]
	if !ok {
		m = dict[Ru]
	}
	s, ok := m[key]
	if !ok {
		return key
	}
	if len(args) > 0 {
		return fmt.Sprintf(s, args...)
	}
	return s
}
