package notify

import (
	"fmt"
	"html"
	"strconv"
	"strings"

	"github.com/mmeshcher/virtmarket/internal/model"
)

// formatAmount сокращает количество виртов: 2500000 -> 2.5кк, 500000 -> 500к.
func formatAmount(amount int64) string {
	switch {
	case amount >= 1_000_000:
		return strconv.FormatFloat(float64(amount)/1_000_000, 'f', 1, 64) + "кк"
	case amount >= 1_000:
		return strconv.FormatInt(amount/1_000, 10) + "к"
	default:
		return strconv.FormatInt(amount, 10)
	}
}

func formatPrice(price float64) string {
	return strconv.FormatFloat(price, 'f', -1, 64)
}

func contactOf(o model.Order) string {
	if o.Contact != "" {
		return html.EscapeString(o.Contact)
	}
	return "@" + html.EscapeString(o.Username)
}

func serverOf(o model.Order) string {
	if o.ServerName != "" {
		return html.EscapeString(o.ServerName)
	}
	return "#" + strconv.Itoa(o.ServerID)
}

func actionOf(o model.Order) string {
	if o.OrderType == model.OrderTypeBuy {
		return "покупку"
	}
	return "продажу"
}

// formatMessage формирует HTML-текст уведомления.
func formatMessage(e Event, supportUsername string) string {
	o := e.Order
	var b strings.Builder

	switch e.Kind {
	case EventOrderCreated:
		if o.OrderType == model.OrderTypeBuy {
			b.WriteString("🛒 <b>НОВАЯ ЗАЯВКА НА ПОКУПКУ</b>\n\n")
			fmt.Fprintf(&b, "👤 Покупатель: @%s\n", html.EscapeString(o.Username))
			fmt.Fprintf(&b, "🎮 Сервер: <b>%s</b>\n", serverOf(o))
			fmt.Fprintf(&b, "💰 Количество: <b>%s</b>\n", formatAmount(o.Amount))
			fmt.Fprintf(&b, "💵 К оплате: <b>%s ₽</b>\n", formatPrice(o.Price))
			if o.RefundEnabled {
				b.WriteString("🛡 Возврат: Да (до 45%)\n")
			} else {
				b.WriteString("🛡 Возврат: Нет (-40%)\n")
			}
			fmt.Fprintf(&b, "📱 Контакт: %s\n\n", contactOf(o))
			b.WriteString("✅ Заявка автоматически одобрена")
		} else {
			b.WriteString("💰 <b>ЗАЯВКА НА ПРОДАЖУ (ожидает подтверждения)</b>\n\n")
			fmt.Fprintf(&b, "👤 Продавец: @%s\n", html.EscapeString(o.Username))
			fmt.Fprintf(&b, "🎮 Сервер: <b>%s</b>\n", serverOf(o))
			fmt.Fprintf(&b, "💰 Количество: <b>%s</b>\n", formatAmount(o.Amount))
			fmt.Fprintf(&b, "💵 Выплата: <b>%s ₽</b>\n", formatPrice(o.Price))
			fmt.Fprintf(&b, "📱 Контакт: %s\n\n", contactOf(o))
			b.WriteString("⏳ Требуется подтверждение в админ-панели")
		}
	case EventOrderApproved:
		fmt.Fprintf(&b, "<b>✅ Ваша заявка на %s одобрена!</b>\n\n", actionOf(o))
		fmt.Fprintf(&b, "🎮 %s - %s\n", html.EscapeString(o.Project), serverOf(o))
		fmt.Fprintf(&b, "💎 %s\n", formatAmount(o.Amount))
		fmt.Fprintf(&b, "💵 %s₽", formatPrice(o.Price))
		if supportUsername != "" {
			fmt.Fprintf(&b, "\n\nСвяжитесь с @%s для завершения сделки.", html.EscapeString(supportUsername))
		}
	case EventOrderRejected:
		fmt.Fprintf(&b, "<b>❌ Ваша заявка на %s отклонена</b>\n\n", actionOf(o))
		fmt.Fprintf(&b, "🎮 %s - %s\n", html.EscapeString(o.Project), serverOf(o))
		fmt.Fprintf(&b, "💎 %s", formatAmount(o.Amount))
		if supportUsername != "" {
			fmt.Fprintf(&b, "\n\nСвяжитесь с @%s для уточнения деталей.", html.EscapeString(supportUsername))
		}
	}

	return b.String()
}

// recipient возвращает чат, в который отправляется уведомление:
// о новых заявках узнаёт администратор, о решении модерации автор заявки.
func recipient(e Event, adminChatID int64) int64 {
	if e.Kind == EventOrderCreated {
		return adminChatID
	}
	return e.Order.UserID
}
