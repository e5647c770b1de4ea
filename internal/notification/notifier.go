package notification

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/FeliksML/web-cellar-sub000/internal/domain"
)

// Notifier renders and sends the storefront's transactional emails.
type Notifier struct {
	sender    Sender
	storeName string
	logger    *slog.Logger
}

// NewNotifier creates a Notifier that signs emails with storeName.
func NewNotifier(sender Sender, storeName string, logger *slog.Logger) *Notifier {
	return &Notifier{
		sender:    sender,
		storeName: storeName,
		logger:    logger,
	}
}

// OrderConfirmationSubject is the subject line of the confirmation email.
func OrderConfirmationSubject(orderNumber string) string {
	return "Order Confirmed - " + orderNumber
}

// OrderStatusSubject is the subject line of a status update email.
func OrderStatusSubject(orderNumber, status string) string {
	return domain.StatusMessage(status) + " - " + orderNumber
}

// SendOrderConfirmation emails the customer a summary of a new order.
func (n *Notifier) SendOrderConfirmation(ctx context.Context, order *domain.Order) error {
	html, err := render(confirmationTmpl, newOrderPage("Order Confirmation", n.storeName, order))
	if err != nil {
		return err
	}
	return n.send(ctx, &Message{
		To:      []string{order.ContactEmail},
		Subject: OrderConfirmationSubject(order.OrderNumber),
		HTML:    html,
	})
}

// SendOrderStatusUpdate emails the customer the order's current status.
func (n *Notifier) SendOrderStatusUpdate(ctx context.Context, order *domain.Order) error {
	html, err := render(statusTmpl, statusPage{
		page:        page{Title: "Order Update", Brand: brandColor, StoreName: n.storeName},
		OrderNumber: order.OrderNumber,
		Emoji:       emojiFor(order.Status),
		Status:      statusLabel(order.Status),
		Reason:      order.CancellationReason,
	})
	if err != nil {
		return err
	}
	return n.send(ctx, &Message{
		To:      []string{order.ContactEmail},
		Subject: OrderStatusSubject(order.OrderNumber, order.Status),
		HTML:    html,
	})
}

// SendNewOrderAlert tells the store that an order came in.
func (n *Notifier) SendNewOrderAlert(ctx context.Context, to string, order *domain.Order) error {
	html, err := render(newOrderTmpl, newOrderPage("New Order", n.storeName, order))
	if err != nil {
		return err
	}
	return n.send(ctx, &Message{
		To:      []string{to},
		Subject: fmt.Sprintf("New order %s", order.OrderNumber),
		HTML:    html,
	})
}

// SendLowStockAlert lists products that fell to their low stock threshold.
func (n *Notifier) SendLowStockAlert(ctx context.Context, to string, products []domain.LowStockProduct) error {
	if len(products) == 0 {
		return nil
	}
	html, err := render(lowStockTmpl, lowStockPage{
		page:     page{Title: "Low Stock Alert", Brand: brandColor, StoreName: n.storeName},
		Products: products,
	})
	if err != nil {
		return err
	}

	subject := fmt.Sprintf("Low stock: %s", products[0].Name)
	if len(products) > 1 {
		subject = fmt.Sprintf("Low stock: %d products", len(products))
	}
	return n.send(ctx, &Message{To: []string{to}, Subject: subject, HTML: html})
}

func (n *Notifier) send(ctx context.Context, msg *Message) error {
	if err := n.sender.Send(ctx, msg); err != nil {
		return fmt.Errorf("send %q via %s: %w", msg.Subject, n.sender.Name(), err)
	}
	return nil
}
