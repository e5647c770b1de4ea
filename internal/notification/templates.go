package notification

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"

	"github.com/FeliksML/web-cellar-sub000/internal/domain"
	"github.com/FeliksML/web-cellar-sub000/pkg/money"
)

const brandColor = "#8B4513"

const layoutHTML = `{{define "layout"}}<!DOCTYPE html>
<html>
<head>
    <meta charset="utf-8">
    <title>{{.Title}}</title>
</head>
<body style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto; padding: 20px;">
{{template "content" .}}
    <p style="color: #666; font-size: 14px; margin-top: 30px;">
        If you have any questions, please reply to this email.
    </p>
    <p style="color: {{.Brand}};"><strong>{{.StoreName}}</strong></p>
</body>
</html>{{end}}`

const confirmationHTML = `{{define "content"}}
    <h1 style="color: {{.Brand}};">Thank you for your order!</h1>
    <p>Your order <strong>{{.OrderNumber}}</strong> has been received.</p>

    <h2>Order Details</h2>
    <table style="width: 100%; border-collapse: collapse;">
    {{- range .Items}}
        <tr>
            <td style="padding: 10px; border-bottom: 1px solid #eee;">{{.Name}} x {{.Quantity}}</td>
            <td style="padding: 10px; border-bottom: 1px solid #eee; text-align: right;">{{.Subtotal}}</td>
        </tr>
    {{- end}}
        <tr>
            <td style="padding: 10px; font-weight: bold;">Subtotal</td>
            <td style="padding: 10px; text-align: right;">{{.Subtotal}}</td>
        </tr>
        <tr>
            <td style="padding: 10px; font-weight: bold;">Shipping</td>
            <td style="padding: 10px; text-align: right;">{{.Shipping}}</td>
        </tr>
    {{- if .Discount}}
        <tr>
            <td style="padding: 10px; font-weight: bold;">Discount</td>
            <td style="padding: 10px; text-align: right;">-{{.Discount}}</td>
        </tr>
    {{- end}}
        <tr style="background: #f9f9f9;">
            <td style="padding: 10px; font-weight: bold; font-size: 18px;">Total</td>
            <td style="padding: 10px; text-align: right; font-size: 18px;">{{.Total}}</td>
        </tr>
    </table>

    <h2>{{.FulfillmentHeading}}</h2>
    <p>
        <strong>Date:</strong> {{.Date}}<br>
        <strong>Time:</strong> {{.TimeSlot}}
    </p>
{{end}}`

const statusHTML = `{{define "content"}}
    <h1 style="color: {{.Brand}};">{{.Emoji}} Order Update</h1>
    <p>Your order <strong>{{.OrderNumber}}</strong> status has been updated.</p>

    <div style="background: #f9f9f9; padding: 20px; border-radius: 8px; margin: 20px 0;">
        <p style="font-size: 18px; margin: 0;"><strong>Status:</strong> {{.Status}}</p>
    {{- if .Reason}}
        <p style="margin: 10px 0 0;">Reason: {{.Reason}}</p>
    {{- end}}
    </div>
{{end}}`

const lowStockHTML = `{{define "content"}}
    <h1 style="color: {{.Brand}};">Low Stock Alert</h1>
    <p>The following products are running low:</p>
    <table style="width: 100%; border-collapse: collapse;">
        <tr>
            <th style="padding: 10px; text-align: left;">Product</th>
            <th style="padding: 10px; text-align: left;">SKU</th>
            <th style="padding: 10px; text-align: right;">In stock</th>
        </tr>
    {{- range .Products}}
        <tr>
            <td style="padding: 10px; border-bottom: 1px solid #eee;">{{.Name}}</td>
            <td style="padding: 10px; border-bottom: 1px solid #eee;">{{.SKU}}</td>
            <td style="padding: 10px; border-bottom: 1px solid #eee; text-align: right;">{{.StockQuantity}} / {{.LowStockThreshold}}</td>
        </tr>
    {{- end}}
    </table>
{{end}}`

const newOrderHTML = `{{define "content"}}
    <h1 style="color: {{.Brand}};">New order {{.OrderNumber}}</h1>
    <p>
        <strong>Customer:</strong> {{.ContactEmail}}<br>
        <strong>Items:</strong> {{.ItemCount}}<br>
        <strong>Total:</strong> {{.Total}}<br>
        <strong>{{.FulfillmentHeading}}:</strong> {{.Date}} {{.TimeSlot}}
    </p>
{{end}}`

var (
	confirmationTmpl = mustTemplate("confirmation", confirmationHTML)
	statusTmpl       = mustTemplate("status", statusHTML)
	lowStockTmpl     = mustTemplate("low_stock", lowStockHTML)
	newOrderTmpl     = mustTemplate("new_order", newOrderHTML)
)

func mustTemplate(name, content string) *template.Template {
	return template.Must(template.Must(template.New(name).Parse(layoutHTML)).Parse(content))
}

var statusEmoji = map[string]string{
	domain.OrderStatusConfirmed:      "✓",
	domain.OrderStatusPreparing:      "👨‍🍳",
	domain.OrderStatusReady:          "📦",
	domain.OrderStatusOutForDelivery: "🚗",
	domain.OrderStatusDelivered:      "🎉",
	domain.OrderStatusPickedUp:       "🎉",
	domain.OrderStatusCancelled:      "❌",
}

func emojiFor(status string) string {
	if e, ok := statusEmoji[status]; ok {
		return e
	}
	return "📋"
}

// statusLabel turns out_for_delivery into "Out For Delivery".
func statusLabel(status string) string {
	words := strings.Fields(strings.ReplaceAll(status, "_", " "))
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + strings.ToLower(w[1:])
	}
	return strings.Join(words, " ")
}

type page struct {
	Title     string
	Brand     string
	StoreName string
}

type itemLine struct {
	Name     string
	Quantity int
	Subtotal string
}

type orderPage struct {
	page
	OrderNumber        string
	ContactEmail       string
	Items              []itemLine
	ItemCount          int
	Subtotal           string
	Shipping           string
	Discount           string
	Total              string
	FulfillmentHeading string
	Date               string
	TimeSlot           string
}

type statusPage struct {
	page
	OrderNumber string
	Emoji       string
	Status      string
	Reason      string
}

type lowStockPage struct {
	page
	Products []domain.LowStockProduct
}

func newOrderPage(title, storeName string, o *domain.Order) orderPage {
	p := orderPage{
		page:               page{Title: title, Brand: brandColor, StoreName: storeName},
		OrderNumber:        o.OrderNumber,
		ContactEmail:       o.ContactEmail,
		Subtotal:           money.Format(o.Subtotal),
		Shipping:           money.Format(o.ShippingCost),
		Total:              money.Format(o.Total),
		FulfillmentHeading: "Delivery Information",
		Date:               "To be scheduled",
		TimeSlot:           o.RequestedTimeSlot,
	}
	if o.DiscountAmount > 0 {
		p.Discount = money.Format(o.DiscountAmount)
	}
	if o.FulfillmentType == domain.FulfillmentPickup {
		p.FulfillmentHeading = "Pickup Information"
	}
	if o.RequestedDate != nil {
		p.Date = o.RequestedDate.Format("Monday, January 2, 2006")
	}
	if p.TimeSlot == "" {
		p.TimeSlot = "Standard delivery"
	}
	for _, item := range o.Items {
		p.Items = append(p.Items, itemLine{
			Name:     item.ProductName,
			Quantity: item.Quantity,
			Subtotal: money.Format(item.Subtotal),
		})
		p.ItemCount += item.Quantity
	}
	return p
}

func render(t *template.Template, data any) (string, error) {
	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout", data); err != nil {
		return "", fmt.Errorf("render %s email: %w", t.Name(), err)
	}
	return buf.String(), nil
}
