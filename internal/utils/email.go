package utils

import (
	"context"
	"fmt"
	"html"
	"log"
	"strings"

	"github.com/wneessen/go-mail"

	"storefront/internal/config"
	"storefront/internal/models"
)

// Mailer envoie les e-mails de confirmation de commande via SMTP
type Mailer struct {
	cfg config.SMTPConfig
}

// NewMailer renvoie nil si SMTP n'est pas configuré
func NewMailer(cfg config.SMTPConfig) *Mailer {
	if !cfg.Enabled() {
		return nil
	}
	return &Mailer{cfg: cfg}
}

// SendOrderConfirmation envoie le récapitulatif de commande à to
func (m *Mailer) SendOrderConfirmation(ctx context.Context, to string, order models.OrderConfirmation) error {
	msg := mail.NewMsg()

	if err := msg.From(m.cfg.From); err != nil {
		return err
	}
	if err := msg.To(to); err != nil {
		return err
	}
	msg.Subject("Order confirmation " + order.OrderID)
	msg.SetBodyString(mail.TypeTextHTML, GenerateOrderConfirmationHTML(order))

	opts := []mail.Option{
		mail.WithPort(m.cfg.Port),
		mail.WithTLSPolicy(mail.TLSMandatory),
	}
	if m.cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthLogin),
			mail.WithUsername(m.cfg.Username),
			mail.WithPassword(m.cfg.Password),
		)
	}
	client, err := mail.NewClient(m.cfg.Host, opts...)
	if err != nil {
		return err
	}

	log.Println("📤 Envoi de l'e-mail à", to)
	return client.DialAndSendWithContext(ctx, msg)
}

// GenerateOrderConfirmationHTML génère le HTML de confirmation de commande
func GenerateOrderConfirmationHTML(order models.OrderConfirmation) string {
	var rows strings.Builder
	for _, item := range order.Items {
		fmt.Fprintf(&rows, `
			<tr>
				<td style="padding: 10px; border: 1px solid #ddd;">%s</td>
				<td style="padding: 10px; border: 1px solid #ddd;">%d</td>
				<td style="padding: 10px; border: 1px solid #ddd;">$%.2f</td>
				<td style="padding: 10px; border: 1px solid #ddd;">$%.2f</td>
			</tr>`, html.EscapeString(item.Title), item.Quantity, item.Price, item.Price*float64(item.Quantity))
	}

	currency := strings.ToUpper(order.Currency)
	if currency == "" {
		currency = "USD"
	}

	return fmt.Sprintf(`
<!DOCTYPE html>
<html lang="en">
<head>
	<meta charset="UTF-8">
	<meta name="viewport" content="width=device-width, initial-scale=1.0">
	<title>Order confirmation</title>
</head>
<body style="font-family: Arial, sans-serif; background-color: #f9f9f9; padding: 20px;">
	<div style="max-width: 600px; margin: auto; background-color: white; padding: 20px; border-radius: 10px;">
		<h2 style="color: #333;">Thank you for your order!</h2>
		<p>Your payment was received. Order reference: <strong>%s</strong></p>

		<table style="width: 100%%; border-collapse: collapse; margin: 20px 0;">
			<thead>
				<tr style="background-color: #f0f0f0;">
					<th style="padding: 10px; text-align: left; border: 1px solid #ddd;">Product</th>
					<th style="padding: 10px; text-align: left; border: 1px solid #ddd;">Quantity</th>
					<th style="padding: 10px; text-align: left; border: 1px solid #ddd;">Unit price</th>
					<th style="padding: 10px; text-align: left; border: 1px solid #ddd;">Total</th>
				</tr>
			</thead>
			<tbody>
				%s
			</tbody>
			<tfoot>
				<tr>
					<td colspan="3" style="padding: 10px; text-align: right; font-weight: bold;">Charged (tax and shipping included):</td>
					<td style="padding: 10px; font-weight: bold;">%.2f %s</td>
				</tr>
			</tfoot>
		</table>
	</div>
</body>
</html>`, html.EscapeString(order.OrderID), rows.String(), float64(order.AmountTotal)/100, currency)
}
