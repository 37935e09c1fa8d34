package application

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"

	"github.com/sanosuguru/go-arena-booking/internal/domain/booking"
	"github.com/sanosuguru/go-arena-booking/internal/domain/notification"
)

// PaymentDetails は振込先口座
type PaymentDetails struct {
	Bank          string
	AccountName   string
	AccountNumber string
	BranchCode    string
	AccountType   string
}

// DefaultPaymentDetails は標準の振込先
func DefaultPaymentDetails() PaymentDetails {
	return PaymentDetails{
		Bank:          "FNB",
		AccountName:   "Coastal Accounting Cricket Arena",
		AccountNumber: "62874561234",
		BranchCode:    "250655",
		AccountType:   "Business Cheque",
	}
}

var mailTemplates = template.Must(template.New("mail").Parse(`
{{define "details"}}<table>
<tr><td><strong>Booking ID:</strong></td><td>{{.Reference}}</td></tr>
<tr><td><strong>Date:</strong></td><td>{{.Date}}</td></tr>
<tr><td><strong>Time:</strong></td><td>{{.TimeSlot}}</td></tr>
<tr><td><strong>Duration:</strong></td><td>{{.Duration}} hours</td></tr>
<tr><td><strong>Customer:</strong></td><td>{{.Name}} ({{.Email}})</td></tr>
<tr><td><strong>Total:</strong></td><td>R{{.TotalPrice}}</td></tr>
</table>{{end}}
{{define "payment"}}<h4>Payment Details</h4>
<p>Bank: {{.Payment.Bank}}<br>Account Name: {{.Payment.AccountName}}<br>Account Number: {{.Payment.AccountNumber}}<br>Branch Code: {{.Payment.BranchCode}}<br>Account Type: {{.Payment.AccountType}}<br>Reference: <strong>{{.Reference}}</strong></p>{{end}}
{{define "created"}}<h2>Cricket Arena Booking Confirmation</h2>
<p>Dear {{.Name}},</p>
<p>Your cricket arena booking has been received. Here are your booking details:</p>
{{template "details" .}}
{{template "payment" .}}
<ul><li>Please arrive 15 minutes early for equipment setup</li>
<li>Payment can be made via EFT before your session</li>
<li>Use booking reference <strong>{{.Reference}}</strong> for all payments</li></ul>
<p>Bookings can be changed up to {{.CutoffDays}} days before the booking date.</p>
<p>Thank you for choosing our cricket arena!</p>{{end}}
{{define "operator_created"}}<h2>New Booking Received</h2>
{{template "details" .}}
<p>Phone: {{.Phone}}</p>
<p>Status: {{.Status}}</p>{{end}}
{{define "updated"}}<h2>Booking Updated</h2>
<p>Dear {{.Name}},</p>
<p>Your cricket arena booking has been updated. Your new booking details:</p>
{{template "details" .}}
{{template "payment" .}}{{end}}
{{define "operator_modified"}}<h2>Booking Modified</h2>
<p>Booking {{.Reference}} for {{.Name}} ({{.Email}}) was modified.</p>
<p>Before: {{.Previous.Date}} {{.Previous.TimeSlot}} for {{.Previous.Duration}} hours (R{{.Previous.TotalPrice}})</p>
<p>After: {{.Date}} {{.TimeSlot}} for {{.Duration}} hours (R{{.TotalPrice}})</p>
{{if .Reason}}<p>Reason: {{.Reason}}</p>{{end}}{{end}}
{{define "status"}}<h2>Booking {{.StatusTitle}}</h2>
<p>Dear {{.Name}},</p>
<p>The status of your cricket arena booking is now <strong>{{.Status}}</strong>.</p>
{{template "details" .}}{{end}}
`))

type mailData struct {
	Reference   string
	Name        string
	Email       string
	Phone       string
	Date        string
	TimeSlot    string
	Duration    int
	TotalPrice  int
	Status      string
	StatusTitle string
	Reason      string
	CutoffDays  int
	Payment     PaymentDetails
	Previous    *mailData
}

// MessageBuilder は予約の通知メールとイベントを組み立てる
type MessageBuilder struct {
	operatorEmail string
	payment       PaymentDetails
	cutoffDays    int
}

func NewMessageBuilder(operatorEmail string, payment PaymentDetails, cutoffDays int) *MessageBuilder {
	return &MessageBuilder{operatorEmail: operatorEmail, payment: payment, cutoffDays: cutoffDays}
}

// Created は予約作成時の顧客・運営者宛メール
func (m *MessageBuilder) Created(b *booking.Booking) ([]notification.Message, error) {
	data := m.data(b)
	customer, err := render("created", data)
	if err != nil {
		return nil, err
	}
	operator, err := render("operator_created", data)
	if err != nil {
		return nil, err
	}
	return []notification.Message{
		{To: data.Email, Subject: "Booking Confirmation - " + data.Reference, HTML: customer},
		{To: m.operatorEmail, Subject: "New Booking - " + data.Reference, HTML: operator},
	}, nil
}

// Modified は予約変更時の顧客・運営者宛メール
func (m *MessageBuilder) Modified(b, previous *booking.Booking, reason string) ([]notification.Message, error) {
	data := m.data(b)
	prev := m.data(previous)
	data.Previous = &prev
	data.Reason = reason
	customer, err := render("updated", data)
	if err != nil {
		return nil, err
	}
	operator, err := render("operator_modified", data)
	if err != nil {
		return nil, err
	}
	return []notification.Message{
		{To: data.Email, Subject: "Booking Updated - " + data.Reference, HTML: customer},
		{To: m.operatorEmail, Subject: "Booking Modified - " + data.Reference, HTML: operator},
	}, nil
}

// StatusChanged は状態変更時の顧客宛メール
func (m *MessageBuilder) StatusChanged(b *booking.Booking) ([]notification.Message, error) {
	data := m.data(b)
	body, err := render("status", data)
	if err != nil {
		return nil, err
	}
	return []notification.Message{
		{To: data.Email, Subject: fmt.Sprintf("Booking %s - %s", data.StatusTitle, data.Reference), HTML: body},
	}, nil
}

// Event は予約のイベントを作る。previous は変更時のみ指定する
func (m *MessageBuilder) Event(eventType string, b, previous *booking.Booking, reason string) *notification.Event {
	ev := &notification.Event{
		Type:        eventType,
		BookingID:   b.ID,
		Reference:   b.Reference(),
		BookingDate: booking.FormatDate(b.BookingDate),
		TimeSlot:    b.TimeSlot,
		Duration:    b.Duration,
		TotalPrice:  b.TotalPrice,
		Status:      string(b.Status),
		Reason:      reason,
		OccurredAt:  b.UpdatedAt,
	}
	if previous != nil {
		ev.Previous = &notification.Snapshot{
			BookingDate: booking.FormatDate(previous.BookingDate),
			TimeSlot:    previous.TimeSlot,
			Duration:    previous.Duration,
			TotalPrice:  previous.TotalPrice,
			Status:      string(previous.Status),
		}
	}
	return ev
}

func (m *MessageBuilder) data(b *booking.Booking) mailData {
	status := string(b.Status)
	title := status
	if title != "" {
		title = strings.ToUpper(title[:1]) + title[1:]
	}
	return mailData{
		Reference:   b.Reference(),
		Name:        booking.Unsanitize(b.CustomerName),
		Email:       booking.Unsanitize(b.Email),
		Phone:       booking.Unsanitize(b.Phone),
		Date:        booking.FormatDate(b.BookingDate),
		TimeSlot:    b.TimeSlot,
		Duration:    b.Duration,
		TotalPrice:  b.TotalPrice,
		Status:      status,
		StatusTitle: title,
		CutoffDays:  m.cutoffDays,
		Payment:     m.payment,
	}
}

func render(name string, data mailData) (string, error) {
	var buf bytes.Buffer
	if err := mailTemplates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("メール本文の生成に失敗: %w", err)
	}
	return buf.String(), nil
}
