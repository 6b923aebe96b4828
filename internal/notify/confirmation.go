package notify

import (
	"context"
	"fmt"

	"github.com/wolfman30/clinic-booking-api/pkg/logging"
)

// Confirmation carries everything the confirmation email template needs.
type Confirmation struct {
	FullName    string
	Email       string
	ServiceName string
	Date        string // YYYY-MM-DD
	StartTime   string // HH:MM:SS
}

// Confirmations renders and sends booking confirmation emails. A failed or
// timed-out send is logged and reported as false; it never unwinds the
// booking it confirms.
type Confirmations struct {
	sender     EmailSender
	clinicName string
	logger     *logging.Logger
}

// NewConfirmations builds the confirmation service. sender may be nil, in
// which case every Send reports false.
func NewConfirmations(sender EmailSender, clinicName string, logger *logging.Logger) *Confirmations {
	if logger == nil {
		logger = logging.Default()
	}
	if clinicName == "" {
		clinicName = "The Clinic"
	}
	return &Confirmations{sender: sender, clinicName: clinicName, logger: logger}
}

// Send delivers the confirmation within the caller's deadline and reports
// whether it went out.
func (c *Confirmations) Send(ctx context.Context, conf Confirmation) bool {
	if c.sender == nil {
		c.logger.Debug("email sender not configured, skipping confirmation", "to", conf.Email)
		return false
	}

	msg := EmailMessage{
		To:      conf.Email,
		ToName:  conf.FullName,
		Subject: fmt.Sprintf("Appointment confirmed — %s on %s", conf.ServiceName, conf.Date),
		Body: fmt.Sprintf(
			"Hi %s,\n\nYour %s appointment at %s is confirmed for %s at %s.\n\nIf you need to make changes, please call the front desk.\n\n%s",
			conf.FullName, conf.ServiceName, c.clinicName, conf.Date, shortTime(conf.StartTime), c.clinicName,
		),
	}

	if err := c.sender.Send(ctx, msg); err != nil {
		c.logger.Error("confirmation email failed",
			"to", conf.Email,
			"date", conf.Date,
			"error", err,
		)
		return false
	}
	return true
}

// shortTime trims HH:MM:SS to HH:MM for the email body.
func shortTime(t string) string {
	if len(t) == 8 {
		return t[:5]
	}
	return t
}
