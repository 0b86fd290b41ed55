// Package notify is the outbound-delivery boundary. Actual email/Telegram
// transport lives outside this service; the default implementation only
// logs, which is also what local development wants.
package notify

import log "github.com/sirupsen/logrus"

// Notifier delivers one-time codes to a user out of band.
type Notifier interface {
	// SendEmailCode delivers a verification code to an email address.
	SendEmailCode(email, code string) error
	// SendPhoneCode delivers an OTP to a phone number.
	SendPhoneCode(phone, code string) error
}

// LogNotifier writes deliveries to the log instead of sending them.
type LogNotifier struct{}

// SendEmailCode implements Notifier.
func (LogNotifier) SendEmailCode(email, code string) error {
	log.Infof("notify: email code for %s: %s", email, code)
	return nil
}

// SendPhoneCode implements Notifier.
func (LogNotifier) SendPhoneCode(phone, code string) error {
	log.Infof("notify: phone code for %s: %s", phone, code)
	return nil
}
