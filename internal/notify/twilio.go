// Package notify sends vote-confirmation SMS messages. Sending is
// fire-and-forget: a delivery failure is logged by the caller and never
// blocks or rolls back an admission.
package notify

import (
	"errors"
	"fmt"

	"github.com/twilio/twilio-go"
	api "github.com/twilio/twilio-go/rest/api/v2010"
)

// ConfirmationMessage is the body sent after a counted vote.
const ConfirmationMessage = "Your vote has been counted. Thank you."

// Twilio sends SMS through the Twilio REST API.
type Twilio struct {
	client      *twilio.RestClient
	fromNumber  string
	countryCode string
}

// NewTwilio creates a sender. countryCode is prefixed to enrolled phone
// numbers, which the roll stores without one (e.g. "+91").
func NewTwilio(accountSID, authToken, fromNumber, countryCode string) (*Twilio, error) {
	if accountSID == "" || authToken == "" || fromNumber == "" {
		return nil, errors.New("twilio credentials are not configured")
	}
	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: accountSID,
		Password: authToken,
	})
	return &Twilio{
		client:      client,
		fromNumber:  fromNumber,
		countryCode: countryCode,
	}, nil
}

// Send delivers one SMS to the given enrolled phone number.
func (t *Twilio) Send(phone, body string) error {
	params := &api.CreateMessageParams{}
	params.SetTo(t.countryCode + phone)
	params.SetFrom(t.fromNumber)
	params.SetBody(body)

	if _, err := t.client.Api.CreateMessage(params); err != nil {
		return fmt.Errorf("sending SMS: %w", err)
	}
	return nil
}
