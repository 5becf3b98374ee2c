package mailer

import "context"

// Message is one fully rendered email handed to the transport.
type Message struct {
	ToName    string
	ToAddress string
	FromName  string
	FromAddr  string
	Subject   string
	Body      string
}

// Mailer delivers a single message. Implementations return an error with
// transport detail on failure; the delivery engine records it on the
// recipient and moves on.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}
