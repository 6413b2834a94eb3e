package email

// Message is a plain notification email.
type Message struct {
	ToName    string
	ToAddress string
	Subject   string
	TextBody  string
	HTMLBody  string
}

// Sender delivers a single message. Implementations must be safe for
// concurrent use; delivery failures are reported to the caller and never
// retried here.
type Sender interface {
	Send(msg Message) error
}
