package notify

import (
	"fmt"

	"github.com/gregdel/pushover"
	"github.com/sirupsen/logrus"
)

const (
	PriorityNormal = 0
	PriorityHigh   = 1
)

type Notifier struct {
	app       *pushover.Pushover
	recipient *pushover.Recipient
	logger    *logrus.Logger
}

func NewNotifier(token, userKey string, logger *logrus.Logger) *Notifier {
	return &Notifier{
		app:       pushover.New(token),
		recipient: pushover.NewRecipient(userKey),
		logger:    logger,
	}
}

func (n *Notifier) Send(title, message string) error {
	return n.SendWithPriority(title, message, PriorityNormal)
}

func (n *Notifier) SendWithPriority(title, message string, priority int) error {
	msg := pushover.NewMessageWithTitle(message, title)
	msg.Priority = priority

	resp, err := n.app.SendMessage(msg, n.recipient)
	if err != nil {
		return fmt.Errorf("sending pushover notification: %w", err)
	}

	n.logger.WithFields(logrus.Fields{
		"title":      title,
		"status":     resp.Status,
		"request_id": resp.ID,
	}).Debug("notification sent")

	return nil
}

// SendShapeChanged reports a source whose page or response no longer matches
// what its adapter expects.
func (n *Notifier) SendShapeChanged(source, route, detail string) error {
	title := "Scraper Needs Updating"
	body := fmt.Sprintf("Source %s no longer matches its expected layout.\nRoute: %s\n%s", source, route, detail)
	return n.SendWithPriority(title, body, PriorityHigh)
}

func (n *Notifier) SendSourceFailing(source, route, kind, detail string) error {
	title := "Source Failing"
	body := fmt.Sprintf("Source %s is failing (%s).\nRoute: %s\n%s", source, kind, route, detail)
	return n.SendWithPriority(title, body, PriorityHigh)
}

func (n *Notifier) SendSourceRecovered(source, route string, journeys int) error {
	title := "Source Recovered"
	body := fmt.Sprintf("Source %s is answering again.\nRoute: %s, %d journeys", source, route, journeys)
	return n.Send(title, body)
}

// Discard drops every alert. It stands in when no pushover credentials are
// configured.
type Discard struct {
	Logger *logrus.Logger
}

func (d Discard) SendShapeChanged(source, route, detail string) error {
	d.log("shape_changed", source, route)
	return nil
}

func (d Discard) SendSourceFailing(source, route, kind, detail string) error {
	d.log(kind, source, route)
	return nil
}

func (d Discard) SendSourceRecovered(source, route string, journeys int) error {
	d.log("recovered", source, route)
	return nil
}

func (d Discard) log(event, source, route string) {
	if d.Logger == nil {
		return
	}
	d.Logger.WithFields(logrus.Fields{
		"event":  event,
		"source": source,
		"route":  route,
	}).Debug("alert not sent, notifier disabled")
}
