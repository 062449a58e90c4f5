package emailsvc

import (
	"fmt"
	"net/mail"
	"strings"
	"sync"
	"time"

	"github.com/shule-app/shule/core"
)

// ConsoleService writes outgoing mail to the logger and records every
// sent message, which tests inspect.
type ConsoleService struct {
	log           core.Logger
	subjPrefix    string
	disableOutput bool
	sync          bool

	mutex sync.Mutex
	sent  []core.EmailMessage
}

var _ core.EmailService = (*ConsoleService)(nil)

func NewConsoleService(conf *core.Config, log core.Logger) *ConsoleService {
	return &ConsoleService{
		log:        log,
		subjPrefix: "[" + conf.AppName + "] ",
	}
}

// NewConsoleServiceMock sends synchronously and silently; for tests.
func NewConsoleServiceMock(conf *core.Config, log core.Logger) *ConsoleService {
	svc := NewConsoleService(conf, log)
	svc.disableOutput = true
	svc.sync = true
	return svc
}

func (svc *ConsoleService) SendMessages(messages ...*core.EmailMessage) {
	for _, msg := range messages {
		if svc.sync {
			svc.sendMessage(msg)
		} else {
			go svc.sendMessage(msg)
		}
	}
}

func (svc *ConsoleService) sendMessage(msg *core.EmailMessage) {
	if !msg.HasRecipients() || !msg.HasContent() {
		return
	}
	if !svc.disableOutput {
		body := new(strings.Builder)
		_, _ = fmt.Fprintf(body, "Date: %s\r\n", time.Now().Format(time.RFC1123Z))
		_, _ = fmt.Fprintf(body, "Subject: %s\r\n", svc.subjPrefix+msg.Subject)
		_, _ = fmt.Fprintf(body, "To: %s\r\n\r\n", joinAddresses(msg.To))
		_, _ = fmt.Fprintf(body, "%s\r\n", msg.TextContent)
		svc.log.Info(body.String())
	}
	svc.mutex.Lock()
	svc.sent = append(svc.sent, *msg)
	svc.mutex.Unlock()
}

// Sent returns a copy of every message sent so far.
func (svc *ConsoleService) Sent() []core.EmailMessage {
	svc.mutex.Lock()
	defer svc.mutex.Unlock()
	return append([]core.EmailMessage(nil), svc.sent...)
}

func joinAddresses(addrs []mail.Address) string {
	toJoin := make([]string, 0, len(addrs))
	for _, a := range addrs {
		toJoin = append(toJoin, a.String())
	}
	return strings.Join(toJoin, ", ")
}
