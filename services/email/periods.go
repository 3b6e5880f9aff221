package emailsvc

import (
	"context"
	"net/mail"

	"github.com/raulpleon95-ctrl/SECUNDARIA/core"
	"github.com/raulpleon95-ctrl/SECUNDARIA/core/period"
	"github.com/raulpleon95-ctrl/SECUNDARIA/core/school"
)

const displayLayout = "02/01/2006 15:04"

type closedPeriod struct {
	Label    string
	Deadline string
}

type periodsClosedData struct {
	School   string
	Periods  []closedPeriod
	ClosedAt string
}

// PeriodsClosedNotifier returns a period.Controller OnClose hook e-mailing `to`.
// It returns nil when there is nobody to notify.
func PeriodsClosedNotifier(svc core.EmailService, to []mail.Address) func(context.Context, period.ClosedEvent) {
	if len(to) == 0 {
		return nil
	}
	return func(_ context.Context, ev period.ClosedEvent) {
		svc.SendMessages(PeriodsClosedMessage(ev, to))
	}
}

// PeriodsClosedMessage builds the "periods_closed" message of `ev`.
func PeriodsClosedMessage(ev period.ClosedEvent, to []mail.Address) *core.EmailMessage {
	data := periodsClosedData{School: ev.School, ClosedAt: ev.At.Format(displayLayout)}
	for _, key := range ev.Periods {
		deadline := ev.Deadlines[key]
		if t, err := school.ParseDeadline(deadline); err == nil {
			deadline = t.Format(displayLayout)
		}
		data.Periods = append(data.Periods, closedPeriod{Label: key.Label(), Deadline: deadline})
	}
	return &core.EmailMessage{
		To:           to,
		Subject:      "Periodos de captura cerrados",
		TemplateName: "periods_closed",
		TemplateData: data,
	}
}
