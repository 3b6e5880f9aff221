package emailsvc

import (
	"context"
	"net/mail"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raulpleon95-ctrl/SECUNDARIA/assets"
	"github.com/raulpleon95-ctrl/SECUNDARIA/core"
	"github.com/raulpleon95-ctrl/SECUNDARIA/core/period"
	"github.com/raulpleon95-ctrl/SECUNDARIA/core/school"
	testutil "github.com/raulpleon95-ctrl/SECUNDARIA/tests"
)

func newMock(t *testing.T) *ConsoleService {
	t.Helper()
	conf := testutil.NewConfig()
	tmpls, err := core.NewEmailTemplates(assets.Templates, assets.EmailTemplatesDir, conf.FrontendBaseURL, true)
	require.NoError(t, err)
	return NewConsoleServiceMock(conf, tmpls, &testutil.Logger{})
}

func TestPeriodsClosedNotifier(t *testing.T) {
	svc := newMock(t)
	to := []mail.Address{{Name: "Dirección", Address: "direccion@example.com"}}

	assert.Nil(t, PeriodsClosedNotifier(svc, nil))

	notify := PeriodsClosedNotifier(svc, to)
	require.NotNil(t, notify)
	notify(context.Background(), period.ClosedEvent{
		School:    "Secundaria 27",
		Periods:   []school.Period{school.Inter1, school.Trim1},
		Deadlines: map[school.Period]string{school.Inter1: "2025-01-01T10:00", school.Trim1: "mañana"},
		At:        time.Date(2025, 1, 1, 10, 0, 5, 0, time.UTC),
	})

	sent := svc.SentMessages()
	require.Len(t, sent, 1)
	msg := sent[0]
	assert.Equal(t, to, msg.To)
	assert.Contains(t, msg.TextContent, "Secundaria 27")
	assert.Contains(t, msg.TextContent, "- Intermedio 1 (fecha límite: 01/01/2025 10:00)")
	assert.Contains(t, msg.TextContent, "- Trimestre 1 (fecha límite: mañana)")
	assert.Contains(t, msg.TextContent, "Cerrado el 01/01/2025 10:00.")
	assert.Contains(t, msg.HTMLContent, "<li>Intermedio 1 (fecha límite: 01/01/2025 10:00)</li>")
	assert.Contains(t, msg.HTMLContent, "<strong>Secundaria 27</strong>")
}

func TestConsoleService_SkipsEmptyMessages(t *testing.T) {
	svc := newMock(t)
	svc.SendMessages(
		&core.EmailMessage{Subject: "sin destinatarios", BodyStr: "hola"},
		&core.EmailMessage{To: []mail.Address{{Address: "a@example.com"}}, Subject: "sin contenido"},
		&core.EmailMessage{To: []mail.Address{{Address: "a@example.com"}}, Subject: "ok", BodyStr: "hola"},
	)
	sent := svc.SentMessages()
	require.Len(t, sent, 1)
	assert.Equal(t, "ok", sent[0].Subject)

	out := svc.format(sent[0])
	assert.Contains(t, out, "Subject: [Secundaria] ok\r\n")
	assert.Contains(t, out, "To: <a@example.com>\r\n")
	assert.Contains(t, out, "hola")
}

func TestSendgridPrepare(t *testing.T) {
	conf := testutil.NewConfig()
	svc := NewSendgridService(conf, nil, &testutil.Logger{}).(*sendgridService)
	m := svc.prepare(core.EmailMessage{
		To:          []mail.Address{{Name: "Dirección", Address: "direccion@example.com"}},
		Subject:     "Hola",
		TextContent: "texto",
	})
	require.Len(t, m.Personalizations, 1)
	assert.Equal(t, "[Secundaria] Hola", m.Personalizations[0].Subject)
	require.Len(t, m.Content, 1)
	assert.Equal(t, "text/plain", m.Content[0].Type)
}
