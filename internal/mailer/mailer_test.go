package mailer

import (
	"bufio"
	"bytes"
	"context"
	"net"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/segyhp/circulation-engine/pkg/logger"
)

func TestRender(t *testing.T) {
	msg, err := Render(KindOverdue, Recipient{Name: "Ana", Email: "ana@example.com"}, map[string]any{
		"Title":    "Dom Casmurro",
		"DaysLate": 3,
		"DueDate":  "10/03/2024",
		"Fine":     "6.00",
	})
	require.NoError(t, err)

	assert.Equal(t, `Overdue loan: "Dom Casmurro"`, msg.Subject)
	assert.Contains(t, msg.HTML, "Hello, Ana!")
	assert.Contains(t, msg.HTML, "3 day(s) late")
	assert.Contains(t, msg.HTML, "R$ 6.00")
}

func TestRender_EscapesHTML(t *testing.T) {
	msg, err := Render(KindReservationAvailable, Recipient{Name: "<script>"}, map[string]any{"Title": "A & B"})
	require.NoError(t, err)

	assert.NotContains(t, msg.HTML, "<script>")
	assert.Contains(t, msg.HTML, "A &amp; B")
}

func TestRender_UnknownKind(t *testing.T) {
	_, err := Render("birthday", Recipient{}, nil)
	assert.Error(t, err)
}

func TestLogMailer(t *testing.T) {
	var buf bytes.Buffer
	m := NewLogMailer(logger.NewWithWriter(&buf, "info", "json"))

	err := m.Send(context.Background(), KindDueSoon, Recipient{Name: "Ana", Email: "ana@example.com"}, map[string]any{
		"Title": "Iracema", "DueDate": "01/04/2024", "DaysLeft": 2,
	})
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "ana@example.com")
}

// fakeSMTP accepts one session and records the DATA section.
type fakeSMTP struct {
	ln   net.Listener
	mu   sync.Mutex
	data string
	rcpt string
	done chan struct{}
}

func newFakeSMTP(t *testing.T) *fakeSMTP {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	f := &fakeSMTP{ln: ln, done: make(chan struct{})}
	go f.serve()
	t.Cleanup(func() { ln.Close() })
	return f
}

func (f *fakeSMTP) port() int {
	return f.ln.Addr().(*net.TCPAddr).Port
}

func (f *fakeSMTP) serve() {
	defer close(f.done)
	conn, err := f.ln.Accept()
	if err != nil {
		return
	}
	defer conn.Close()

	r := bufio.NewReader(conn)
	write := func(s string) { _, _ = conn.Write([]byte(s + "\r\n")) }
	write("220 localhost ESMTP")

	for {
		line, err := r.ReadString('\n')
		if err != nil {
			return
		}
		cmd := strings.ToUpper(strings.TrimSpace(line))
		switch {
		case strings.HasPrefix(cmd, "EHLO"), strings.HasPrefix(cmd, "HELO"):
			write("250-localhost")
			write("250 8BITMIME")
		case strings.HasPrefix(cmd, "MAIL FROM"):
			write("250 OK")
		case strings.HasPrefix(cmd, "RCPT TO"):
			f.mu.Lock()
			f.rcpt = strings.TrimSpace(line)
			f.mu.Unlock()
			write("250 OK")
		case cmd == "DATA":
			write("354 go ahead")
			var body strings.Builder
			for {
				l, err := r.ReadString('\n')
				if err != nil {
					return
				}
				if l == ".\r\n" {
					break
				}
				body.WriteString(l)
			}
			f.mu.Lock()
			f.data = body.String()
			f.mu.Unlock()
			write("250 queued")
		case cmd == "QUIT":
			write("221 bye")
			return
		default:
			write("250 OK")
		}
	}
}

func TestSMTPMailer_Send(t *testing.T) {
	srv := newFakeSMTP(t)
	m := NewSMTPMailer(SMTPConfig{
		Host:    "127.0.0.1",
		Port:    srv.port(),
		From:    "library@example.com",
		Timeout: 2 * time.Second,
	})

	err := m.Send(context.Background(), KindReservationAvailable, Recipient{Name: "Ana", Email: "ana@example.com"}, map[string]any{
		"Title":     "O Cortiço",
		"ExpiresAt": "22/03/2024 10:00",
	})
	require.NoError(t, err)
	<-srv.done

	srv.mu.Lock()
	defer srv.mu.Unlock()
	assert.Contains(t, srv.rcpt, "ana@example.com")
	assert.Contains(t, srv.data, "Content-Type: text/html")
	assert.Contains(t, srv.data, "22/03/2024 10:00")
}

func TestSMTPMailer_DialFailure(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := ln.Addr().(*net.TCPAddr).Port
	ln.Close()

	m := NewSMTPMailer(SMTPConfig{Host: "127.0.0.1", Port: port, From: "x@example.com", Timeout: time.Second})
	err = m.Send(context.Background(), KindDueSoon, Recipient{Email: "ana@example.com"}, map[string]any{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "dial smtp 127.0.0.1:"+strconv.Itoa(port))
}

func TestSMTPMailer_RequiresRecipient(t *testing.T) {
	m := NewSMTPMailer(SMTPConfig{Host: "127.0.0.1", Port: 25})
	assert.Error(t, m.Send(context.Background(), KindDueSoon, Recipient{}, nil))
}
