package mail

import (
	"context"
	"crypto/tls"
	"errors"
	"io"
	"net"
	"net/smtp"
	"strings"
	"testing"
)

type fakeClient struct {
	from    string
	rcpts   []string
	data    strings.Builder
	quitted bool
}

func (f *fakeClient) Mail(from string) error { f.from = from; return nil }
func (f *fakeClient) Rcpt(to string) error   { f.rcpts = append(f.rcpts, to); return nil }
func (f *fakeClient) Data() (io.WriteCloser, error) {
	return nopWriteCloser{&f.data}, nil
}
func (f *fakeClient) Quit() error                     { f.quitted = true; return nil }
func (f *fakeClient) Close() error                    { return nil }
func (f *fakeClient) StartTLS(*tls.Config) error      { return nil }
func (f *fakeClient) Auth(smtp.Auth) error            { return nil }
func (f *fakeClient) Extension(string) (bool, string) { return false, "" }

type nopWriteCloser struct{ io.Writer }

func (nopWriteCloser) Close() error { return nil }

func newTestMailer(client smtpClient) *smtpMailer {
	server, _ := net.Pipe()
	return &smtpMailer{
		cfg: Settings{Enabled: true, Host: "smtp.test", Port: 587, From: "noreply@ascend.test"},
		dialFn: func(context.Context, Settings) (net.Conn, smtpClient, error) {
			return server, client, nil
		},
		authFn: func(smtpClient, Settings) error { return nil },
	}
}

func TestSendFormatsHTMLMessage(t *testing.T) {
	client := &fakeClient{}
	mailer := newTestMailer(client)

	err := mailer.Send(context.Background(), Message{
		To:      "user@example.com",
		Subject: "Verify your email",
		Body:    "<p>Welcome</p>",
	})
	if err != nil {
		t.Fatalf("send: %v", err)
	}

	if client.from != "noreply@ascend.test" {
		t.Errorf("from = %q", client.from)
	}
	if len(client.rcpts) != 1 || client.rcpts[0] != "user@example.com" {
		t.Errorf("rcpts = %v", client.rcpts)
	}
	body := client.data.String()
	if !strings.Contains(body, "Content-Type: text/html") {
		t.Errorf("missing html content type in %q", body)
	}
	if !strings.Contains(body, "<p>Welcome</p>") {
		t.Errorf("missing body in %q", body)
	}
	if !client.quitted {
		t.Error("expected QUIT after delivery")
	}
}

func TestSendDisabled(t *testing.T) {
	mailer, err := NewSMTPMailer(Settings{Enabled: false})
	if err != nil {
		t.Fatalf("new mailer: %v", err)
	}

	err = mailer.Send(context.Background(), Message{To: "user@example.com"})
	if !errors.Is(err, ErrDeliveryDisabled) {
		t.Fatalf("expected ErrDeliveryDisabled, got %v", err)
	}
}

func TestSendRejectsInvalidRecipient(t *testing.T) {
	mailer := newTestMailer(&fakeClient{})

	if err := mailer.Send(context.Background(), Message{To: "not-an-address"}); err == nil {
		t.Fatal("expected error for invalid recipient")
	}
}

func TestNewSMTPMailerRequiresHost(t *testing.T) {
	if _, err := NewSMTPMailer(Settings{Enabled: true, Port: 587}); err == nil {
		t.Fatal("expected error when host missing")
	}
}
