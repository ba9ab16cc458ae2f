package notify

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"
)

type fakeNotifier struct {
	err   error
	calls int
}

func (f *fakeNotifier) SendCode(context.Context, string, string) error {
	f.calls++
	return f.err
}

func TestChainStopsAtFirstSuccess(t *testing.T) {
	failing := &fakeNotifier{err: errors.New("down")}
	ok := &fakeNotifier{}
	never := &fakeNotifier{}

	if err := (Chain{failing, ok, never}).SendCode(context.Background(), "a@example.com", "123456"); err != nil {
		t.Fatalf("SendCode: %v", err)
	}
	if failing.calls != 1 || ok.calls != 1 || never.calls != 0 {
		t.Errorf("calls = %d/%d/%d, want 1/1/0", failing.calls, ok.calls, never.calls)
	}
}

func TestChainAllFail(t *testing.T) {
	e1, e2 := errors.New("first"), errors.New("second")
	err := (Chain{&fakeNotifier{err: e1}, &fakeNotifier{err: e2}}).SendCode(context.Background(), "a@example.com", "1")
	if !errors.Is(err, e1) || !errors.Is(err, e2) {
		t.Errorf("error %v should wrap both failures", err)
	}
	if err := (Chain{}).SendCode(context.Background(), "a@example.com", "1"); err == nil {
		t.Error("empty chain should fail")
	}
}

func TestLogNotifier(t *testing.T) {
	var buf bytes.Buffer
	n := LogNotifier{Logger: slog.New(slog.NewTextHandler(&buf, nil))}
	if err := n.SendCode(context.Background(), "a@example.com", "000042"); err != nil {
		t.Fatalf("SendCode: %v", err)
	}
	if !strings.Contains(buf.String(), "code=000042") {
		t.Errorf("log output missing code: %s", buf.String())
	}
}

func TestBody(t *testing.T) {
	got := Body("012345", 15*time.Minute)
	want := "Your verification code is: 012345\nThis code will expire in 15 minutes.\n"
	if got != want {
		t.Errorf("Body = %q, want %q", got, want)
	}
}

func TestNewSMTPNotifierValidation(t *testing.T) {
	if _, err := NewSMTPNotifier(SMTPConfig{}); err == nil {
		t.Error("expected error without host")
	}
	if _, err := NewSMTPNotifier(SMTPConfig{Host: "smtp.example.com", From: "not an address"}); err == nil {
		t.Error("expected error for invalid from address")
	}
	n, err := NewSMTPNotifier(SMTPConfig{Host: "smtp.example.com", Username: "noreply@example.com"})
	if err != nil {
		t.Fatalf("NewSMTPNotifier: %v", err)
	}
	if n.cfg.Port != 587 || n.cfg.From != "noreply@example.com" {
		t.Errorf("defaults not applied: %+v", n.cfg)
	}
}

// fakeSMTP is a minimal plaintext SMTP server that records one message.
type fakeSMTP struct {
	ln   net.Listener
	mu   sync.Mutex
	from string
	rcpt string
	data string
}

func startFakeSMTP(t *testing.T) *fakeSMTP {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	s := &fakeSMTP{ln: ln}
	t.Cleanup(func() { ln.Close() })
	go s.serve()
	return s
}

func (s *fakeSMTP) serve() {
	conn, err := s.ln.Accept()
	if err != nil {
		return
	}
	defer conn.Close()
	r := bufio.NewReader(conn)
	write := func(line string) { conn.Write([]byte(line + "\r\n")) }

	write("220 localhost ESMTP")
	for {
		line, err := r.ReadString('\n')
		if err != nil {
			return
		}
		cmd := strings.TrimRight(line, "\r\n")
		upper := strings.ToUpper(cmd)
		switch {
		case strings.HasPrefix(upper, "EHLO"), strings.HasPrefix(upper, "HELO"):
			write("250-localhost")
			write("250 8BITMIME")
		case strings.HasPrefix(upper, "MAIL FROM:"):
			s.mu.Lock()
			s.from = cmd[len("MAIL FROM:"):]
			s.mu.Unlock()
			write("250 OK")
		case strings.HasPrefix(upper, "RCPT TO:"):
			s.mu.Lock()
			s.rcpt = cmd[len("RCPT TO:"):]
			s.mu.Unlock()
			write("250 OK")
		case upper == "DATA":
			write("354 go ahead")
			var sb strings.Builder
			for {
				l, err := r.ReadString('\n')
				if err != nil {
					return
				}
				if l == ".\r\n" {
					break
				}
				sb.WriteString(l)
			}
			s.mu.Lock()
			s.data = sb.String()
			s.mu.Unlock()
			write("250 queued")
		case upper == "QUIT":
			write("221 bye")
			return
		default:
			write("250 OK")
		}
	}
}

func TestSMTPNotifierSendsCode(t *testing.T) {
	srv := startFakeSMTP(t)
	host, portStr, _ := net.SplitHostPort(srv.ln.Addr().String())
	port, _ := strconv.Atoi(portStr)

	n, err := NewSMTPNotifier(SMTPConfig{Host: host, Port: port, From: "noreply@example.com", FromName: "Arco"})
	if err != nil {
		t.Fatalf("NewSMTPNotifier: %v", err)
	}
	if err := n.SendCode(context.Background(), "alice@example.com", "004217"); err != nil {
		t.Fatalf("SendCode: %v", err)
	}

	srv.mu.Lock()
	defer srv.mu.Unlock()
	if !strings.Contains(srv.from, "noreply@example.com") {
		t.Errorf("MAIL FROM = %q", srv.from)
	}
	if !strings.Contains(srv.rcpt, "alice@example.com") {
		t.Errorf("RCPT TO = %q", srv.rcpt)
	}
	if !strings.Contains(srv.data, "Your verification code is: 004217") {
		t.Errorf("message body missing code:\n%s", srv.data)
	}
	if !strings.Contains(srv.data, "Subject: Your Verification Code") {
		t.Errorf("message missing subject:\n%s", srv.data)
	}
}

func TestSMTPNotifierRejectsBadRecipient(t *testing.T) {
	n, _ := NewSMTPNotifier(SMTPConfig{Host: "127.0.0.1", Port: 1, From: "noreply@example.com"})
	if err := n.SendCode(context.Background(), "not-an-email", "123456"); err == nil {
		t.Error("expected error for invalid recipient")
	}
}

func TestSMTPNotifierDialFailure(t *testing.T) {
	ln, _ := net.Listen("tcp", "127.0.0.1:0")
	addr := ln.Addr().(*net.TCPAddr)
	ln.Close()

	n, _ := NewSMTPNotifier(SMTPConfig{Host: "127.0.0.1", Port: addr.Port, From: "noreply@example.com", Timeout: time.Second})
	if err := n.SendCode(context.Background(), "a@example.com", "123456"); err == nil {
		t.Error("expected dial error")
	}
}
