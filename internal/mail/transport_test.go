package mail

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/gomail.v2"

	"github.com/Avisafety/avisafe-sub001/internal/common/config"
	"github.com/Avisafety/avisafe-sub001/internal/common/logger"
)

func testEnvelope() Envelope {
	return Envelope{
		From:     "varsel@avisafe.no",
		FromName: "AviSafe",
		To:       "kari@fjellfly.no",
		Subject:  "Operasjonsmanual utløper snart",
		HTML:     "<p>Operasjonsmanual</p>",
	}
}

// ==========================
// SMTP
// ==========================

type fakeSendCloser struct {
	from   string
	to     []string
	body   bytes.Buffer
	err    error
	closed bool
}

func (f *fakeSendCloser) Send(from string, to []string, msg io.WriterTo) error {
	if f.err != nil {
		return f.err
	}
	f.from, f.to = from, to
	_, err := msg.WriteTo(&f.body)
	return err
}

func (f *fakeSendCloser) Close() error {
	f.closed = true
	return nil
}

func TestSMTPTransport_Send(t *testing.T) {
	conn := &fakeSendCloser{}
	tr := NewSMTPTransport(config.SMTPConfig{Host: "smtp.avisafe.no", Port: 587})
	tr.dial = func() (gomail.SendCloser, error) { return conn, nil }

	id, err := tr.Send(context.Background(), testEnvelope())

	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(id, "<"))
	assert.True(t, strings.HasSuffix(id, ".kari@smtp.avisafe.no>"))
	assert.Equal(t, "varsel@avisafe.no", conn.from)
	assert.Equal(t, []string{"kari@fjellfly.no"}, conn.to)
	assert.True(t, conn.closed)

	raw := conn.body.String()
	assert.Contains(t, raw, "Message-ID: "+id)
	assert.Contains(t, raw, "Content-Type: text/html; charset=UTF-8")
	assert.Contains(t, raw, "<p>Operasjonsmanual</p>")
}

func TestSMTPTransport_Errors(t *testing.T) {
	t.Run("dial", func(t *testing.T) {
		tr := NewSMTPTransport(config.SMTPConfig{Host: "smtp.avisafe.no", Port: 587})
		tr.dial = func() (gomail.SendCloser, error) { return nil, stderrors.New("connection refused") }

		_, err := tr.Send(context.Background(), testEnvelope())
		assert.ErrorContains(t, err, "connection refused")
	})

	t.Run("send", func(t *testing.T) {
		conn := &fakeSendCloser{err: stderrors.New("550 no such user")}
		tr := NewSMTPTransport(config.SMTPConfig{Host: "smtp.avisafe.no", Port: 587})
		tr.dial = func() (gomail.SendCloser, error) { return conn, nil }

		_, err := tr.Send(context.Background(), testEnvelope())
		assert.ErrorContains(t, err, "550")
		assert.True(t, conn.closed)
	})

	t.Run("cancelled context", func(t *testing.T) {
		tr := NewSMTPTransport(config.SMTPConfig{Host: "smtp.avisafe.no", Port: 587})
		tr.dial = func() (gomail.SendCloser, error) {
			t.Fatal("dial must not be called")
			return nil, nil
		}
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := tr.Send(ctx, testEnvelope())
		assert.ErrorIs(t, err, context.Canceled)
	})
}

// silentRelay accepts connections and never sends the SMTP greeting.
func silentRelay(t *testing.T) *net.TCPAddr {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	var (
		mu    sync.Mutex
		conns []net.Conn
	)
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			mu.Lock()
			conns = append(conns, conn)
			mu.Unlock()
		}
	}()
	t.Cleanup(func() {
		ln.Close()
		mu.Lock()
		defer mu.Unlock()
		for _, c := range conns {
			c.Close()
		}
	})
	return ln.Addr().(*net.TCPAddr)
}

func TestSMTPTransport_StalledRelay(t *testing.T) {
	addr := silentRelay(t)
	tr := NewSMTPTransport(config.SMTPConfig{
		Host:     addr.IP.String(),
		Port:     addr.Port,
		Username: "varsel@avisafe.no",
		Password: "secret",
	})

	t.Run("transport honours the context", func(t *testing.T) {
		ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
		defer cancel()

		start := time.Now()
		_, err := tr.Send(ctx, testEnvelope())

		require.Error(t, err)
		assert.ErrorIs(t, err, context.DeadlineExceeded)
		assert.Less(t, time.Since(start), 2*time.Second)
	})

	t.Run("dispatcher timeout bounds the send", func(t *testing.T) {
		d := NewDispatcher(tr, "varsel@avisafe.no", "AviSafe", logger.NewNoOpLogger(), WithTimeout(200*time.Millisecond))

		start := time.Now()
		out := d.Send(context.Background(), "kari@fjellfly.no", "Emne", "<p>Body</p>")

		assert.Equal(t, StatusFailed, out.Status)
		assert.Less(t, time.Since(start), 2*time.Second)
	})
}

func TestSanitizeLocalPart(t *testing.T) {
	assert.Equal(t, "karinordma", sanitizeLocalPart("kari.nordmann@fjellfly.no"))
	assert.Equal(t, "user", sanitizeLocalPart("@fjellfly.no"))
}

// ==========================
// SES
// ==========================

type MockSESService struct {
	SendEmailFunc func(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

func (m *MockSESService) SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error) {
	return m.SendEmailFunc(ctx, params, optFns...)
}

func TestSESTransport_Send(t *testing.T) {
	var captured *ses.SendEmailInput
	tr := NewSESTransport(&MockSESService{
		SendEmailFunc: func(_ context.Context, params *ses.SendEmailInput, _ ...func(*ses.Options)) (*ses.SendEmailOutput, error) {
			captured = params
			return &ses.SendEmailOutput{MessageId: aws.String("ses-123")}, nil
		},
	})

	id, err := tr.Send(context.Background(), testEnvelope())

	require.NoError(t, err)
	assert.Equal(t, "ses-123", id)
	assert.Equal(t, `"AviSafe" <varsel@avisafe.no>`, aws.ToString(captured.Source))
	assert.Equal(t, []string{"kari@fjellfly.no"}, captured.Destination.ToAddresses)
	assert.Equal(t, "Operasjonsmanual utløper snart", aws.ToString(captured.Message.Subject.Data))
	assert.Equal(t, "<p>Operasjonsmanual</p>", aws.ToString(captured.Message.Body.Html.Data))
}

func TestSESTransport_Error(t *testing.T) {
	tr := NewSESTransport(&MockSESService{
		SendEmailFunc: func(context.Context, *ses.SendEmailInput, ...func(*ses.Options)) (*ses.SendEmailOutput, error) {
			return nil, stderrors.New("MessageRejected")
		},
	})

	_, err := tr.Send(context.Background(), testEnvelope())
	assert.ErrorContains(t, err, "MessageRejected")
}

// ==========================
// Resend
// ==========================

func TestResendTransport_Send(t *testing.T) {
	var (
		payload        map[string]interface{}
		idempotencyKey string
		auth           string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/emails", r.URL.Path)
		auth = r.Header.Get("Authorization")
		idempotencyKey = r.Header.Get("Idempotency-Key")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"re_123"}`))
	}))
	defer srv.Close()

	tr := NewResendTransport("re_test_key")
	tr.client.BaseURL, _ = url.Parse(srv.URL + "/")

	env := testEnvelope()
	env.IdempotencyKey = "notify:doc-1:user-1:2025-03-01"
	id, err := tr.Send(context.Background(), env)

	require.NoError(t, err)
	assert.Equal(t, "re_123", id)
	assert.Equal(t, "Bearer re_test_key", auth)
	assert.Equal(t, "notify:doc-1:user-1:2025-03-01", idempotencyKey)
	assert.Equal(t, "<p>Operasjonsmanual</p>", payload["html"])
	assert.Equal(t, []interface{}{"kari@fjellfly.no"}, payload["to"])
}

func TestResendTransport_Error(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"statusCode":422,"name":"validation_error","message":"Invalid to field"}`))
	}))
	defer srv.Close()

	tr := NewResendTransport("re_test_key")
	tr.client.BaseURL, _ = url.Parse(srv.URL + "/")

	_, err := tr.Send(context.Background(), testEnvelope())
	assert.Error(t, err)
}

// ==========================
// Mailgun
// ==========================

func TestMailgunTransport_Send(t *testing.T) {
	var to, html string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v3/mg.avisafe.no/messages", r.URL.Path)
		to, html = r.FormValue("to"), r.FormValue("html")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"<20250301.1@mg.avisafe.no>","message":"Queued. Thank you."}`))
	}))
	defer srv.Close()

	tr := NewMailgunTransport(config.MailgunConfig{
		Domain:  "mg.avisafe.no",
		APIKey:  "key-test",
		BaseURL: srv.URL + "/v3",
	})

	id, err := tr.Send(context.Background(), testEnvelope())

	require.NoError(t, err)
	assert.Equal(t, "<20250301.1@mg.avisafe.no>", id)
	assert.Equal(t, "kari@fjellfly.no", to)
	assert.Equal(t, "<p>Operasjonsmanual</p>", html)
}

func TestNewTransport(t *testing.T) {
	tr, err := NewTransport(context.Background(), config.MailConfig{Provider: config.ProviderSMTP}, "eu-north-1")
	require.NoError(t, err)
	assert.Equal(t, "smtp", tr.Name())

	tr, err = NewTransport(context.Background(), config.MailConfig{Provider: config.ProviderResend}, "eu-north-1")
	require.NoError(t, err)
	assert.Equal(t, "resend", tr.Name())

	_, err = NewTransport(context.Background(), config.MailConfig{Provider: "pigeon"}, "eu-north-1")
	assert.Error(t, err)
}
