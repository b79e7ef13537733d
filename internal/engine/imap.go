package engine

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/emersion/go-imap/v2"
	"github.com/emersion/go-imap/v2/imapclient"
	"github.com/emersion/go-sasl"
	"github.com/rs/zerolog/log"

	"github.com/nhle/ettsumailer/internal/model"
)

// ErrNoIMAPHost is returned when the IMAP profile has no host.
var ErrNoIMAPHost = errors.New("IMAP host is not configured.")

const (
	defaultMailbox = "INBOX"
	defaultLimit   = 30
	startTLSPort   = 143
)

// IMAPMailer implements Mailer with go-imap. Each call opens its own
// connection and logs out when done.
type IMAPMailer struct {
	// Mailbox is the mailbox to read, INBOX when empty.
	Mailbox string
	// Limit is the number of most recent messages listed.
	Limit int
	// DialTimeout bounds connecting and the TLS handshake.
	DialTimeout time.Duration
	// Resolve turns a password_command into a password.
	Resolve func(ctx context.Context, ref string) (string, error)

	// dial is replaced in tests to reach a plaintext server.
	dial func(ctx context.Context, p model.Profile) (*imapclient.Client, error)
}

var _ Mailer = (*IMAPMailer)(nil)

// FetchEmails lists the newest messages of the mailbox, newest first.
func (m *IMAPMailer) FetchEmails(ctx context.Context, p model.Profile) ([]model.EmailSummary, error) {
	client, err := m.connect(ctx, p)
	if err != nil {
		return nil, err
	}
	defer func() { _ = client.Logout().Wait() }()

	mailbox := m.mailbox()
	sel, err := client.Select(mailbox, &imap.SelectOptions{ReadOnly: true}).Wait()
	if err != nil {
		return nil, fmt.Errorf("selecting %s: %w", mailbox, err)
	}

	summaries := []model.EmailSummary{}
	total := sel.NumMessages
	if total == 0 {
		return summaries, nil
	}

	limit := uint32(m.Limit)
	if limit == 0 {
		limit = defaultLimit
	}
	start := uint32(1)
	if total > limit {
		start = total - limit + 1
	}

	var seqSet imap.SeqSet
	seqSet.AddRange(start, total)

	msgs, err := client.Fetch(seqSet, &imap.FetchOptions{
		Envelope: true,
		Flags:    true,
		UID:      true,
	}).Collect()
	if err != nil {
		return nil, fmt.Errorf("fetching envelopes: %w", err)
	}

	// Sequence order is oldest first.
	for i := len(msgs) - 1; i >= 0; i-- {
		summaries = append(summaries, summaryFromBuffer(msgs[i]))
	}

	log.Debug().Str("module", "engine").Str("mailbox", mailbox).
		Uint32("total", total).Int("listed", len(summaries)).Msg("Listed messages")
	return summaries, nil
}

// FetchEmailBody fetches and parses one message by UID. The \Seen flag
// is left untouched.
func (m *IMAPMailer) FetchEmailBody(ctx context.Context, p model.Profile, uid uint32) (model.EmailBody, error) {
	client, err := m.connect(ctx, p)
	if err != nil {
		return model.EmailBody{}, err
	}
	defer func() { _ = client.Logout().Wait() }()

	mailbox := m.mailbox()
	if _, err := client.Select(mailbox, &imap.SelectOptions{ReadOnly: true}).Wait(); err != nil {
		return model.EmailBody{}, fmt.Errorf("selecting %s: %w", mailbox, err)
	}

	bodySection := &imap.FetchItemBodySection{Peek: true}
	msgs, err := client.Fetch(imap.UIDSetNum(imap.UID(uid)), &imap.FetchOptions{
		UID:         true,
		BodySection: []*imap.FetchItemBodySection{bodySection},
	}).Collect()
	if err != nil {
		return model.EmailBody{}, fmt.Errorf("fetching message UID %d: %w", uid, err)
	}
	if len(msgs) == 0 {
		return model.EmailBody{}, fmt.Errorf("No message found for UID %d", uid)
	}

	raw := msgs[0].FindBodySection(bodySection)
	if raw == nil {
		return model.EmailBody{}, fmt.Errorf("No message found for UID %d", uid)
	}
	return parseMessage(raw)
}

func (m *IMAPMailer) mailbox() string {
	if m.Mailbox == "" {
		return defaultMailbox
	}
	return m.Mailbox
}

// connect dials the server and authenticates, preferring SASL PLAIN when
// the server advertises it.
func (m *IMAPMailer) connect(ctx context.Context, p model.Profile) (*imapclient.Client, error) {
	if p.Host == "" {
		return nil, ErrNoIMAPHost
	}

	password, err := m.Resolve(ctx, p.PasswordCommand)
	if err != nil {
		return nil, err
	}

	dial := m.dial
	if dial == nil {
		dial = m.dialServer
	}
	client, err := dial(ctx, p)
	if err != nil {
		return nil, err
	}

	if client.Caps().Has(imap.AuthCap(sasl.Plain)) {
		err = client.Authenticate(sasl.NewPlainClient("", p.Username, password))
	} else {
		err = client.Login(p.Username, password).Wait()
	}
	if err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("authentication failed for %s: %w", p.Username, err)
	}

	return client, nil
}

// dialServer uses implicit TLS, or STARTTLS on port 143.
func (m *IMAPMailer) dialServer(ctx context.Context, p model.Profile) (*imapclient.Client, error) {
	addr := net.JoinHostPort(p.Host, strconv.Itoa(p.Port))
	dialer := &net.Dialer{Timeout: m.DialTimeout}
	tlsConfig := &tls.Config{ServerName: p.Host}

	if p.Port == startTLSPort {
		conn, err := dialer.DialContext(ctx, "tcp", addr)
		if err != nil {
			return nil, fmt.Errorf("connecting to IMAP %s: %w", addr, err)
		}
		client, err := imapclient.NewStartTLS(conn, &imapclient.Options{TLSConfig: tlsConfig})
		if err != nil {
			conn.Close()
			return nil, fmt.Errorf("starting TLS with %s: %w", addr, err)
		}
		return client, nil
	}

	conn, err := (&tls.Dialer{NetDialer: dialer, Config: tlsConfig}).DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("connecting to IMAP %s: %w", addr, err)
	}
	return imapclient.New(conn, nil), nil
}

// summaryFromBuffer converts fetched envelope data into a list row.
func summaryFromBuffer(buf *imapclient.FetchMessageBuffer) model.EmailSummary {
	s := model.EmailSummary{
		UID:     uint32(buf.UID),
		From:    "(unknown sender)",
		Subject: "(no subject)",
		Unread:  true,
	}

	if env := buf.Envelope; env != nil {
		if env.Subject != "" {
			s.Subject = env.Subject
		}
		if len(env.From) > 0 {
			if addr := env.From[0].Addr(); addr != "" {
				s.From = addr
			}
		}
		if !env.Date.IsZero() {
			s.Date = env.Date.Format(time.RFC3339)
		}
	}

	for _, flag := range buf.Flags {
		if flag == imap.FlagSeen {
			s.Unread = false
		}
	}

	return s
}
