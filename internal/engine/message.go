package engine

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	_ "github.com/emersion/go-message/charset"
	"github.com/emersion/go-message/mail"

	"github.com/nhle/ettsumailer/internal/model"
)

// parseMessage parses a raw RFC 5322 message into the detail view's shape.
// Only the first text/plain and first text/html parts are kept.
func parseMessage(raw []byte) (model.EmailBody, error) {
	mr, err := mail.CreateReader(bytes.NewReader(raw))
	if err != nil {
		return model.EmailBody{}, fmt.Errorf("parsing message: %w", err)
	}
	defer mr.Close()

	h := mr.Header
	body := model.EmailBody{
		From: formatAddresses(h, "From"),
		To:   formatAddresses(h, "To"),
		Cc:   formatAddresses(h, "Cc"),
	}
	if subject, err := h.Subject(); err == nil {
		body.Subject = subject
	} else {
		body.Subject = h.Get("Subject")
	}
	if date, err := h.Date(); err == nil && !date.IsZero() {
		body.Date = date.Format(time.RFC3339)
	} else {
		body.Date = h.Get("Date")
	}

	for body.TextBody == "" || body.HTMLBody == "" {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			// Keep whatever was read before the malformed part.
			break
		}

		inline, ok := part.Header.(*mail.InlineHeader)
		if !ok {
			continue
		}
		contentType, _, _ := inline.ContentType()
		switch {
		case contentType == "text/plain" && body.TextBody == "":
			b, err := io.ReadAll(part.Body)
			if err == nil {
				body.TextBody = string(b)
			}
		case contentType == "text/html" && body.HTMLBody == "":
			b, err := io.ReadAll(part.Body)
			if err == nil {
				body.HTMLBody = string(b)
			}
		}
	}

	return body, nil
}

// formatAddresses renders an address header as "Name <addr>" entries
// joined by ", ". Unparsable headers are returned as they are.
func formatAddresses(h mail.Header, key string) string {
	list, err := h.AddressList(key)
	if err != nil {
		return h.Get(key)
	}

	parts := make([]string, 0, len(list))
	for _, a := range list {
		if a.Name != "" {
			parts = append(parts, fmt.Sprintf("%s <%s>", a.Name, a.Address))
		} else {
			parts = append(parts, a.Address)
		}
	}
	return strings.Join(parts, ", ")
}
