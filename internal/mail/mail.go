// Package mail sends plain-text messages through a pluggable transport.
package mail

import (
	"context"
	"encoding/base64"
	"fmt"
	"mime"
	"net/mail"
	"strings"
	"time"
)

// Transport delivers a single message. Implementations make one attempt
// and report failure; callers decide what a failure means.
type Transport interface {
	Send(ctx context.Context, to, subject, body string) error
}

// Sender is the From identity of outgoing mail.
type Sender struct {
	Name    string
	Address string
}

func (s Sender) String() string {
	a := mail.Address{Name: s.Name, Address: s.Address}
	return a.String()
}

// buildMessage renders an RFC 2822 text/plain UTF-8 message.
func buildMessage(from Sender, to, subject, body string, now time.Time) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", from.String())
	fmt.Fprintf(&b, "To: %s\r\n", to)
	fmt.Fprintf(&b, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", subject))
	fmt.Fprintf(&b, "Date: %s\r\n", now.Format(time.RFC1123Z))
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=utf-8\r\n")
	b.WriteString("Content-Transfer-Encoding: base64\r\n")
	b.WriteString("\r\n")
	encoded := base64.StdEncoding.EncodeToString([]byte(body))
	for len(encoded) > 76 {
		b.WriteString(encoded[:76])
		b.WriteString("\r\n")
		encoded = encoded[76:]
	}
	b.WriteString(encoded)
	b.WriteString("\r\n")
	return []byte(b.String())
}

// validAddress rejects recipients that cannot be parsed.
func validAddress(to string) error {
	if _, err := mail.ParseAddress(to); err != nil {
		return fmt.Errorf("invalid recipient %q: %w", to, err)
	}
	return nil
}
