package templates

import (
	"strconv"
	"strings"
	"time"
)

// Brand carries the sender identity shared by every template.
type Brand struct {
	AppName     string
	CompanyName string
	SupportURL  string
	ClientURI   string
}

// Option pattern
type Option func(*EmailData)

func WithCode(code string) Option    { return func(d *EmailData) { d.Code = code } }
func WithResetURL(url string) Option { return func(d *EmailData) { d.ResetURL = url } }
func WithTime(t time.Time) Option {
	return func(d *EmailData) {
		d.Time = t.UTC().Format("02 January 2006, 15:04")
		d.CopyrightYear = t.Year()
	}
}

// WithExpiry records both the absolute expiry and the human validity window.
func WithExpiry(issued time.Time, ttl time.Duration) Option {
	return func(d *EmailData) {
		utc := issued.Add(ttl).UTC()
		d.ExpiresAt = utc
		d.ExpiresAtText = utc.Format("02 January 2006, 15:04 MST")
		d.ValidFor = humanDuration(ttl)
	}
}

// NewEmailData fills brand fields, then applies options.
func NewEmailData(b Brand, typ, name, email string, opts ...Option) EmailData {
	d := EmailData{
		Name:          name,
		Email:         email,
		Type:          typ,
		AppName:       b.AppName,
		CompanyName:   b.CompanyName,
		SupportURL:    b.SupportURL,
		ClientURI:     strings.TrimRight(b.ClientURI, "/"),
		CopyrightYear: time.Now().Year(),
	}
	for _, opt := range opts {
		opt(&d)
	}
	return d
}

func humanDuration(d time.Duration) string {
	switch {
	case d <= 0:
		return ""
	case d%(24*time.Hour) == 0 && d >= 48*time.Hour:
		return strconv.Itoa(int(d/(24*time.Hour))) + " days"
	case d%time.Hour == 0 && d > time.Hour:
		return strconv.Itoa(int(d/time.Hour)) + " hours"
	case d == time.Hour:
		return "1 hour"
	case d%time.Minute == 0:
		return strconv.Itoa(int(d/time.Minute)) + " minutes"
	default:
		return d.String()
	}
}
