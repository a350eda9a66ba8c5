package templates

import (
	"bytes"
	"embed"
	"fmt"
	htmpl "html/template"
	"reflect"
	"strings"
	texttpl "text/template"
	"time"

	"github.com/oksasatya/bizbridge-auth/config"
)

//go:embed *.tmpl
var FS embed.FS

// Template names. Each expects <name>.subject.tmpl, <name>.text.tmpl and <name>.html.tmpl.
const (
	ResetOTP       = "reset_otp"
	VerifyEmailOTP = "verify_email_otp"
)

// EmailData defines standard fields for email templates.
type EmailData struct {
	Name  string `json:"Name"`
	Email string `json:"Email"`
	Code  string `json:"Code"`

	CompanyName  string `json:"CompanyName"`
	AppName      string `json:"AppName"`
	LogoURL      string `json:"LogoURL"`
	SupportEmail string `json:"SupportEmail"`

	ExpiresInMinutes int       `json:"ExpiresInMinutes"`
	ExpiresAt        time.Time `json:"ExpiresAt"`
	Year             int       `json:"Year"`
}

// Option pattern
type Option func(*EmailData)

func WithExpiresAt(t time.Time) Option {
	return func(d *EmailData) { d.ExpiresAt = t.UTC() }
}

func WithYear(year int) Option {
	return func(d *EmailData) { d.Year = year }
}

// NewOTPData fills branding from cfg and the code with its lifetime.
func NewOTPData(cfg *config.Config, name, email, code string, ttl time.Duration, opts ...Option) EmailData {
	d := EmailData{
		Name:  name,
		Email: email,
		Code:  code,

		CompanyName:  cfg.CompanyName,
		AppName:      cfg.AppName,
		LogoURL:      cfg.LogoURL,
		SupportEmail: cfg.SupportEmail,

		ExpiresInMinutes: int(ttl / time.Minute),
		Year:             time.Now().UTC().Year(),
	}
	for _, opt := range opts {
		opt(&d)
	}
	return d
}

// defaultFn supports pipe usage: {{ .Value | default "Fallback" }}
func defaultFn(fallback any, value any) any {
	switch x := value.(type) {
	case string:
		if strings.TrimSpace(x) == "" {
			return fallback
		}
		return x
	case nil:
		return fallback
	default:
		rv := reflect.ValueOf(value)
		if !rv.IsValid() || rv.IsZero() {
			return fallback
		}
		return value
	}
}

// expiryFn renders a non-zero time.Time as "02 Jan 2006 15:04 UTC" and
// anything else as "", so {{ with expiry .ExpiresAt }} skips missing values.
func expiryFn(v any) string {
	t, ok := v.(time.Time)
	if !ok || t.IsZero() {
		return ""
	}
	return t.UTC().Format("02 Jan 2006 15:04 MST")
}

func baseFuncs() map[string]any {
	return map[string]any{
		"formatTime": func(t time.Time, layout string) string { return t.Format(layout) },
		"expiry":     expiryFn,
		"upper":      strings.ToUpper,
		"default":    defaultFn,
	}
}

var (
	htmlFuncMap = htmpl.FuncMap(baseFuncs())
	textFuncMap = texttpl.FuncMap(baseFuncs())
)

// renderFile loads and renders a single template file from the embedded FS.
// isHTML indicates whether to use html/template (true) or text/template (false).
func renderFile(filename string, isHTML bool, data any) (string, error) {
	var (
		buf bytes.Buffer
		err error
	)

	if isHTML {
		tpl, e := htmpl.New(filename).Funcs(htmlFuncMap).ParseFS(FS, filename)
		if e != nil {
			return "", fmt.Errorf("parse html %q: %w", filename, e)
		}
		err = tpl.Execute(&buf, data)
	} else {
		tpl, e := texttpl.New(filename).Funcs(textFuncMap).ParseFS(FS, filename)
		if e != nil {
			return "", fmt.Errorf("parse text %q: %w", filename, e)
		}
		err = tpl.Execute(&buf, data)
	}
	if err != nil {
		return "", fmt.Errorf("exec %q: %w", filename, err)
	}
	return buf.String(), nil
}

// Render loads and renders subject, text, and html templates for the given base name.
func Render(name string, data any) (subject string, text string, html string, err error) {
	subject, err = renderFile(name+".subject.tmpl", false, data)
	if err != nil {
		return "", "", "", err
	}
	text, err = renderFile(name+".text.tmpl", false, data)
	if err != nil {
		return "", "", "", err
	}
	html, err = renderFile(name+".html.tmpl", true, data)
	if err != nil {
		return "", "", "", err
	}
	return strings.TrimSpace(subject), text, html, nil
}
