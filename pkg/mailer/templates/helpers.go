package templates

import (
	"time"
)

// Brand is the sender identity shared by all templates.
type Brand struct {
	AppName     string
	CompanyName string
	SupportURL  string
}

type Option func(*EmailData)

func WithProduct(code string) Option { return func(d *EmailData) { d.Product = code } }

func WithExpiresIn(dur time.Duration) Option {
	return func(d *EmailData) {
		utc := time.Now().Add(dur).UTC()
		d.ExpiresAt = utc
		d.ExpiresAtText = utc.Format("02 January 2006, 15:04 MST")
		d.ExpiresInMin = int(dur / time.Minute)
	}
}

func NewBaseEmailData(b Brand, typ, name, email string, opts ...Option) EmailData {
	d := EmailData{
		Name:           name,
		Email:          email,
		RecipientEmail: email,
		Type:           typ,
		AppName:        b.AppName,
		CompanyName:    b.CompanyName,
		SupportURL:     b.SupportURL,
	}
	for _, opt := range opts {
		opt(&d)
	}
	return d
}

func NewVerifyCodeData(b Brand, email, code string, opts ...Option) map[string]any {
	d := NewBaseEmailData(b, VerifyCode, "", email, opts...)
	d.Code = code
	return ToMap(d)
}

func NewSignupSuccessData(b Brand, name, email string, opts ...Option) map[string]any {
	return ToMap(NewBaseEmailData(b, SignupSuccess, name, email, opts...))
}
