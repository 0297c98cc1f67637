package helpers

import (
	"bytes"
	"encoding/base64"

	"github.com/dchest/captcha"
	"github.com/google/uuid"
)

const (
	CaptchaLength = 4
	CaptchaWidth  = 150
	CaptchaHeight = 50
)

// NewCaptcha returns the digit answer and the rendered PNG, base64-encoded.
func NewCaptcha() (answer string, pngBase64 string, err error) {
	digits := captcha.RandomDigits(CaptchaLength)
	text := make([]byte, len(digits))
	for i, d := range digits {
		text[i] = '0' + d
	}
	img := captcha.NewImage(uuid.NewString(), digits, CaptchaWidth, CaptchaHeight)
	var buf bytes.Buffer
	if _, err := img.WriteTo(&buf); err != nil {
		return "", "", err
	}
	return string(text), base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}
