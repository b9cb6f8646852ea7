package utils

import (
	"time"

	"github.com/mojocn/base64Captcha"
)

var captchas = newCaptchaStore(5 * time.Minute)

// GenerateCaptcha creates a captcha and returns (id, dataURI) for frontend to display.
func GenerateCaptcha() (string, string, error) {
	// digits: height 40, width 120, length 5
	driver := base64Captcha.NewDriverDigit(40, 120, 5, 0.7, 80)
	c := base64Captcha.NewCaptcha(driver, captchas)
	id, b64, _, err := c.Generate()
	return id, b64, err
}

// VerifyCaptcha verifies the provided answer; a captcha is consumed by any attempt.
func VerifyCaptcha(id, answer string) bool {
	return captchas.Verify(id, answer, true)
}
