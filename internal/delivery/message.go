package delivery

import (
	"fmt"

	"github.com/abekov/accountd/internal/domain"
)

// renderEmail builds the subject and HTML body for an email delivery.
func renderEmail(template domain.Template, params map[string]string) (subject, body string, err error) {
	switch template {
	case domain.TemplateAccountVerification:
		return "Verify your account",
			fmt.Sprintf(
				`<p>Use the link below to verify your account (expires shortly):</p><p><a href="%s">%s</a></p>`,
				params["link"], params["link"],
			), nil
	case domain.TemplatePasswordReset:
		return "Reset your password",
			fmt.Sprintf(
				`<p>Use the link below to reset your password (expires shortly):</p><p><a href="%s">%s</a></p>`,
				params["link"], params["link"],
			), nil
	case domain.TemplateOTP:
		return "Your sign-in code",
			fmt.Sprintf(`<p>Your one-time code is <strong>%s</strong>.</p>`, params["code"]), nil
	case domain.TemplateWelcome:
		return "Welcome",
			`<p>Your account is ready.</p>`, nil
	default:
		return "", "", fmt.Errorf("unknown email template %q", template)
	}
}

// renderSMS builds the text body for an SMS delivery.
func renderSMS(template domain.Template, params map[string]string) (string, error) {
	switch template {
	case domain.TemplateOTP:
		return "Your one-time code is " + params["code"], nil
	case domain.TemplateAccountVerification:
		return "Your verification code is " + params["token"], nil
	default:
		return "", fmt.Errorf("template %q cannot be sent over sms", template)
	}
}
