package notifications

import (
	"fmt"
	"html"
	"time"
)

func VerificationEmail(link string) (subject, body string) {
	return "Confirm your email address", fmt.Sprintf(
		"<h1>Welcome aboard</h1><p>Confirm your email to start submitting payout proofs.</p><p><a href='%s'>Verify email</a></p>",
		html.EscapeString(link),
	)
}

func PasswordResetEmail(link string) (subject, body string) {
	return "Your Password Reset Link", fmt.Sprintf(
		"<h1>Password Reset</h1><p>Click the link below to reset your password. This link is valid for 15 minutes.</p><p><a href='%s'>Reset Password</a></p>",
		html.EscapeString(link),
	)
}

func PayoutApprovedEmail(traderName, amount, currency string) (subject, body string) {
	return "Your payout has been verified", fmt.Sprintf(
		"<h1>Payout verified</h1><p>Congratulations %s, your payout of %s %s is now live on the payouts wall.</p>",
		html.EscapeString(traderName), html.EscapeString(amount), html.EscapeString(currency),
	)
}

func PayoutRejectedEmail(traderName, reason string) (subject, body string) {
	return "Your payout submission was not approved", fmt.Sprintf(
		"<h1>Submission not approved</h1><p>Hi %s, we could not verify your payout proof.</p><p><strong>Reason:</strong> %s</p>",
		html.EscapeString(traderName), html.EscapeString(reason),
	)
}

func PendingDigestEmail(pending int64, oldest time.Time) (subject, body string) {
	return fmt.Sprintf("%d payout(s) awaiting review", pending), fmt.Sprintf(
		"<h1>Review queue</h1><p>There are <strong>%d</strong> pending payout submissions.</p><p>Oldest submitted %s.</p>",
		pending, oldest.UTC().Format(time.RFC1123),
	)
}
