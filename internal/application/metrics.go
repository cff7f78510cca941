package application

import "expvar"

// Counters published under "auth" on /api/debug/vars.
var (
	authVars = expvar.NewMap("auth")

	signups             = new(expvar.Int)
	logins              = new(expvar.Int)
	failedLogins        = new(expvar.Int)
	verifications       = new(expvar.Int)
	verificationResends = new(expvar.Int)
	resetRequests       = new(expvar.Int)
	resets              = new(expvar.Int)
	mailFailures        = new(expvar.Int)
)

func init() {
	authVars.Set("signups", signups)
	authVars.Set("logins", logins)
	authVars.Set("failed_logins", failedLogins)
	authVars.Set("verifications", verifications)
	authVars.Set("verification_resends", verificationResends)
	authVars.Set("reset_requests", resetRequests)
	authVars.Set("resets", resets)
	authVars.Set("mail_failures", mailFailures)
}
