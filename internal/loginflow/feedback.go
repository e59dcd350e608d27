package loginflow

import "github.com/rapscallion45/tradernet/internal/api"

// Feedback is the fixed inline message rendered for a login outcome.
type Feedback struct {
	Title   string
	Message string
}

// FeedbackFor maps a login status to its user-facing feedback. This is the
// single point where the status set is converted to text; the switch covers
// every member and anything unrecognized lands in the Unknown branch.
func FeedbackFor(s api.Status) Feedback {
	switch s {
	case api.StatusSuccess:
		return Feedback{Title: "Success", Message: "Logging you in."}
	case api.StatusIncorrectCredentials:
		return Feedback{Title: "Incorrect credentials", Message: "Wrong username or password. Please try again."}
	case api.StatusUserNotFound:
		return Feedback{Title: "Account not found", Message: "That account does not exist. Contact an administrator."}
	case api.StatusInvalidRequest:
		return Feedback{Title: "Invalid request", Message: "The request was malformed. Try again or contact an administrator."}
	case api.StatusAccountPasswordExpired:
		return Feedback{Title: "Password expired", Message: "You must reset your password before continuing."}
	case api.StatusUnknown:
	}
	return Feedback{Title: "Unexpected error", Message: "Something went wrong. Try again or contact an administrator."}
}
