package recur

import (
	"errors"
	"fmt"
)

// Sentinel errors for common failure scenarios. State-changing
// operations wrap these with the offending entity (plan id,
// subscription id, token address, account) via fmt.Errorf("%w: ...");
// callers pattern-match with errors.Is.
var (
	// General errors
	ErrNotFound     = errors.New("recur: not found")
	ErrInvalidInput = errors.New("recur: invalid input")
	ErrNotOwner     = errors.New("recur: caller is not the owner")
	ErrNoCaller     = errors.New("recur: no caller identity in context")

	// Plan registry errors
	ErrPlanAlreadyRegistered = errors.New("recur: plan already registered")
	ErrPlanNotFound          = errors.New("recur: plan not found")
	ErrBillingPlanNotFound   = errors.New("recur: billing plan not found")

	// Billing plan validation errors
	ErrMissingTokenAddresses = errors.New("recur: billing plan has no accepted tokens")
	ErrMissingTokenPrices    = errors.New("recur: token-priced billing plan has no token prices")
	ErrTokenPriceMismatch    = errors.New("recur: token price list length does not match accepted tokens")
	ErrInvalidTokenAddress   = errors.New("recur: billing plan accepts the zero token address")
	ErrInvalidBillingPeriod  = errors.New("recur: invalid billing period")

	// Token registry errors
	ErrTokenAlreadyRegistered = errors.New("recur: token already registered")
	ErrTokenNotRegistered     = errors.New("recur: token not registered")

	// Subscription errors
	ErrInvalidSubscriptionData = errors.New("recur: invalid subscription data")
	ErrAlreadySubscribed       = errors.New("recur: already subscribed to plan")
	ErrNotSubscribed           = errors.New("recur: not subscribed to plan")
	ErrSubscriptionNotFound    = errors.New("recur: subscription not found")
	ErrSubscriptionNotDue      = errors.New("recur: subscription not due")

	// Charge errors
	ErrTokenNotAllowed        = errors.New("recur: payment token not accepted by billing plan")
	ErrTokenAmountCalculation = errors.New("recur: token amount calculation failed")
	ErrAllowanceTooLow        = errors.New("recur: allowance too low")

	// Claim errors
	ErrNothingToClaim = errors.New("recur: nothing to claim")

	// Store errors
	ErrAlreadyExists     = errors.New("recur: already exists")
	ErrStoreClosed       = errors.New("recur: store is closed")
	ErrTransactionFailed = errors.New("recur: transaction failed")
	ErrMigrationFailed   = errors.New("recur: migration failed")
)

// ValidationError represents a validation failure with details.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("recur: validation failed for %s: %s", e.Field, e.Message)
}

// IsNotFound returns true if the error is a not found error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrPlanNotFound) ||
		errors.Is(err, ErrBillingPlanNotFound) ||
		errors.Is(err, ErrTokenNotRegistered) ||
		errors.Is(err, ErrSubscriptionNotFound)
}

// IsPrecondition returns true if the error reflects business state the
// caller can remediate before retrying (raise an allowance, wait for
// the due time, release an existing subscription).
func IsPrecondition(err error) bool {
	return errors.Is(err, ErrAlreadySubscribed) ||
		errors.Is(err, ErrNotSubscribed) ||
		errors.Is(err, ErrSubscriptionNotDue) ||
		errors.Is(err, ErrAllowanceTooLow) ||
		errors.Is(err, ErrNothingToClaim)
}

// IsValidation returns true if the error is an input or billing-plan
// shape rejection that no retry will fix without different input.
func IsValidation(err error) bool {
	if errors.Is(err, ErrInvalidInput) ||
		errors.Is(err, ErrInvalidSubscriptionData) ||
		errors.Is(err, ErrMissingTokenAddresses) ||
		errors.Is(err, ErrMissingTokenPrices) ||
		errors.Is(err, ErrTokenPriceMismatch) ||
		errors.Is(err, ErrInvalidTokenAddress) ||
		errors.Is(err, ErrInvalidBillingPeriod) {
		return true
	}
	var ve ValidationError
	return errors.As(err, &ve)
}

// IsRetryable returns true if the error is temporary and the operation
// can be retried as-is.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrTransactionFailed) ||
		errors.Is(err, ErrStoreClosed)
}
