package audithook

// Action constants for audit events.
const (
	// Plan actions
	ActionPlanCreated = "plan.created"
	ActionPlanUpdated = "plan.updated"
	ActionPlanDeleted = "plan.deleted"

	// Price feed actions
	ActionPriceFeedAdded   = "price_feed.added"
	ActionPriceFeedUpdated = "price_feed.updated"
	ActionPriceFeedDeleted = "price_feed.deleted"

	// Subscription actions
	ActionSubscriptionCreated  = "subscription.created"
	ActionSubscriptionDue      = "subscription.due"
	ActionSubscriptionCharged  = "subscription.charged"
	ActionSubscriptionCanceled = "subscription.canceled"

	// Settlement actions
	ActionTokensClaimed = "tokens.claimed"

	// Ownership actions
	ActionOwnershipTransferred = "ownership.transferred"
)

// Resource constants for audit events.
const (
	ResourcePlan         = "plan"
	ResourcePriceFeed    = "price_feed"
	ResourceSubscription = "subscription"
	ResourceClaim        = "claim"
	ResourceEngine       = "engine"
)

// Category constants for audit events.
const (
	CategoryBilling      = "billing"
	CategorySubscription = "subscription"
	CategorySettlement   = "settlement"
	CategoryAccess       = "access"
)

// Severity levels for audit events.
const (
	SeverityInfo     = "info"
	SeverityWarning  = "warning"
	SeverityError    = "error"
	SeverityCritical = "critical"
)

// Outcome values for audit events.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
	OutcomePartial = "partial"
)
