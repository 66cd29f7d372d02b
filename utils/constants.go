package utils

// Application constants
const (
	// Application name
	AppName = "LibTrack"

	// JWT token lifetime in hours
	JWTExpirationHours = 24

	// Default pagination limit for payment listings
	DefaultPaginationLimit = 25

	// Maximum pagination limit
	MaxPaginationLimit = 100

	// Payments listed for a library cover this many days by default
	DefaultPaymentLookbackDays = 30

	// Minimum password length
	MinPasswordLength = 8
)

// Response messages
const (
	MsgLoginSuccess    = "Login successful"
	MsgCreateSuccess   = "Created successfully"
	MsgUpdateSuccess   = "Updated successfully"
	MsgDeleteSuccess   = "Deleted successfully"
	MsgInvalidRequest  = "Invalid request"
	MsgInvalidCreds    = "Invalid email or password"
	MsgAccessForbidden = "Access forbidden"
)
