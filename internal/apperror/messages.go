package apperror

// messages maps error codes to human-readable messages
var messages = map[Code]string{
	// Validation
	CodeInvalidArgument: "Invalid argument",
	CodeInvalidAddress:  "Invalid address",
	CodeInvalidInput:    "Invalid input provided",
	CodeOutOfRange:      "Value out of range",
	CodeNotFound:        "Resource not found",

	// Configuration
	CodeConfigurationError: "Configuration error",

	// External service errors
	CodeExternalServiceError: "External service error",
	CodeServiceTimeout:       "Service request timeout",
	CodeServiceUnavailable:   "Service temporarily unavailable",
	CodeRateLimitExceeded:    "Request limit reached",

	// System errors
	CodeInternalError: "Internal server error",
	CodeUnknownError:  "An unknown error occurred",

	// Token directory
	CodeTokenNotFound: "Token not found",

	// Price feeds
	CodeTickerUnavailable:   "Ticker unavailable",
	CodeInvalidTicker:       "Invalid ticker data",
	CodeFeedConnectionError: "Failed to reach price feed",

	// Chain gateway
	CodeEthereumConnectionFailed: "Failed to connect to Ethereum node",
	CodeContractCallFailed:       "Smart contract call failed",
	CodeInsufficientAllowance:    "Token allowance below order amount",

	// Orders
	CodeSigningFailed:    "Failed to sign order",
	CodeInvalidSignature: "Invalid order signature",

	// WebSocket errors
	CodeWebSocketConnectionError: "WebSocket connection error",
	CodeWebSocketClosed:          "WebSocket connection closed",

	// Cache errors
	CodeCacheError: "Cache backend error",

	// Circuit breaker errors
	CodeCircuitOpen: "Circuit breaker is open",
}
