package apperror

// Code represents a unique error code for the application
type Code string

// General error codes
const (
	// Validation
	CodeInvalidArgument Code = "INVALID_ARGUMENT"
	CodeInvalidAddress  Code = "INVALID_ADDRESS"
	CodeInvalidInput    Code = "INVALID_INPUT"
	CodeOutOfRange      Code = "OUT_OF_RANGE"
	CodeNotFound        Code = "NOT_FOUND"

	// Configuration
	CodeConfigurationError Code = "CONFIGURATION_ERROR"

	// External service errors
	CodeExternalServiceError Code = "EXTERNAL_SERVICE_ERROR"
	CodeServiceTimeout       Code = "SERVICE_TIMEOUT"
	CodeServiceUnavailable   Code = "SERVICE_UNAVAILABLE"
	CodeRateLimitExceeded    Code = "RATE_LIMIT_EXCEEDED"

	// System errors
	CodeInternalError Code = "INTERNAL_ERROR"
	CodeUnknownError  Code = "UNKNOWN_ERROR"
)

// Relayer-specific error codes
const (
	// Token directory
	CodeTokenNotFound Code = "TOKEN_NOT_FOUND"

	// Price feeds
	CodeTickerUnavailable   Code = "TICKER_UNAVAILABLE"
	CodeInvalidTicker       Code = "INVALID_TICKER"
	CodeFeedConnectionError Code = "FEED_CONNECTION_ERROR"

	// Chain gateway
	CodeEthereumConnectionFailed Code = "ETHEREUM_CONNECTION_FAILED"
	CodeContractCallFailed       Code = "CONTRACT_CALL_FAILED"
	CodeInsufficientAllowance    Code = "INSUFFICIENT_ALLOWANCE"

	// Orders
	CodeSigningFailed    Code = "SIGNING_FAILED"
	CodeInvalidSignature Code = "INVALID_SIGNATURE"

	// WebSocket errors
	CodeWebSocketConnectionError Code = "WEBSOCKET_CONNECTION_ERROR"
	CodeWebSocketClosed          Code = "WEBSOCKET_CLOSED"

	// Cache errors
	CodeCacheError Code = "CACHE_ERROR"

	// Circuit breaker errors
	CodeCircuitOpen Code = "CIRCUIT_OPEN"
)
