package constants

import "github.com/go-playground/validator/v10"

type ContextKey string

const (
	LoggerKey    ContextKey = "logger"
	RequestStart ContextKey = "requestStart"
	ParamsKey    ContextKey = "params"
	AppKey       ContextKey = "app"
	IdentityKey  ContextKey = "identity"
)

var Validate = validator.New(validator.WithRequiredStructEnabled())
