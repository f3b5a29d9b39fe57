package constants

import (
	"github.com/go-playground/validator/v10"
)

type ContextKey string

const (
	TxKey        ContextKey = "tx"
	PoolKey      ContextKey = "pool"
	LoggerKey    ContextKey = "logger"
	RequestStart ContextKey = "requestStart"
	AppKey       ContextKey = "app"
	ActorKey     ContextKey = "actor"
	RequestIDKey ContextKey = "requestID"
)

var Validate = validator.New(validator.WithRequiredStructEnabled())
