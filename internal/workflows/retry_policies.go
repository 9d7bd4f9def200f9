package workflows

import (
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"
)

// RetryPolicyType defines different retry policy configurations
type RetryPolicyType int

const (
	// StandardRetry for normal operations (3 attempts, 1s-1m backoff)
	StandardRetry RetryPolicyType = iota
	// AggressiveRetry for compensation, which must get through (10 attempts)
	AggressiveRetry
)

// GetRetryPolicy returns a configured retry policy based on type. Stock
// rejections never succeed on retry; version conflicts can.
func GetRetryPolicy(policyType RetryPolicyType) *temporal.RetryPolicy {
	switch policyType {
	case AggressiveRetry:
		return &temporal.RetryPolicy{
			InitialInterval:    500 * time.Millisecond,
			BackoffCoefficient: 2.0,
			MaximumInterval:    30 * time.Second,
			MaximumAttempts:    10,
			NonRetryableErrorTypes: []string{
				ErrTypeValidation,
				ErrTypeNotFound,
			},
		}

	case StandardRetry:
		fallthrough
	default:
		return &temporal.RetryPolicy{
			InitialInterval:    time.Second,
			BackoffCoefficient: 2.0,
			MaximumInterval:    time.Minute,
			MaximumAttempts:    3,
			NonRetryableErrorTypes: []string{
				ErrTypeValidation,
				ErrTypeNotFound,
				ErrTypeInsufficient,
			},
		}
	}
}

// ActivityOptionsConfig defines configuration for activity options
type ActivityOptionsConfig struct {
	StartToCloseTimeout time.Duration
	RetryPolicy         RetryPolicyType
}

// GetActivityOptions returns configured activity options
func GetActivityOptions(config ActivityOptionsConfig) workflow.ActivityOptions {
	if config.StartToCloseTimeout == 0 {
		config.StartToCloseTimeout = DefaultActivityTimeout
	}

	return workflow.ActivityOptions{
		StartToCloseTimeout: config.StartToCloseTimeout,
		RetryPolicy:         GetRetryPolicy(config.RetryPolicy),
	}
}
