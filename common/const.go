package common

import (
	"time"

	"github.com/avast/retry-go/v4"
)

var (
	RetryAttemptNum = uint(5)
	RetryAttempts   = retry.Attempts(RetryAttemptNum)
	RetryDelay      = retry.Delay(time.Millisecond * 400)
	RetryErr        = retry.LastErrorOnly(true)

	RetryInterval = 1 * time.Second
)
