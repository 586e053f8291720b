package kernelfs

import (
	"context"
	"time"

	"github.com/xila-project/xilawasi/xila"
)

// Clock can be used to customize the current time.
type Clock interface {
	// Now reports the current time.
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time {
	return time.Now()
}

// SystemClock uses the host OS time.
var SystemClock Clock = systemClock{}

// FixedClock always reports the same time (itself).
type FixedClock time.Time

func (fc FixedClock) Now() time.Time {
	return time.Time(fc)
}

func (k *Kernel) ClockResolution(ctx context.Context, clock xila.ClockID) (xila.Time, xila.Result) {
	if clock > xila.ClockThreadCPUTime {
		return 0, xila.InvalidParameter
	}
	return 1, xila.Success
}

// ClockTime reports wall time for xila.ClockRealtime. The other clocks count
// from the kernel's creation.
func (k *Kernel) ClockTime(ctx context.Context, clock xila.ClockID, precision xila.Time) (xila.Time, xila.Result) {
	now := k.clock.Now().UnixNano()
	switch clock {
	case xila.ClockRealtime:
		return xila.Time(now), xila.Success
	case xila.ClockMonotonic, xila.ClockProcessCPUTime, xila.ClockThreadCPUTime:
		if now < k.start {
			return 0, xila.TimeError
		}
		return xila.Time(now - k.start), xila.Success
	default:
		return 0, xila.InvalidParameter
	}
}
