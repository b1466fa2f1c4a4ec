package binary

import (
	"sync"
	"time"
)

// Clock supplies the timestamps recorded in an InstallResult.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// StepClock starts at Start and moves forward by Step after every reading,
// so an install run against it has a predictable InstalledAt and Duration.
type StepClock struct {
	Start time.Time
	Step  time.Duration

	mu    sync.Mutex
	reads int
}

// Now returns Start plus Step for each earlier call.
func (c *StepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := c.Start.Add(time.Duration(c.reads) * c.Step)
	c.reads++
	return t
}
