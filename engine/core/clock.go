package core

import "time"

type Clock struct {
	startTime time.Time
	elapsed   time.Duration
	total     time.Duration
}

func NewClock() *Clock {
	return &Clock{}
}

// Updates the provided clock. Should be called just before checking elapsed time.
// Has no effect on non-started clocks.
func (c *Clock) Update() {
	if !c.startTime.IsZero() {
		c.elapsed = time.Since(c.startTime)
	}
}

// Starts the provided clock. Resets elapsed time.
func (c *Clock) Start() {
	c.startTime = time.Now()
	c.elapsed = 0
}

// Stops the provided clock and adds the elapsed time to the running total.
// Does not reset elapsed time.
func (c *Clock) Stop() {
	c.Update()
	if !c.startTime.IsZero() {
		c.total += c.elapsed
	}
	c.startTime = time.Time{}
}

func (c *Clock) Elapsed() time.Duration {
	return c.elapsed
}

// Total is the sum of every Start/Stop interval since the last Reset.
func (c *Clock) Total() time.Duration {
	return c.total
}

func (c *Clock) Reset() {
	c.startTime = time.Time{}
	c.elapsed = 0
	c.total = 0
}
