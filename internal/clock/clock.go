package clock

import "time"

// NowFunc returns current time. Override in tests for determinism.
var NowFunc = time.Now

// SleepFunc blocks the calling goroutine for the given duration. The safety
// shutdown sequence uses it for settle and discharge delays; tests override
// it so the sequence preserves step ordering without wall-clock waits.
var SleepFunc = time.Sleep

// Now is a thin wrapper around NowFunc.
func Now() time.Time { return NowFunc() }

// Sleep is a thin wrapper around SleepFunc.
func Sleep(d time.Duration) { SleepFunc(d) }
