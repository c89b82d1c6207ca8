package scheduler

import "errors"

// ErrSchedulerNotRunning is returned when a run is requested on a scheduler
// that has not been started or is disabled.
var ErrSchedulerNotRunning = errors.New("scheduler is not running")
