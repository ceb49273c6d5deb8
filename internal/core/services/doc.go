// Package services contains the core orchestration logic: the scheduler
// that decides when each source runs, and the runner that executes one
// sync pipeline end to end. Both depend only on the port interfaces, so
// every adapter behind them is swappable.
package services
