package skysched

import "fmt"

// ConfigurationError reports a catalog or configuration problem discovered
// at load time: a missing band in a mode, a catalog station code the
// network does not know, a malformed session window, a negative duration.
type ConfigurationError struct {
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error: %s", e.Reason)
}

// ParameterEventOrdering reports an event list whose timestamps are not
// monotonically increasing for a given entity. Discovered at load time,
// always fatal.
type ParameterEventOrdering struct {
	Entity string
	At     int
}

func (e *ParameterEventOrdering) Error() string {
	return fmt.Sprintf("parameter event ordering violated for %s at t=%d", e.Entity, e.At)
}

// EmptySubcon reports that candidate enumeration produced no scan for a
// given decision point. Not fatal by itself; the scheduler advances time
// and retries. It becomes fatal after a run of consecutive occurrences.
type EmptySubcon struct {
	At int
}

func (e *EmptySubcon) Error() string {
	return fmt.Sprintf("no candidate scans available at t=%d", e.At)
}

// InfeasibleScan reports that a single candidate could not be rigorously
// updated into a valid scan. Recovered locally: the candidate is dropped.
type InfeasibleScan struct {
	SourceName string
	Reason     string
}

func (e *InfeasibleScan) Error() string {
	return fmt.Sprintf("scan on %s infeasible: %s", e.SourceName, e.Reason)
}

// NumericError reports a non-finite SEFD or flux value. The offending scan
// is invalidated; the run continues.
type NumericError struct {
	Where string
}

func (e *NumericError) Error() string {
	return fmt.Sprintf("non-finite numeric result in %s", e.Where)
}
