package types

// LogSource is one of RawLogSource, EventsLogSource or NormalizedLogSource.
type LogSource interface {
	SourceID() string
	isLogSource()
}

// RawLogSource carries unparsed log content.
type RawLogSource struct {
	ID      string
	Content string
	Format  Format
}

// EventsLogSource carries events that were already parsed by the adapter.
type EventsLogSource struct {
	ID     string
	Events []RunEvent
}

// NormalizedLogSource carries a log that was normalized elsewhere.
type NormalizedLogSource struct {
	ID  string
	Log NormalizedLog
}

func (s RawLogSource) SourceID() string        { return s.ID }
func (s EventsLogSource) SourceID() string     { return s.ID }
func (s NormalizedLogSource) SourceID() string { return s.ID }

func (RawLogSource) isLogSource()        {}
func (EventsLogSource) isLogSource()     {}
func (NormalizedLogSource) isLogSource() {}
