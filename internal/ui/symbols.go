package ui

// Unicode symbols for status indicators.
const (
	SymbolSuccess = "✓" // Snapshot collected
	SymbolFail    = "✗" // No data this cycle
	SymbolDown    = "↓" // Received
	SymbolUp      = "↑" // Transmitted
)
