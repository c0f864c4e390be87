package progress

// Package progress turns high-frequency transfer samples into the low-rate
// stream of status-display edits the messaging channel can absorb, and
// renders the textual progress bar shown in those edits.
