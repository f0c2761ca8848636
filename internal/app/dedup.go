package app

// errorDeduper coalesces identical consecutive error conditions so a slow
// consumer is not flooded with the same notification every tick. An error is
// reported on first occurrence and again whenever its message changes.
type errorDeduper struct {
	last string
}

// Changed records err and reports whether it differs from the previous one.
func (d *errorDeduper) Changed(err error) bool {
	msg := err.Error()
	if msg == d.last {
		return false
	}
	d.last = msg
	return true
}

// Reset clears the dedup state after a success, so the next failure is
// reported even if it matches the last one.
func (d *errorDeduper) Reset() {
	d.last = ""
}
