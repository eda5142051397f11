package diagnostics

// OwnedListener is a ListenerRecord labeled with whether the binding belongs
// to this host process.
type OwnedListener struct {
	ListenerRecord
	Self bool
}

// Classify labels each listener by comparing its PID against selfPID. A
// record with an unresolved PID (0) is never self but is still reported;
// unknown ownership must not pass for healthy. PID reuse between the OS scan
// and this comparison is an accepted race, the window is far too short to
// matter for an interactive check.
func Classify(records []ListenerRecord, selfPID int32) []OwnedListener {
	classified := make([]OwnedListener, 0, len(records))
	for _, rec := range records {
		classified = append(classified, OwnedListener{
			ListenerRecord: rec,
			Self:           rec.PID != 0 && rec.PID == selfPID,
		})
	}
	return classified
}
