package bridge

// successCode is the single status code spec.md §4.9 treats as a
// confirmed transfer.
const successCode = 5

// Classify maps s.Code onto a Lifecycle per spec.md's literal resolution
// of the status-code ambiguity noted in spec.md §9: codes below 5 are
// in-flight, exactly 5 is success, above 5 is failure. The spec flags this
// as ambiguous for codes > 5 (it doesn't disambiguate different failure
// reasons) but is unambiguous about the success/in-flight/failure
// trichotomy itself, which is all Controller needs to decide whether to
// keep polling.
func (s Status) Classify() Lifecycle {
	switch {
	case s.Code == successCode:
		return LifecycleSuccess
	case s.Code > successCode:
		return LifecycleFailure
	default:
		return LifecycleInFlight
	}
}
