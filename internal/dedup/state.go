package dedup

// State is the lifecycle stage of one orchestrated scan.
type State string

const (
	StateIdle      State = "idle"
	StateScanning  State = "scanning"
	StateMerging   State = "merging"
	StateFiltering State = "filtering"
	StateDone      State = "done"
	StateCancelled State = "cancelled"
	StateFailed    State = "failed"
)

// Terminal reports whether no further transitions follow s.
func (s State) Terminal() bool {
	return s == StateDone || s == StateCancelled || s == StateFailed
}

// Observer receives scan progress. Methods may be called from several
// goroutines at once.
type Observer interface {
	RootProgress(root string, done, total int)
	StateChanged(state State)
}

type nopObserver struct{}

func (nopObserver) RootProgress(string, int, int) {}
func (nopObserver) StateChanged(State)            {}
