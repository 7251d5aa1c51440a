package reactive

// Observer receives store lifecycle events. Hooks run synchronously on the
// store's goroutine, in the middle of the operation that triggered them, and
// must not call back into the store.
//
// Embed NopObserver to implement only the hooks you need.
type Observer interface {
	// CellCreated is called once per identifier, after its first value is stored.
	CellCreated(id string, kind Kind)

	// Written is called after a caller's write to an atom is committed.
	// op is "set", "update" or "undo".
	Written(id, op string)

	// PropagationStarted is called before the dependents of a written cell
	// are rebuilt. Inside a Batch it is called when the batch flushes.
	PropagationStarted(id string)

	// RebuildStarted is called before a computed's build function runs.
	// cause is the cell whose change triggered it, empty for the first build.
	RebuildStarted(id, cause string, depth int)

	// RebuildFinished is called after a build function returns.
	RebuildFinished(id string, depth int, changed bool, err error)

	// PropagationFinished is called when the walk started by
	// PropagationStarted is done. rebuilds counts build function calls.
	PropagationFinished(id string, rebuilds int, err error)

	// Undone is called after an undo attempt; restored is false when only
	// the baseline entry was left.
	Undone(id string, restored bool)
}

// NopObserver implements Observer with empty hooks.
type NopObserver struct{}

func (NopObserver) CellCreated(string, Kind)                 {}
func (NopObserver) Written(string, string)                   {}
func (NopObserver) PropagationStarted(string)                {}
func (NopObserver) RebuildStarted(string, string, int)       {}
func (NopObserver) RebuildFinished(string, int, bool, error) {}
func (NopObserver) PropagationFinished(string, int, error)   {}
func (NopObserver) Undone(string, bool)                      {}

// multiObserver fans events out in order.
type multiObserver []Observer

// Observers combines several observers into one. Nil entries are skipped.
func Observers(obs ...Observer) Observer {
	var m multiObserver
	for _, o := range obs {
		if o != nil {
			m = append(m, o)
		}
	}
	switch len(m) {
	case 0:
		return NopObserver{}
	case 1:
		return m[0]
	}
	return m
}

func (m multiObserver) CellCreated(id string, kind Kind) {
	for _, o := range m {
		o.CellCreated(id, kind)
	}
}

func (m multiObserver) Written(id, op string) {
	for _, o := range m {
		o.Written(id, op)
	}
}

func (m multiObserver) PropagationStarted(id string) {
	for _, o := range m {
		o.PropagationStarted(id)
	}
}

func (m multiObserver) RebuildStarted(id, cause string, depth int) {
	for _, o := range m {
		o.RebuildStarted(id, cause, depth)
	}
}

func (m multiObserver) RebuildFinished(id string, depth int, changed bool, err error) {
	for _, o := range m {
		o.RebuildFinished(id, depth, changed, err)
	}
}

func (m multiObserver) PropagationFinished(id string, rebuilds int, err error) {
	for _, o := range m {
		o.PropagationFinished(id, rebuilds, err)
	}
}

func (m multiObserver) Undone(id string, restored bool) {
	for _, o := range m {
		o.Undone(id, restored)
	}
}
