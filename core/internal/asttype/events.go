package asttype

// Observer receives notifications during long-running archive operations.
//
// Parse may call Preview from several goroutines at once, so implementations
// must be safe for concurrent calls. Implementations should return quickly;
// operations do not buffer events for slow consumers.
type Observer interface {
	// Progress reports completion of an export or import as a percentage (0-100).
	Progress(percent int)

	// Preview delivers a data URI preview for the node at address.
	Preview(address string, dataURI string)

	// PreviewsDone signals that every preview for the container at address was emitted.
	PreviewsDone(address string)
}

// ObserverFuncs adapts optional functions to an Observer. Nil fields are ignored.
type ObserverFuncs struct {
	OnProgress     func(percent int)
	OnPreview      func(address, dataURI string)
	OnPreviewsDone func(address string)
}

// Progress implements Observer.
func (f ObserverFuncs) Progress(percent int) {
	if f.OnProgress != nil {
		f.OnProgress(percent)
	}
}

// Preview implements Observer.
func (f ObserverFuncs) Preview(address, dataURI string) {
	if f.OnPreview != nil {
		f.OnPreview(address, dataURI)
	}
}

// PreviewsDone implements Observer.
func (f ObserverFuncs) PreviewsDone(address string) {
	if f.OnPreviewsDone != nil {
		f.OnPreviewsDone(address)
	}
}

// NopObserver discards every event.
var NopObserver Observer = ObserverFuncs{}
