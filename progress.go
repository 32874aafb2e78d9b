package astedit

import astcore "github.com/meigma/astedit/core"

// Re-export event types from core package.
type (
	// Observer receives progress and preview notifications during editor
	// operations. Implementations must be safe for concurrent calls.
	Observer = astcore.Observer

	// ObserverFuncs adapts optional functions to an Observer.
	ObserverFuncs = astcore.ObserverFuncs
)

// NopObserver discards every event.
var NopObserver = astcore.NopObserver
