package common

// PauseView reports the pause toggle of a module.
type PauseView interface {
	IsPaused(module string) bool
}

// Guard rejects the call when the module pause toggle is set.
func Guard(p PauseView, module string) error {
	if p == nil || module == "" {
		return nil
	}
	if p.IsPaused(module) {
		return NewRevert(ErrModulePaused, "Pausable: paused")
	}
	return nil
}

// PauseSwitch reads and flips module pause toggles.
type PauseSwitch interface {
	PauseView
	SetPaused(module string, paused bool) error
}
