package params

const (
	// ParamsKeyPauses stores the module pause configuration.
	ParamsKeyPauses = "system/pauses"
)

// Module names understood by the pause store.
const (
	ModuleFarming = "farming"
	ModuleStaking = "staking"
)
