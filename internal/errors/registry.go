package errors

// ErrorTemplate defines a registered error type.
type ErrorTemplate struct {
	Category   Category
	Message    string
	Detail     string
	Suggestion string
	DocURL     string
}

const docBase = "docs/errors.md#"

// registry maps error codes to their templates.
var registry = map[string]ErrorTemplate{
	// ============================================
	// Store Errors (E101-E119)
	// ============================================

	"E101": {
		Category:   CategoryStore,
		Message:    "Missing state",
		Detail:     "No value of the requested type is stored under this identifier. The cell may not exist yet, or it is checked out by an Update that is still running.",
		Suggestion: "Create the cell before reading it, and do not read a cell from inside its own Update.",
		DocURL:     docBase + "e101",
	},
	"E102": {
		Category:   CategoryStore,
		Message:    "Type mismatch",
		Detail:     "The cell holds a value of a different type than the one requested. Each identifier holds exactly one type for the life of the store.",
		Suggestion: "Read and write the cell with the type it was created with.",
		DocURL:     docBase + "e102",
	},
	"E103": {
		Category:   CategoryStore,
		Message:    "Computed cell is read-only",
		Detail:     "Computed cells are only written by their build function.",
		Suggestion: "Write to one of the atoms the computed reads instead.",
		DocURL:     docBase + "e103",
	},
	"E104": {
		Category:   CategoryStore,
		Message:    "Cell kind mismatch",
		Detail:     "The identifier is already registered as a different kind of cell. An atom cannot become a computed or the reverse.",
		DocURL:     docBase + "e104",
	},
	"E105": {
		Category:   CategoryStore,
		Message:    "Undo not enabled",
		Detail:     "The atom was created without undo history. History cannot be added to an existing atom.",
		Suggestion: "Create the atom with NewUndoAtom (undo: true in scenario files).",
		DocURL:     docBase + "e105",
	},
	"E106": {
		Category: CategoryStore,
		Message:  "Store closed",
		Detail:   "The store has been closed and every handle to it is invalid.",
		DocURL:   docBase + "e106",
	},
	"E107": {
		Category:   CategoryStore,
		Message:    "Propagation depth exceeded",
		Detail:     "A write propagated deeper than the configured limit. This almost always means two computeds read each other, directly or through other cells.",
		Suggestion: "Run `atomstore graph` on the scenario to find the cycle.",
		DocURL:     docBase + "e107",
	},
	"E108": {
		Category: CategoryStore,
		Message:  "Rebuild failed",
		Detail:   "A computed's build function returned an error. Values committed before the failure are kept.",
		DocURL:   docBase + "e108",
	},

	// ============================================
	// Scenario Errors (E120-E139)
	// ============================================

	"E120": {
		Category: CategoryScenario,
		Message:  "Scenario file not readable",
		Detail:   "The scenario file could not be opened or is not valid YAML.",
		DocURL:   docBase + "e120",
	},
	"E121": {
		Category: CategoryScenario,
		Message:  "Invalid scenario",
		Detail:   "The scenario failed validation.",
		DocURL:   docBase + "e121",
	},
	"E122": {
		Category:   CategoryScenario,
		Message:    "Unknown cell type",
		Detail:     "Scenario cells are int, float, string or bool.",
		Suggestion: "Set type: to one of int, float, string, bool.",
		DocURL:     docBase + "e122",
	},
	"E123": {
		Category:   CategoryScenario,
		Message:    "Unknown operation",
		Detail:     "The computed names an operation the scenario runner does not provide.",
		Suggestion: "Use one of sum, product, min, max, scale, div, concat, format, negate, not, len.",
		DocURL:     docBase + "e123",
	},
	"E124": {
		Category: CategoryScenario,
		Message:  "Invalid operation parameters",
		Detail:   "The parameters of an operation could not be decoded.",
		DocURL:   docBase + "e124",
	},
	"E125": {
		Category: CategoryScenario,
		Message:  "Expectation failed",
		Detail:   "A cell did not hold the value an expect step asked for.",
		DocURL:   docBase + "e125",
	},
	"E126": {
		Category:   CategoryScenario,
		Message:    "Invalid step",
		Detail:     "A step must set exactly one of set, add, undo, expect or batch.",
		Suggestion: "Split combined steps into one step per action.",
		DocURL:     docBase + "e126",
	},

	// ============================================
	// Configuration Errors (E140-E149)
	// ============================================

	"E140": {
		Category: CategoryConfig,
		Message:  "Invalid atomstore.yaml",
		Detail:   "The configuration file could not be parsed.",
		DocURL:   docBase + "e140",
	},
	"E141": {
		Category: CategoryConfig,
		Message:  "Invalid configuration value",
		Detail:   "A configuration value is out of range.",
		DocURL:   docBase + "e141",
	},

	// ============================================
	// CLI Errors (E160-E169)
	// ============================================

	"E160": {
		Category: CategoryCLI,
		Message:  "Command failed",
		Detail:   "The command could not complete.",
		DocURL:   docBase + "e160",
	},
	"E161": {
		Category:   CategoryCLI,
		Message:    "Inspector server failed",
		Detail:     "The HTTP inspector stopped with an error.",
		Suggestion: "Check that the listen address is free, or pass --addr.",
		DocURL:     docBase + "e161",
	},
}

// GetAllCodes returns all registered error codes.
func GetAllCodes() []string {
	codes := make([]string, 0, len(registry))
	for code := range registry {
		codes = append(codes, code)
	}
	return codes
}

// GetTemplate returns the template for an error code.
func GetTemplate(code string) (ErrorTemplate, bool) {
	t, ok := registry[code]
	return t, ok
}

// Register adds a new error template to the registry.
func Register(code string, template ErrorTemplate) {
	registry[code] = template
}
