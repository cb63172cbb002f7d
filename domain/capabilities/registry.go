package capabilities

// Capability tags a step may declare in its RequiredCapabilities set.
const (
	CapEnvironmentGuard    = "environment_guard"
	CapFileReader          = "filereader"
	CapFileLister          = "filelister"
	CapCodeViewer          = "codeviewer"
	CapDBSchemaReader      = "dbschemareader"
	CapSubAgentCaller      = "subagentcaller"
	CapStaticCodeValidator = "static_code_validator"
	CapSyntaxValidator     = "syntaxvalidator"
)

// phase controls where a capability's tool lands in the emitted plan:
// all pre-tools first (checks, reads), then the core tool, then all
// post-tools (validators). Within a phase, tags are emitted in the fixed
// order registryOrder lists them, which is what makes Plan deterministic
// across repeated calls with the same step.
type phase int

const (
	phasePre phase = iota
	phaseCore
	phasePost
)

type registryEntry struct {
	toolName string
	phase    phase
	reason   string
	required bool
}

// registry maps every known capability tag to its tool, phase, and
// default required-ness. subagentcaller is the one capability every step
// that needs an LLM turn declares; it is always the plan's core tool.
var registry = map[string]registryEntry{
	CapEnvironmentGuard:    {toolName: "environment_guard", phase: phasePre, reason: "verify workspace preconditions before running the step", required: true},
	CapFileReader:          {toolName: "filereader", phase: phasePre, reason: "load prior artifacts needed as step input", required: true},
	CapFileLister:          {toolName: "filelister", phase: phasePre, reason: "enumerate workspace contents for step context", required: false},
	CapCodeViewer:          {toolName: "codeviewer", phase: phasePre, reason: "inspect existing source before modifying it", required: false},
	CapDBSchemaReader:      {toolName: "dbschemareader", phase: phasePre, reason: "read current schema to keep generated code consistent", required: false},
	CapSubAgentCaller:      {toolName: "subagentcaller", phase: phaseCore, reason: "invoke the LLM agent to produce the step's artifact", required: true},
	CapStaticCodeValidator: {toolName: "static_code_validator", phase: phasePost, reason: "validate generated code against static rules", required: true},
	CapSyntaxValidator:     {toolName: "syntaxvalidator", phase: phasePost, reason: "check generated code parses before accepting the artifact", required: true},
}

// registryOrder fixes iteration order within a phase so Plan never
// depends on Go's randomized map iteration.
var registryOrder = []string{
	CapEnvironmentGuard,
	CapFileReader,
	CapFileLister,
	CapCodeViewer,
	CapDBSchemaReader,
	CapSubAgentCaller,
	CapStaticCodeValidator,
	CapSyntaxValidator,
}
