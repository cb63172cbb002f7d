package capabilities

// Planner builds a deterministic ToolPlan for a step. It holds no mutable
// state and no external dependencies, which is what makes Plan a pure
// function of its arguments.
type Planner struct{}

// NewPlanner constructs a Planner.
func NewPlanner() *Planner {
	return &Planner{}
}

// Plan expands step.RequiredCapabilities into an ordered ToolPlan:
// pre-tools first (in registryOrder), then the core tool, then
// post-tools. Two calls with equal step and session produce
// byte-identical ToolPlans — session only fills in tool args, it never
// changes which tools are selected or their order.
func (p *Planner) Plan(step StepSpec, session SessionContext) ToolPlan {
	declared := make(map[string]bool, len(step.RequiredCapabilities))
	for _, cap := range step.RequiredCapabilities {
		declared[cap] = true
	}

	var pre, core, post []ToolInvocationPlan
	for _, tag := range registryOrder {
		if !declared[tag] {
			continue
		}
		entry, ok := registry[tag]
		if !ok {
			continue
		}

		invocation := ToolInvocationPlan{
			ToolName: entry.toolName,
			Args:     defaultArgs(tag, step, session),
			Reason:   entry.reason,
			Required: entry.required,
		}

		switch entry.phase {
		case phasePre:
			pre = append(pre, invocation)
		case phaseCore:
			core = append(core, invocation)
		case phasePost:
			post = append(post, invocation)
		}
	}

	entries := make([]ToolInvocationPlan, 0, len(pre)+len(core)+len(post))
	entries = append(entries, pre...)
	entries = append(entries, core...)
	entries = append(entries, post...)

	return ToolPlan{Step: step.Name, Entries: entries}
}

// defaultArgs fills in the tool arguments every built-in tool needs from
// session context. It never reads history or prior tool output — the
// only inputs are the step name and the session's static fields.
func defaultArgs(tag string, step StepSpec, session SessionContext) map[string]any {
	switch tag {
	case CapFileReader, CapFileLister, CapCodeViewer:
		return map[string]any{
			"workspace_path": session.WorkspacePath,
			"step":           step.Name,
		}
	case CapDBSchemaReader:
		return map[string]any{"project_id": session.ProjectID}
	case CapEnvironmentGuard:
		return map[string]any{"workspace_path": session.WorkspacePath}
	case CapSubAgentCaller:
		return map[string]any{
			"session_id": session.SessionID,
			"step":       step.Name,
		}
	case CapStaticCodeValidator, CapSyntaxValidator:
		return map[string]any{"workspace_path": session.WorkspacePath}
	default:
		return map[string]any{}
	}
}
