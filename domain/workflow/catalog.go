package workflow

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

// defaultCatalogYAML is the fixed 11-step catalog (§3), embedded so the
// engine has a correct definition even when config.WorkflowConfig.StepCatalogPath
// points nowhere (a fresh checkout, a test binary). An operator overrides
// it by pointing StepCatalogPath at a file on disk.
const defaultCatalogYAML = `
steps:
  - name: analysis
    depends_on: []
    max_retries: 3
    token_budget: 8000
    agent_role: analysis
    required_capabilities: [environment_guard, subagentcaller]
    produces: analysis_doc
  - name: architecture
    depends_on: [analysis]
    max_retries: 3
    token_budget: 12000
    agent_role: architecture
    required_capabilities: [environment_guard, filereader, subagentcaller]
    produces: architecture_doc
  - name: frontend_mock
    depends_on: [architecture]
    max_retries: 3
    token_budget: 12000
    agent_role: frontend_mock
    required_capabilities: [environment_guard, filereader, subagentcaller, static_code_validator, syntaxvalidator]
    produces: frontend_mock_files
  - name: screenshot_verify
    depends_on: [frontend_mock]
    max_retries: 3
    token_budget: 4000
    agent_role: screenshot_verify
    required_capabilities: [environment_guard, filereader, subagentcaller]
    produces: screenshot_report
    skippable: false
  - name: contracts
    depends_on: [architecture]
    max_retries: 3
    token_budget: 8000
    agent_role: contracts
    required_capabilities: [environment_guard, filereader, subagentcaller, syntaxvalidator]
    produces: contracts_doc
  - name: backend_implementation
    depends_on: [contracts]
    max_retries: 3
    token_budget: 20000
    agent_role: backend_implementation
    required_capabilities: [environment_guard, filereader, dbschemareader, subagentcaller, static_code_validator, syntaxvalidator]
    produces: backend_files
    requires_entity: true
  - name: system_integration
    depends_on: [backend_implementation, frontend_mock]
    max_retries: 3
    token_budget: 6000
    agent_role: system_integration
    required_capabilities: [environment_guard, filereader, subagentcaller]
    produces: integration_notes
  - name: testing_backend
    depends_on: [backend_implementation]
    max_retries: 3
    token_budget: 8000
    agent_role: testing_backend
    required_capabilities: [environment_guard, filereader, codeviewer, subagentcaller, static_code_validator, syntaxvalidator]
    produces: backend_test_files
  - name: frontend_integration
    depends_on: [system_integration]
    max_retries: 3
    token_budget: 12000
    agent_role: frontend_integration
    required_capabilities: [environment_guard, filereader, subagentcaller, static_code_validator, syntaxvalidator]
    produces: frontend_files
  - name: testing_frontend
    depends_on: [frontend_integration]
    max_retries: 3
    token_budget: 8000
    agent_role: testing_frontend
    required_capabilities: [environment_guard, filereader, codeviewer, subagentcaller, static_code_validator, syntaxvalidator]
    produces: frontend_test_files
  - name: preview
    depends_on: [testing_backend, testing_frontend]
    max_retries: 3
    token_budget: 2000
    agent_role: preview
    required_capabilities: [environment_guard, filereader, subagentcaller]
    produces: preview_report
`

type catalogFile struct {
	Steps []Step `yaml:"steps"`
}

// Catalog is the loaded, validated step graph: a name-indexed lookup plus
// the definition order preserved from the source file.
type Catalog struct {
	steps map[string]Step
	order []string
}

// LoadCatalog reads the step catalog from path; if path is empty or does
// not exist, it falls back to the embedded default so the engine is
// never left without a graph. It fails closed on a YAML syntax error or a
// dependency naming a step absent from the catalog (scenario 5's
// deadlock corruption is injected by tests constructing a Catalog
// directly, not by this loader).
func LoadCatalog(path string) (*Catalog, error) {
	raw := []byte(defaultCatalogYAML)
	if path != "" {
		if b, err := os.ReadFile(path); err == nil {
			raw = b
		} else if !os.IsNotExist(err) {
			return nil, fmt.Errorf("workflow: read step catalog %q: %w", path, err)
		}
	}

	var file catalogFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("workflow: parse step catalog: %w", err)
	}
	return newCatalog(file.Steps)
}

func newCatalog(steps []Step) (*Catalog, error) {
	c := &Catalog{steps: make(map[string]Step, len(steps)), order: make([]string, 0, len(steps))}
	for _, s := range steps {
		c.steps[s.Name] = s
		c.order = append(c.order, s.Name)
	}
	for _, s := range steps {
		for _, dep := range s.DependsOn {
			if _, ok := c.steps[dep]; !ok {
				return nil, &DependencyMissing{Step: s.Name, Reason: fmt.Sprintf("depends_on references unknown step %q", dep)}
			}
		}
	}
	return c, nil
}

// Step returns the named step definition and whether it exists.
func (c *Catalog) Step(name string) (Step, bool) {
	s, ok := c.steps[name]
	return s, ok
}

// Names returns every step name in catalog definition order.
func (c *Catalog) Names() []string {
	out := make([]string, len(c.order))
	copy(out, c.order)
	return out
}

// eligible returns the steps whose dependencies are all in completed,
// excluding steps already in completed, sorted lexicographically for a
// deterministic tie-break (§4.1 step 5).
func (c *Catalog) eligible(completed map[string]bool) []string {
	var out []string
	for _, name := range c.order {
		if completed[name] {
			continue
		}
		step := c.steps[name]
		ready := true
		for _, dep := range step.DependsOn {
			if !completed[dep] {
				ready = false
				break
			}
		}
		if ready {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}
