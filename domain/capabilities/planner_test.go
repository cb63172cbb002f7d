package capabilities

import (
	"reflect"
	"testing"
)

func backendStep() StepSpec {
	return StepSpec{
		Name: "backend_implementation",
		RequiredCapabilities: []string{
			CapSubAgentCaller,
			CapStaticCodeValidator,
			CapFileReader,
			CapEnvironmentGuard,
			CapSyntaxValidator,
		},
	}
}

func TestPlan_Deterministic(t *testing.T) {
	p := NewPlanner()
	step := backendStep()
	session := SessionContext{SessionID: "s1", ProjectID: "p1", WorkspacePath: "/tmp/ws"}

	first := p.Plan(step, session)
	second := p.Plan(step, session)

	if !reflect.DeepEqual(first, second) {
		t.Fatalf("expected byte-identical plans, got:\n%+v\nvs\n%+v", first, second)
	}
}

func TestPlan_OrdersPreCorePost(t *testing.T) {
	p := NewPlanner()
	plan := p.Plan(backendStep(), SessionContext{WorkspacePath: "/tmp/ws"})

	var order []string
	for _, e := range plan.Entries {
		order = append(order, e.ToolName)
	}

	wantCoreIdx := indexOf(order, "subagentcaller")
	wantPreIdx := indexOf(order, "environment_guard")
	wantPostIdx := indexOf(order, "static_code_validator")

	if wantPreIdx == -1 || wantCoreIdx == -1 || wantPostIdx == -1 {
		t.Fatalf("expected all declared tools present, got order %v", order)
	}
	if !(wantPreIdx < wantCoreIdx && wantCoreIdx < wantPostIdx) {
		t.Errorf("expected pre < core < post ordering, got %v", order)
	}
}

func TestPlan_OmitsUndeclaredCapabilities(t *testing.T) {
	p := NewPlanner()
	step := StepSpec{Name: "analysis", RequiredCapabilities: []string{CapSubAgentCaller}}
	plan := p.Plan(step, SessionContext{})

	if len(plan.Entries) != 1 || plan.Entries[0].ToolName != "subagentcaller" {
		t.Fatalf("expected exactly the declared capability's tool, got %+v", plan.Entries)
	}
}

func indexOf(s []string, v string) int {
	for i, x := range s {
		if x == v {
			return i
		}
	}
	return -1
}
