package harness

import (
	"bytes"
	"fmt"
	"net/http"
	"os"
	"slices"

	"gopkg.in/yaml.v3"

	"github.com/roach88/entgraph/internal/engine"
	"github.com/roach88/entgraph/internal/queryir"
)

// Scenario is a sequence of HTTP requests with expectations.
type Scenario struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`

	// FieldPolicy is "drop" (default) or "reject".
	FieldPolicy string `yaml:"field_policy,omitempty"`

	// Namespace is the default namespace; "default" when empty.
	Namespace string `yaml:"namespace,omitempty"`

	// Setup steps run before Steps and must all succeed with a 2xx status.
	// They are left out of the trace.
	Setup []Step `yaml:"setup,omitempty"`

	Steps      []Step      `yaml:"steps"`
	Assertions []Assertion `yaml:"assertions,omitempty"`
}

// Step is one HTTP request.
type Step struct {
	Name   string `yaml:"name"`
	Method string `yaml:"method"`
	Path   string `yaml:"path"`

	// Body is encoded as JSON. A string is sent verbatim, which allows
	// malformed bodies.
	Body any `yaml:"body,omitempty"`

	// Capture maps a variable name to a dot path in the response body,
	// e.g. {first: "0.id"} or {created: created_at}.
	Capture map[string]string `yaml:"capture,omitempty"`

	Expect *Expect `yaml:"expect,omitempty"`
}

// Expect describes the expected response. Zero fields are not checked.
type Expect struct {
	Status int `yaml:"status"`

	// Body is matched as a subset: objects may carry extra keys, arrays
	// must have the same length.
	Body any `yaml:"body,omitempty"`

	// IDs is the exact ordered list of ids in an array response.
	IDs []string `yaml:"ids,omitempty"`

	// Count is the length of an array response.
	Count *int `yaml:"count,omitempty"`

	// Null expects a JSON null body.
	Null bool `yaml:"null,omitempty"`

	// Error is a substring of the {"error": ...} message.
	Error string `yaml:"error,omitempty"`
}

// Assertion checks namespace state after all steps ran.
type Assertion struct {
	Type string `yaml:"type"`

	// Namespace defaults to the scenario namespace.
	Namespace string `yaml:"namespace,omitempty"`

	// final_state: records of RecordType matching Where.
	RecordType string         `yaml:"record_type,omitempty"`
	Where      map[string]any `yaml:"where,omitempty"`
	IDs        []string       `yaml:"ids,omitempty"`

	// edge_count: edges matching the non-empty fields.
	FromID   string `yaml:"from_id,omitempty"`
	ToID     string `yaml:"to_id,omitempty"`
	Relation string `yaml:"relation,omitempty"`

	// trace_contains / trace_count: steps with this method, path and status.
	Method string `yaml:"method,omitempty"`
	Path   string `yaml:"path,omitempty"`
	Status int    `yaml:"status,omitempty"`

	Count *int `yaml:"count,omitempty"`
}

// Assertion type constants.
const (
	AssertFinalState    = "final_state"
	AssertEdgeCount     = "edge_count"
	AssertTraceContains = "trace_contains"
	AssertTraceCount    = "trace_count"
)

var methods = []string{
	http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete,
	http.MethodPut, http.MethodOptions,
}

// LoadScenario reads and parses a scenario YAML file. Unknown keys are
// rejected so typos fail loudly.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses and validates scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}
	if _, err := queryir.ParsePolicy(s.FieldPolicy); err != nil {
		return err
	}
	if s.Namespace != "" && !engine.ValidNamespace(s.Namespace) {
		return fmt.Errorf("invalid namespace %q", s.Namespace)
	}

	for i, step := range s.Setup {
		if err := validateStep(step); err != nil {
			return fmt.Errorf("setup[%d]: %w", i, err)
		}
	}
	for i, step := range s.Steps {
		if err := validateStep(step); err != nil {
			return fmt.Errorf("steps[%d]: %w", i, err)
		}
	}
	for i, a := range s.Assertions {
		if err := validateAssertion(a); err != nil {
			return fmt.Errorf("assertions[%d]: %w", i, err)
		}
	}
	return nil
}

func validateStep(step Step) error {
	if !slices.Contains(methods, step.Method) {
		return fmt.Errorf("unsupported method %q", step.Method)
	}
	if step.Path == "" || step.Path[0] != '/' {
		return fmt.Errorf("path must start with /")
	}
	return nil
}

func validateAssertion(a Assertion) error {
	switch a.Type {
	case AssertFinalState:
		if a.RecordType == "" {
			return fmt.Errorf("record_type is required for final_state")
		}
		if a.IDs == nil && a.Count == nil {
			return fmt.Errorf("ids or count is required for final_state")
		}
	case AssertEdgeCount:
		if a.Count == nil {
			return fmt.Errorf("count is required for edge_count")
		}
	case AssertTraceContains:
		if a.Method == "" || a.Path == "" {
			return fmt.Errorf("method and path are required for trace_contains")
		}
	case AssertTraceCount:
		if a.Count == nil || a.Status == 0 {
			return fmt.Errorf("status and count are required for trace_count")
		}
	case "":
		return fmt.Errorf("type is required")
	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
	if a.Count != nil && *a.Count < 0 {
		return fmt.Errorf("count must be non-negative")
	}
	return nil
}
