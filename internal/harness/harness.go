package harness

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"reflect"
	"regexp"
	"slices"
	"sort"
	"strconv"
	"strings"

	"github.com/roach88/entgraph/internal/engine"
	"github.com/roach88/entgraph/internal/queryir"
	"github.com/roach88/entgraph/internal/server"
	"github.com/roach88/entgraph/internal/store"
	"github.com/roach88/entgraph/internal/testutil"
)

// Harness executes one scenario against a private registry.
type Harness struct {
	registry  *engine.Registry
	handler   http.Handler
	namespace string
	vars      map[string]any
}

// Run executes a scenario in a fresh temporary data directory and
// returns its trace and any failed expectations. The error return is
// reserved for infrastructure failures and failing setup steps.
func Run(ctx context.Context, scenario *Scenario) (*Result, error) {
	dir, err := os.MkdirTemp("", "entgraph-scenario-*")
	if err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	defer os.RemoveAll(dir)

	policy, err := queryir.ParsePolicy(scenario.FieldPolicy)
	if err != nil {
		return nil, err
	}
	namespace := scenario.Namespace
	if namespace == "" {
		namespace = "default"
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	reg := engine.NewRegistry(engine.RegistryConfig{
		DataDir:          dir,
		DefaultNamespace: namespace,
		FieldPolicy:      policy,
		StoreOptions: []store.Option{
			store.WithClock(testutil.NewDeterministicClock()),
			store.WithIDGenerator(testutil.NewSequentialIDGenerator("rec")),
		},
		Logger: logger,
	})
	defer reg.Close()

	h := &Harness{
		registry:  reg,
		handler:   server.New(reg, logger, server.Options{}).Handler(),
		namespace: namespace,
		vars:      make(map[string]any),
	}

	for i, step := range scenario.Setup {
		status, body, err := h.execute(ctx, step)
		if err != nil {
			return nil, fmt.Errorf("setup[%d]: %w", i, err)
		}
		if status/100 != 2 {
			return nil, fmt.Errorf("setup[%d] %s %s: status %d: %v", i, step.Method, step.Path, status, body)
		}
		if err := h.capture(step, body); err != nil {
			return nil, fmt.Errorf("setup[%d]: %w", i, err)
		}
	}

	result := NewResult()
	for i, step := range scenario.Steps {
		status, body, err := h.execute(ctx, step)
		if err != nil {
			return nil, fmt.Errorf("steps[%d]: %w", i, err)
		}
		result.AddTrace(TraceEvent{
			Step:   step.Name,
			Method: step.Method,
			Path:   h.substituteString(step.Path),
			Status: status,
			IDs:    responseIDs(body),
			Body:   body,
		})

		label := fmt.Sprintf("steps[%d]", i)
		if step.Name != "" {
			label = fmt.Sprintf("steps[%d] (%s)", i, step.Name)
		}
		if step.Expect != nil {
			for _, msg := range h.checkExpect(step.Expect, status, body) {
				result.AddError(label + ": " + msg)
			}
		}
		if err := h.capture(step, body); err != nil {
			result.AddError(label + ": " + err.Error())
		}
	}

	for _, msg := range h.evaluateAssertions(ctx, result, scenario.Assertions) {
		result.AddError(msg)
	}
	return result, nil
}

// execute sends one request and decodes the JSON response body.
func (h *Harness) execute(ctx context.Context, step Step) (int, any, error) {
	var reader io.Reader
	switch b := step.Body.(type) {
	case nil:
	case string:
		reader = strings.NewReader(h.substituteString(b))
	default:
		buf, err := json.Marshal(h.substitute(b))
		if err != nil {
			return 0, nil, fmt.Errorf("encode body: %w", err)
		}
		reader = bytes.NewReader(buf)
	}

	req := httptest.NewRequest(step.Method, h.substituteString(step.Path), reader).WithContext(ctx)
	if reader != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.handler.ServeHTTP(rec, req)

	var body any
	if raw := bytes.TrimSpace(rec.Body.Bytes()); len(raw) > 0 {
		if err := json.Unmarshal(raw, &body); err != nil {
			return 0, nil, fmt.Errorf("decode response %q: %w", raw, err)
		}
	}
	return rec.Code, body, nil
}

func (h *Harness) capture(step Step, body any) error {
	for name, path := range step.Capture {
		v, ok := lookup(body, path)
		if !ok {
			return fmt.Errorf("capture %s: no value at %q", name, path)
		}
		h.vars[name] = v
	}
	return nil
}

var varPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// substitute replaces ${name} references throughout v. A string that is
// exactly one reference takes the captured value with its JSON type.
func (h *Harness) substitute(v any) any {
	switch val := v.(type) {
	case string:
		if m := varPattern.FindStringSubmatch(val); m != nil && m[0] == val {
			if captured, ok := h.vars[m[1]]; ok {
				return captured
			}
		}
		return h.substituteString(val)
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[k] = h.substitute(item)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = h.substitute(item)
		}
		return out
	default:
		return v
	}
}

func (h *Harness) substituteString(s string) string {
	return varPattern.ReplaceAllStringFunc(s, func(ref string) string {
		name := ref[2 : len(ref)-1]
		if v, ok := h.vars[name]; ok {
			return fmt.Sprint(v)
		}
		return ref
	})
}

func (h *Harness) checkExpect(exp *Expect, status int, body any) []string {
	var errs []string
	if exp.Status != 0 && status != exp.Status {
		errs = append(errs, fmt.Sprintf("status = %d, want %d (body: %v)", status, exp.Status, body))
	}
	if exp.Null && body != nil {
		errs = append(errs, fmt.Sprintf("body = %v, want null", body))
	}
	if exp.Error != "" {
		msg, _ := lookup(body, "error")
		if s, ok := msg.(string); !ok || !strings.Contains(s, exp.Error) {
			errs = append(errs, fmt.Sprintf("error = %v, want it to contain %q", msg, exp.Error))
		}
	}
	if exp.IDs != nil {
		if got := responseIDs(body); !slices.Equal(got, exp.IDs) {
			errs = append(errs, fmt.Sprintf("ids = %v, want %v", got, exp.IDs))
		}
	}
	if exp.Count != nil {
		items, ok := body.([]any)
		if !ok {
			errs = append(errs, fmt.Sprintf("count: body is not an array: %v", body))
		} else if len(items) != *exp.Count {
			errs = append(errs, fmt.Sprintf("count = %d, want %d", len(items), *exp.Count))
		}
	}
	if exp.Body != nil {
		want, err := normalize(h.substitute(exp.Body))
		if err != nil {
			errs = append(errs, err.Error())
		} else if err := matchSubset(want, body, "body"); err != nil {
			errs = append(errs, err.Error())
		}
	}
	return errs
}

// normalize round-trips v through JSON so YAML ints compare equal to
// decoded JSON numbers.
func normalize(v any) (any, error) {
	buf, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("normalize expectation: %w", err)
	}
	var out any
	if err := json.Unmarshal(buf, &out); err != nil {
		return nil, fmt.Errorf("normalize expectation: %w", err)
	}
	return out, nil
}

// matchSubset reports the first place actual diverges from want. Objects
// in actual may carry keys want does not name.
func matchSubset(want, actual any, path string) error {
	switch w := want.(type) {
	case map[string]any:
		a, ok := actual.(map[string]any)
		if !ok {
			return fmt.Errorf("%s: got %v, want an object", path, actual)
		}
		keys := make([]string, 0, len(w))
		for k := range w {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			av, ok := a[k]
			if !ok {
				return fmt.Errorf("%s.%s: missing", path, k)
			}
			if err := matchSubset(w[k], av, path+"."+k); err != nil {
				return err
			}
		}
		return nil
	case []any:
		a, ok := actual.([]any)
		if !ok {
			return fmt.Errorf("%s: got %v, want an array", path, actual)
		}
		if len(a) != len(w) {
			return fmt.Errorf("%s: length %d, want %d", path, len(a), len(w))
		}
		for i := range w {
			if err := matchSubset(w[i], a[i], fmt.Sprintf("%s[%d]", path, i)); err != nil {
				return err
			}
		}
		return nil
	default:
		if !reflect.DeepEqual(want, actual) {
			return fmt.Errorf("%s: got %v, want %v", path, actual, want)
		}
		return nil
	}
}

// lookup resolves a dot path of object keys and array indexes.
func lookup(v any, path string) (any, bool) {
	cur := v
	for _, part := range strings.Split(path, ".") {
		switch node := cur.(type) {
		case map[string]any:
			next, ok := node[part]
			if !ok {
				return nil, false
			}
			cur = next
		case []any:
			i, err := strconv.Atoi(part)
			if err != nil || i < 0 || i >= len(node) {
				return nil, false
			}
			cur = node[i]
		default:
			return nil, false
		}
	}
	return cur, true
}

// responseIDs lists the ids in a record or edge response, in order. Edges
// are named from-[relation]->to.
func responseIDs(body any) []string {
	switch v := body.(type) {
	case []any:
		ids := []string{}
		for _, item := range v {
			if id := itemID(item); id != "" {
				ids = append(ids, id)
			}
		}
		return ids
	case map[string]any:
		if id := itemID(v); id != "" {
			return []string{id}
		}
	}
	return nil
}

func itemID(v any) string {
	m, ok := v.(map[string]any)
	if !ok {
		return ""
	}
	if id, ok := m["id"].(string); ok {
		return id
	}
	from, okFrom := m["from_id"].(string)
	rel, okRel := m["relation"].(string)
	to, okTo := m["to_id"].(string)
	if okFrom && okRel && okTo {
		return from + "-[" + rel + "]->" + to
	}
	return ""
}
