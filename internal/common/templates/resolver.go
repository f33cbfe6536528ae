package templates

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"header-rules/internal/common/errors"
	"header-rules/internal/common/logging"
	"header-rules/internal/models"
)

var (
	// ErrUnterminatedMarker is returned for a ${ without a closing }
	ErrUnterminatedMarker = stderrors.New("unterminated template marker")
	// ErrEmptyMarker is returned for ${}
	ErrEmptyMarker = stderrors.New("empty template marker")
	// ErrSyntax is returned for a marker body that cannot be parsed
	ErrSyntax = stderrors.New("template syntax error")
	// ErrUnknownFunction is returned for a call to an unregistered function
	ErrUnknownFunction = stderrors.New("unknown template function")
	// ErrArity is returned when a function gets the wrong number of arguments
	ErrArity = stderrors.New("wrong number of arguments")
	// ErrFunctionPanic is returned when a template function panics
	ErrFunctionPanic = stderrors.New("template function panicked")
)

// ResolverConfig configures a Resolver
type ResolverConfig struct {
	// ExtraPasses is how many additional passes run when the first pass
	// leaves markers behind. Zero means the default of one.
	ExtraPasses int
	// Now overrides the clock used by time functions
	Now func() time.Time
	// Logger receives resolution failures at debug level
	Logger logging.Logger
}

// Result is the outcome of resolving one template
type Result struct {
	Success             bool          `json:"success"`
	Value               string        `json:"value"`
	ResolvedVariables   []string      `json:"resolvedVariables"`
	UnresolvedVariables []string      `json:"unresolvedVariables"`
	Duration            time.Duration `json:"-"`
	ExecutionTime       float64       `json:"executionTime"` // milliseconds
	Passes              int           `json:"passes"`
	Volatile            bool          `json:"volatile"` // depends on time or randomness
	Err                 error         `json:"-"`
	Error               string        `json:"error,omitempty"`
}

// Resolver expands templates against a variable context. It is safe for
// concurrent use.
type Resolver struct {
	functions   map[string]Function
	mu          sync.RWMutex
	extraPasses int
	now         func() time.Time
	logger      logging.Logger
}

// NewResolver creates a resolver with the built-in function library
func NewResolver(config *ResolverConfig) *Resolver {
	if config == nil {
		config = &ResolverConfig{}
	}
	r := &Resolver{
		extraPasses: config.ExtraPasses,
		now:         config.Now,
		logger:      config.Logger,
	}
	if r.extraPasses <= 0 {
		r.extraPasses = 1
	}
	if r.now == nil {
		r.now = time.Now
	}
	if r.logger == nil {
		r.logger = logging.Component("templates")
	}
	r.functions = r.buildFunctionMap()
	return r
}

// Register adds or replaces a template function
func (r *Resolver) Register(name string, fn Function) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.functions[name] = fn
}

// Functions returns the names of all registered functions
func (r *Resolver) Functions() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.functions))
	for name := range r.functions {
		names = append(names, name)
	}
	return names
}

// evalState collects bookkeeping across one pass
type evalState struct {
	resolved   []string
	unresolved []string
	volatile   bool
}

func (s *evalState) addResolved(name string) {
	if !containsName(s.resolved, name) {
		s.resolved = append(s.resolved, name)
	}
}

func (s *evalState) addUnresolved(name string) {
	if !containsName(s.unresolved, name) {
		s.unresolved = append(s.unresolved, name)
	}
}

// Resolve expands template against vc. The returned Result is never nil, and
// a panicking function fails the result instead of the caller.
func (r *Resolver) Resolve(ctx context.Context, template string, vc *models.VariableContext) (result *Result) {
	start := time.Now()
	result = &Result{
		Value:               template,
		ResolvedVariables:   []string{},
		UnresolvedVariables: []string{},
	}
	defer func() {
		if rec := recover(); rec != nil {
			result = r.fail(result, template, fmt.Errorf("%w: %v", ErrFunctionPanic, rec))
		}
		result.Duration = time.Since(start)
		result.ExecutionTime = float64(result.Duration) / float64(time.Millisecond)
	}()

	if !HasTemplate(template) {
		result.Success = true
		return result
	}

	vars := vc.Lookup()
	value := template
	var resolved []string

	for pass := 0; pass <= r.extraPasses; pass++ {
		if err := ctx.Err(); err != nil {
			return r.fail(result, template, err)
		}

		state := &evalState{}
		out, err := r.resolvePass(value, vars, state)
		if err != nil {
			return r.fail(result, template, err)
		}
		result.Passes++
		for _, name := range state.resolved {
			if !containsName(resolved, name) {
				resolved = append(resolved, name)
			}
		}
		result.Volatile = result.Volatile || state.volatile

		changed := out != value
		value = out
		if !HasTemplate(value) || !changed {
			break
		}
	}

	result.Value = value
	result.ResolvedVariables = resolved
	if result.ResolvedVariables == nil {
		result.ResolvedVariables = []string{}
	}
	// whatever markers survived the pass budget are unresolved
	result.UnresolvedVariables = markerVariables(value)
	result.Success = len(result.UnresolvedVariables) == 0
	return result
}

func (r *Resolver) fail(result *Result, template string, err error) *Result {
	appErr := errors.ResolutionError("template resolution failed", err)
	r.logger.Debug("Template resolution failed",
		logging.String("template", template),
		logging.Err(err),
	)
	result.Success = false
	result.Value = template
	result.ResolvedVariables = []string{}
	result.UnresolvedVariables = []string{}
	result.Err = appErr
	result.Error = appErr.Error()
	return result
}

func (r *Resolver) resolvePass(template string, vars map[string]string, state *evalState) (string, error) {
	segments, err := parseTemplate(template)
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	for _, seg := range segments {
		if seg.expr == nil {
			sb.WriteString(seg.literal)
			continue
		}
		value, ok, err := r.eval(seg.expr, vars, state)
		if err != nil {
			return "", err
		}
		if !ok {
			sb.WriteString(seg.raw)
			continue
		}
		sb.WriteString(value)
	}
	return sb.String(), nil
}

// eval evaluates e. ok is false when a variable it depends on is missing.
func (r *Resolver) eval(e *expr, vars map[string]string, state *evalState) (string, bool, error) {
	switch e.kind {
	case exprString, exprNumber:
		return e.value, true, nil

	case exprVariable:
		value, found := vars[e.name]
		if !found {
			state.addUnresolved(e.name)
			return "", false, nil
		}
		state.addResolved(e.name)
		return value, true, nil

	case exprCall:
		r.mu.RLock()
		fn, found := r.functions[e.name]
		r.mu.RUnlock()
		if !found {
			return "", false, fmt.Errorf("%w: %s", ErrUnknownFunction, e.name)
		}
		if len(e.args) < fn.MinArgs || (fn.MaxArgs >= 0 && len(e.args) > fn.MaxArgs) {
			return "", false, fmt.Errorf("%w: %s takes %s, got %d", ErrArity, e.name, fn.arity(), len(e.args))
		}

		// lenient functions absorb missing arguments, so their misses are not
		// reported as unresolved
		argState := state
		if fn.Lenient {
			argState = &evalState{}
		}

		args := make([]string, len(e.args))
		complete := true
		for i, arg := range e.args {
			value, ok, err := r.eval(arg, vars, argState)
			if err != nil {
				return "", false, err
			}
			if !ok {
				complete = false
			}
			args[i] = value
		}
		if fn.Lenient {
			for _, name := range argState.resolved {
				state.addResolved(name)
			}
			state.volatile = state.volatile || argState.volatile
		} else if !complete {
			return "", false, nil
		}

		out, err := fn.Call(args)
		if err != nil {
			return "", false, fmt.Errorf("%s: %w", e.name, err)
		}
		if fn.Volatile {
			state.volatile = true
		}
		return out, true, nil

	default:
		return "", false, fmt.Errorf("%w: unknown expression", ErrSyntax)
	}
}

// markerVariables lists the variables referenced by the markers left in s
func markerVariables(s string) []string {
	names := []string{}
	if !HasTemplate(s) {
		return names
	}
	segments, err := parseTemplate(s)
	if err != nil {
		return names
	}
	var walk func(e *expr)
	walk = func(e *expr) {
		switch e.kind {
		case exprVariable:
			if !containsName(names, e.name) {
				names = append(names, e.name)
			}
		case exprCall:
			for _, arg := range e.args {
				walk(arg)
			}
		}
	}
	for _, seg := range segments {
		if seg.expr != nil {
			walk(seg.expr)
		}
	}
	return names
}

func containsName(names []string, name string) bool {
	for _, n := range names {
		if n == name {
			return true
		}
	}
	return false
}
