// Package templates resolves the variable templates used in header values.
//
// A template is plain text with embedded markers:
//
//	${name}                  variable reference
//	${fn()}                  function call
//	${fn(name, 'literal', 3)} function call with arguments
//	${upper(default(env, 'dev'))} nested calls
//
// Variables are looked up in a models.VariableContext, where the most
// specific scope wins (system < global < profile < rule). Built-in request
// variables (request.url, request.method, request.domain, request.path) and
// profile.id sit below the system scope.
//
// Resolution runs one pass plus a bounded number of extra passes so that a
// variable whose value is itself a template gets expanded. It never loops to
// a fixpoint. Unknown variables leave their marker in place and are reported
// as unresolved. Any hard error (unterminated marker, bad syntax, unknown
// function, failing function) returns the original template untouched.
//
// Usage Example:
//
//	resolver := templates.NewResolver(nil)
//	vc := &models.VariableContext{
//		Global: []models.Variable{{Name: "token", Value: "abc123", Scope: models.ScopeGlobal, Enabled: true}},
//	}
//	result := resolver.Resolve(ctx, "Bearer ${token}", vc)
//	fmt.Println(result.Value) // "Bearer abc123"
package templates
