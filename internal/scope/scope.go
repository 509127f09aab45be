// Package scope tracks lexical bindings while a syntax tree is walked.
package scope

// Kind classifies a binding.
type Kind int

const (
	// KindFunction is a translation function alias such as `const tr = i18next.t`.
	KindFunction Kind = iota
	// KindHook is a function (or object holding one) obtained from a translation hook call.
	KindHook
	// KindValue is a local whose string values are statically known.
	KindValue
	// KindShadow hides an outer binding of the same name.
	KindShadow
)

func (k Kind) String() string {
	switch k {
	case KindFunction:
		return "function"
	case KindHook:
		return "hook"
	case KindValue:
		return "value"
	case KindShadow:
		return "shadow"
	}
	return "unknown"
}

// Binding is what a name means inside the scope that declared it.
type Binding struct {
	Alias string
	Kind  Kind
	// Namespaces holds the namespace hint of a hook; the first entry is the active one.
	Namespaces []string
	KeyPrefix  string
	// Values holds the literal strings a KindValue local can take.
	Values []string
}

// Namespace returns the active namespace hint, or "" when there is none.
func (b *Binding) Namespace() string {
	if b == nil || len(b.Namespaces) == 0 {
		return ""
	}
	return b.Namespaces[0]
}

// IsTranslator reports whether the binding names a translation function.
func (b *Binding) IsTranslator() bool {
	return b != nil && (b.Kind == KindFunction || b.Kind == KindHook)
}

type frame struct {
	bindings map[string]*Binding
	// types holds string literal unions declared with `type X = 'a' | 'b'`.
	types map[string][]string
}

// Resolver is a stack of scopes. One Resolver serves exactly one file walk.
type Resolver struct {
	frames []*frame
}

// New creates a resolver with the module scope already entered.
func New() *Resolver {
	r := &Resolver{}
	r.Enter()
	return r
}

// Enter pushes a child scope.
func (r *Resolver) Enter() {
	r.frames = append(r.frames, &frame{})
}

// Exit pops the innermost scope. The module scope is never popped.
func (r *Resolver) Exit() {
	if len(r.frames) > 1 {
		r.frames = r.frames[:len(r.frames)-1]
	}
}

// Depth returns the number of live scopes.
func (r *Resolver) Depth() int {
	return len(r.frames)
}

func (r *Resolver) top() *frame {
	return r.frames[len(r.frames)-1]
}

// Bind installs b under name in the innermost scope.
func (r *Resolver) Bind(name string, b Binding) {
	if name == "" {
		return
	}
	f := r.top()
	if f.bindings == nil {
		f.bindings = make(map[string]*Binding)
	}
	b.Alias = name
	f.bindings[name] = &b
}

// Shadow hides any outer binding of name for the rest of the innermost scope.
// Nothing is recorded when name is not bound.
func (r *Resolver) Shadow(name string) {
	if _, ok := r.lookup(name); !ok {
		return
	}
	r.Bind(name, Binding{Kind: KindShadow})
}

// Resolve returns the binding of name, searching innermost to outermost. Shadowed names
// resolve to nothing.
func (r *Resolver) Resolve(name string) (*Binding, bool) {
	b, ok := r.lookup(name)
	if !ok || b.Kind == KindShadow {
		return nil, false
	}
	return b, true
}

// Translator resolves name and reports whether it is bound to a translation function.
func (r *Resolver) Translator(name string) (*Binding, bool) {
	b, ok := r.Resolve(name)
	if !ok || !b.IsTranslator() {
		return nil, false
	}
	return b, true
}

func (r *Resolver) lookup(name string) (*Binding, bool) {
	for i := len(r.frames) - 1; i >= 0; i-- {
		if b, ok := r.frames[i].bindings[name]; ok {
			return b, true
		}
	}
	return nil, false
}

// BindType records a string literal union type alias in the innermost scope.
func (r *Resolver) BindType(name string, values []string) {
	f := r.top()
	if f.types == nil {
		f.types = make(map[string][]string)
	}
	f.types[name] = values
}

// ResolveType returns the literal values of a type alias.
func (r *Resolver) ResolveType(name string) ([]string, bool) {
	for i := len(r.frames) - 1; i >= 0; i-- {
		if v, ok := r.frames[i].types[name]; ok {
			return v, true
		}
	}
	return nil, false
}
