package less

// node is one statement or block of a parsed stylesheet.
type node interface {
	line() int
}

type pos struct {
	file string
	ln   int
}

func (p pos) line() int { return p.ln }

// decl is a `property: value` declaration.
type decl struct {
	pos
	prop  string
	value string
}

// varDecl is an `@name: value` variable definition.
type varDecl struct {
	pos
	name  string
	value string
}

// importStmt is an `@import` statement. CSS imports are passed through.
type importStmt struct {
	pos
	path string
	css  bool
	raw  string
}

// rawStmt is any other at-rule statement, such as @charset.
type rawStmt struct {
	pos
	text string
}

// mixinCall inlines the body of a parameterless mixin.
type mixinCall struct {
	pos
	name string
}

// ruleSet is a selector block. Mixin definitions (`.name() { }`) are never
// emitted on their own.
type ruleSet struct {
	pos
	selectors []string
	mixinOnly bool
	children  []node
}

// atBlock is a block at-rule. Conditional groups (@media, @supports) bubble
// up through enclosing selectors; the others are emitted where they stand.
type atBlock struct {
	pos
	name     string
	params   string
	children []node
}

func (a *atBlock) conditional() bool {
	return a.name == "media" || a.name == "supports"
}

func (a *atBlock) prelude() string {
	if a.params == "" {
		return "@" + a.name
	}
	return "@" + a.name + " " + a.params
}
