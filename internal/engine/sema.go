package engine

import (
	"fmt"
	"strings"

	"github.com/jward/cindex/kinds"
)

// declPred selects which declarations a lookup accepts.
type declPred func(u *Unit, n *Node) bool

func isTagDecl(_ *Unit, n *Node) bool {
	switch n.Kind {
	case kinds.StructDecl, kinds.UnionDecl, kinds.ClassDecl, kinds.EnumDecl, kinds.ClassTemplate:
		return true
	}
	return false
}

// isTypeDecl accepts names usable as a type specifier. In C tags live in
// their own namespace and need the struct/union/enum keyword.
func isTypeDecl(u *Unit, n *Node) bool {
	switch n.Kind {
	case kinds.TypedefDecl, kinds.TypeAliasDecl, kinds.TemplateTypeParameter, kinds.TemplateTemplateParameter:
		return true
	}
	return u.Lang == LangCPP && isTagDecl(u, n)
}

func isScopeDecl(u *Unit, n *Node) bool {
	switch n.Kind {
	case kinds.Namespace, kinds.NamespaceAlias:
		return true
	}
	return isTypeDecl(u, n)
}

func isNamespaceDecl(_ *Unit, n *Node) bool {
	return n.Kind == kinds.Namespace || n.Kind == kinds.NamespaceAlias
}

func isValueDecl(_ *Unit, n *Node) bool {
	switch n.Kind {
	case kinds.VarDecl, kinds.ParmDecl, kinds.FieldDecl, kinds.FunctionDecl, kinds.CXXMethod,
		kinds.FunctionTemplate, kinds.EnumConstantDecl, kinds.ConversionFunction,
		kinds.TemplateNonTypeParameter:
		return true
	}
	return false
}

func isAnyDecl(_ *Unit, n *Node) bool {
	return n.Kind.IsDeclaration() && n.Name != ""
}

func isFunctionKind(k kinds.CursorKind) bool {
	switch k {
	case kinds.FunctionDecl, kinds.CXXMethod, kinds.Constructor, kinds.Destructor,
		kinds.ConversionFunction, kinds.FunctionTemplate:
		return true
	}
	return false
}

// =============================================================================
// Name lookup
// =============================================================================

// lookup finds the innermost visible declaration of name from the scope
// node from. limit, when non-zero, hides nodes allocated at or after it
// outside class scopes.
func (u *Unit) lookup(from NodeID, name string, pred declPred, limit NodeID) NodeID {
	found := u.lookupAll(from, name, pred, limit)
	if len(found) == 0 {
		return 0
	}
	return found[len(found)-1]
}

// lookupAll returns every match in the innermost scope that has any.
func (u *Unit) lookupAll(from NodeID, name string, pred declPred, limit NodeID) []NodeID {
	if name == "" {
		return nil
	}
	for s := from; u.Valid(s); s = u.enclosing(s) {
		if found := u.lookupAllIn(s, name, pred, limit); len(found) > 0 {
			return found
		}
	}
	return nil
}

// enclosing is the next scope outward. Out-of-line members continue in
// the class or namespace they belong to.
func (u *Unit) enclosing(s NodeID) NodeID {
	n := &u.Nodes[s]
	if n.SemParent != 0 && n.SemParent != n.Parent && u.Valid(n.SemParent) &&
		(isFunctionKind(n.Kind) || n.Kind == kinds.VarDecl) {
		if sp := u.Nodes[n.SemParent].Kind; isRecordKind(sp) || sp == kinds.Namespace {
			return n.SemParent
		}
	}
	return n.Parent
}

func (u *Unit) lookupIn(s NodeID, name string, pred declPred, limit NodeID) NodeID {
	found := u.lookupAllIn(s, name, pred, limit)
	if len(found) == 0 {
		return 0
	}
	return found[len(found)-1]
}

func (u *Unit) lookupAllIn(s NodeID, name string, pred declPred, limit NodeID) []NodeID {
	var out []NodeID
	u.collect(s, name, pred, limit, &out, 0)
	return out
}

func (u *Unit) collect(s NodeID, name string, pred declPred, limit NodeID, out *[]NodeID, depth int) {
	if depth > 16 || !u.Valid(s) {
		return
	}
	n := &u.Nodes[s]
	record := isRecordKind(n.Kind)
	if record {
		s = u.definitionOf(s)
		limit = 0
	}
	scopes := []NodeID{s}
	if n.Kind == kinds.Namespace && n.Name != "" {
		scopes = u.namespaceParts(s)
	}
	before := len(*out)
	for _, sc := range scopes {
		for _, c := range u.Nodes[sc].Children {
			if limit != 0 && c >= limit {
				break
			}
			u.visitDecl(c, name, pred, limit, out, depth)
		}
	}
	if record && len(*out) == before {
		for _, c := range u.Nodes[s].Children {
			if b := &u.Nodes[c]; b.Kind == kinds.CXXBaseSpecifier && b.Ref != 0 {
				u.collect(u.scopeTarget(b.Ref), name, pred, 0, out, depth+1)
			}
		}
	}
}

func (u *Unit) visitDecl(c NodeID, name string, pred declPred, limit NodeID, out *[]NodeID, depth int) {
	cn := &u.Nodes[c]
	if cn.Name == name && pred(u, cn) {
		*out = append(*out, c)
	}
	switch cn.Kind {
	case kinds.DeclStmt, kinds.LinkageSpec:
		for _, cc := range cn.Children {
			if limit != 0 && cc >= limit {
				break
			}
			u.visitDecl(cc, name, pred, limit, out, depth)
		}
	case kinds.UsingDeclaration:
		if cn.Name == name {
			for _, o := range cn.Overloads {
				if pred(u, &u.Nodes[o]) {
					*out = append(*out, o)
				}
			}
		}
	case kinds.UsingDirective:
		if cn.Ref != 0 {
			u.collect(cn.Ref, name, pred, 0, out, depth+1)
		}
	case kinds.EnumDecl:
		if cn.Has(FlagScoped) {
			return
		}
		for _, e := range cn.Children {
			if en := &u.Nodes[e]; en.Kind == kinds.EnumConstantDecl && en.Name == name && pred(u, en) {
				*out = append(*out, e)
			}
		}
	case kinds.StructDecl, kinds.UnionDecl:
		if cn.Has(FlagAnonymous) && isRecordKind(u.Nodes[cn.Parent].Kind) {
			u.collect(c, name, pred, 0, out, depth+1)
		}
	}
}

// namespaceParts lists every opening of the namespace s in its parent.
func (u *Unit) namespaceParts(s NodeID) []NodeID {
	n := &u.Nodes[s]
	var parts []NodeID
	for _, c := range u.Nodes[n.Parent].Children {
		if cn := &u.Nodes[c]; cn.Kind == kinds.Namespace && cn.Name == n.Name {
			parts = append(parts, c)
		}
	}
	if len(parts) == 0 {
		return []NodeID{s}
	}
	return parts
}

// visibleDecls lists the named declarations visible from scope node
// from, innermost first, honoring limit like lookup.
func (u *Unit) visibleDecls(from NodeID, limit NodeID) []NodeID {
	seen := map[string]bool{}
	var out []NodeID
	add := func(id NodeID) {
		n := &u.Nodes[id]
		if n.Name == "" || seen[n.Name] || n.Kind == kinds.UsingDirective {
			return
		}
		if !isValueDecl(u, n) && !isTypeDecl(u, n) && !isTagDecl(u, n) && !isNamespaceDecl(u, n) {
			return
		}
		seen[n.Name] = true
		out = append(out, id)
	}
	var scan func(s NodeID, depth int)
	scan = func(s NodeID, depth int) {
		if depth > 16 {
			return
		}
		for _, c := range u.Nodes[s].Children {
			if limit != 0 && c >= limit && !isRecordKind(u.Nodes[s].Kind) {
				break
			}
			cn := &u.Nodes[c]
			add(c)
			switch cn.Kind {
			case kinds.DeclStmt, kinds.LinkageSpec:
				scan(c, depth+1)
			case kinds.EnumDecl:
				if !cn.Has(FlagScoped) {
					scan(c, depth+1)
				}
			case kinds.UsingDirective:
				if cn.Ref != 0 {
					scan(cn.Ref, depth+1)
				}
			}
		}
	}
	for s := from; u.Valid(s); s = u.enclosing(s) {
		scan(s, 0)
	}
	return out
}

// =============================================================================
// Post-pass
// =============================================================================

// finish runs the semantic passes that need the whole unit.
func (b *builder) finish() {
	b.resolveDeferred()
	b.resolveLabels()
	b.linkRedeclarations()
	b.u.computeUSRs()
	b.u.computeDisplayNames()
	if b.u.Options&ParseIncomplete == 0 {
		b.unusedFunctions()
	}
	if b.cfg.excludePCH && b.u.Options&ParsePrecompiledPreamble != 0 {
		b.hidePreamble()
	}
}

// resolveDeferred retries names used in class scope before the member
// they name was declared.
func (b *builder) resolveDeferred() {
	for _, id := range b.deferred {
		n := &b.u.Nodes[id]
		nargs := -1
		if p := &b.u.Nodes[n.Parent]; p.Kind == kinds.CallExpr {
			if kids := b.u.exprKids(n.Parent); len(kids) > 0 && kids[0] == id {
				nargs = len(kids) - 1
			}
		}
		decl := b.u.pickOverload(b.u.lookupAll(n.Parent, n.Name, isValueDecl, id), nargs)
		if decl == 0 {
			b.emit(Diagnostic{
				Severity: SeverityError,
				Loc:      n.Loc,
				Message:  fmt.Sprintf("use of undeclared identifier '%s'", n.Name),
				Category: CategorySemantic,
				Ranges:   []Range{n.Extent},
			})
			continue
		}
		b.u.bindRef(id, decl)
		for p := b.u.Nodes[id].Parent; b.u.Valid(p) && b.u.Nodes[p].Kind.IsExpression(); p = b.u.Nodes[p].Parent {
			if b.u.Nodes[p].Kind == kinds.CallExpr && b.u.Nodes[p].Ref == 0 {
				b.u.Nodes[p].Ref = decl
				b.u.Nodes[p].Name = b.u.Nodes[decl].Name
			}
			b.u.Nodes[p].Type = b.u.exprType(p)
		}
	}
}

func (b *builder) resolveLabels() {
	for i := range b.u.Nodes {
		n := &b.u.Nodes[i]
		if n.Kind != kinds.LabelRef || n.Ref != 0 {
			continue
		}
		fn := n.Parent
		for b.u.Valid(fn) && !isFunctionKind(b.u.Nodes[fn].Kind) && b.u.Nodes[fn].Kind != kinds.LambdaExpr {
			fn = b.u.Nodes[fn].Parent
		}
		var label NodeID
		if b.u.Valid(fn) {
			b.u.Walk(fn, func(id NodeID) bool {
				if ln := &b.u.Nodes[id]; ln.Kind == kinds.LabelStmt && ln.Name == n.Name {
					label = id
					return false
				}
				return label == 0
			})
		}
		if label == 0 {
			b.emit(Diagnostic{
				Severity: SeverityError,
				Loc:      n.Loc,
				Message:  fmt.Sprintf("use of undeclared label '%s'", n.Name),
				Category: CategorySemantic,
			})
			continue
		}
		b.u.Nodes[i].Ref = label
	}
}

// redeclKey groups declarations of the same entity.
type redeclKey struct {
	family string
	scope  NodeID
	name   string
	sig    string
}

func (b *builder) redeclKeyOf(id NodeID) (redeclKey, bool) {
	u := b.u
	n := &u.Nodes[id]
	if n.Name == "" && !isTagDecl(u, n) {
		return redeclKey{}, false
	}
	scope := n.SemParent
	if u.Valid(scope) && u.Nodes[scope].Canonical != 0 {
		scope = u.Nodes[scope].Canonical
	}
	switch {
	case isFunctionKind(n.Kind):
		sig := ""
		if b.cpp {
			sig = u.signature(n.Type)
			if n.Has(FlagConstMethod) {
				sig += " const"
			}
		}
		return redeclKey{"f", scope, n.Name, sig}, true
	case n.Kind == kinds.VarDecl:
		if u.Valid(n.SemParent) && isFunctionKind(u.Nodes[n.SemParent].Kind) && !n.Has(FlagExtern) {
			// Locals collide only within one block.
			return redeclKey{"l", u.blockOf(id), n.Name, ""}, true
		}
		return redeclKey{"v", scope, n.Name, ""}, true
	case n.Kind == kinds.Namespace:
		if n.Has(FlagAnonymous) {
			return redeclKey{"n", scope, "", ""}, true
		}
		return redeclKey{"n", scope, n.Name, ""}, true
	case isTagDecl(u, n):
		return redeclKey{"t", n.Canonical, "", ""}, true
	case n.Kind == kinds.FieldDecl:
		return redeclKey{"m", scope, n.Name, ""}, true
	}
	return redeclKey{}, false
}

// blockOf is the innermost statement block holding a local.
func (u *Unit) blockOf(id NodeID) NodeID {
	p := u.Nodes[id].Parent
	for u.Valid(p) && u.Nodes[p].Kind == kinds.DeclStmt {
		p = u.Nodes[p].Parent
	}
	return p
}

// signature spells a function type's parameters canonically.
func (u *Unit) signature(t TypeID) string {
	ft := u.TypeOf(t)
	var ps []string
	for _, p := range ft.Params {
		ps = append(ps, u.Spelling(u.Canonical(p)))
	}
	if ft.Variadic {
		ps = append(ps, "...")
	}
	return strings.Join(ps, ",")
}

// linkRedeclarations sets Canonical and Definition across redeclaration
// chains and reports conflicting definitions.
func (b *builder) linkRedeclarations() {
	u := b.u
	groups := make(map[redeclKey][]NodeID)
	var order []redeclKey
	for i := 2; i < len(u.Nodes); i++ {
		id := NodeID(i)
		if !u.Nodes[id].Kind.IsDeclaration() {
			continue
		}
		key, ok := b.redeclKeyOf(id)
		if !ok {
			if u.Nodes[id].Canonical == 0 {
				u.Nodes[id].Canonical = id
			}
			continue
		}
		if key.family == "n" && key.name == "" {
			key.scope = id
		}
		if _, seen := groups[key]; !seen {
			order = append(order, key)
		}
		groups[key] = append(groups[key], id)
		// Later members of nested groups read their scope's canonical,
		// which is assigned here in allocation order.
		u.Nodes[id].Canonical = groups[key][0]
	}

	for _, key := range order {
		ids := groups[key]
		var def NodeID
		for _, id := range ids {
			n := &u.Nodes[id]
			if !b.definesEntity(key.family, id) {
				continue
			}
			if def == 0 {
				def = id
				continue
			}
			if key.family == "v" && !b.cpp && !b.hasInit(def) && !b.hasInit(id) {
				continue
			}
			if key.family == "m" || key.family == "n" {
				continue
			}
			prev := &u.Nodes[def]
			b.emit(Diagnostic{
				Severity: SeverityError,
				Loc:      n.Loc,
				Message:  fmt.Sprintf("redefinition of '%s'", n.Name),
				Category: CategorySemantic,
				Ranges:   []Range{n.NameRange},
				Children: []Diagnostic{{
					Severity: SeverityNote,
					Loc:      prev.Loc,
					Message:  "previous definition is here",
					Category: CategorySemantic,
				}},
			})
		}
		if key.family == "v" && !b.cpp {
			for _, id := range ids {
				if b.hasInit(id) {
					def = id
					break
				}
			}
		}
		if key.family == "n" {
			def = ids[0]
		}
		for _, id := range ids {
			u.Nodes[id].Canonical = ids[0]
			u.Nodes[id].Definition = def
		}
	}
}

func (b *builder) definesEntity(family string, id NodeID) bool {
	n := &b.u.Nodes[id]
	switch family {
	case "f", "t":
		return n.Has(FlagDefinition)
	case "v":
		return n.Has(FlagDefinition)
	case "l", "m", "n":
		return true
	}
	return false
}

func (b *builder) hasInit(id NodeID) bool {
	return len(b.u.exprKids(id)) > 0
}

func (u *Unit) computeDisplayNames() {
	for i := 1; i < len(u.Nodes); i++ {
		n := &u.Nodes[i]
		if n.Display != "" && n.Kind != kinds.ClassDecl {
			continue
		}
		switch {
		case isFunctionKind(n.Kind):
			ft := u.TypeOf(n.Type)
			var ps []string
			for _, p := range ft.Params {
				ps = append(ps, u.Spelling(p))
			}
			if ft.Variadic {
				ps = append(ps, "...")
			}
			n.Display = n.Name + "(" + strings.Join(ps, ", ") + ")"
		default:
			n.Display = n.Name
		}
	}
}

// unusedFunctions warns about static function definitions in the main
// file that nothing references.
func (b *builder) unusedFunctions() {
	u := b.u
	used := make(map[NodeID]bool)
	for i := range u.Nodes {
		if r := u.Nodes[i].Ref; r != 0 && u.Valid(r) {
			used[u.Nodes[r].Canonical] = true
		}
	}
	for i := 2; i < len(u.Nodes); i++ {
		n := &u.Nodes[i]
		if n.Kind != kinds.FunctionDecl || !n.Has(FlagStatic) || !n.Has(FlagDefinition) ||
			n.Loc.File != u.MainFile || used[n.Canonical] {
			continue
		}
		b.emit(Diagnostic{
			Severity: SeverityWarning,
			Loc:      n.Loc,
			Message:  fmt.Sprintf("unused function '%s'", n.Name),
			Option:   "unused-function",
			Category: CategoryUnused,
			Ranges:   []Range{n.NameRange},
		})
	}
}

// hidePreamble drops top-level declarations that came from the
// preamble's headers from the root's children.
func (b *builder) hidePreamble() {
	root := &b.u.Nodes[b.u.Root()]
	kept := root.Children[:0]
	for _, c := range root.Children {
		n := &b.u.Nodes[c]
		if n.Has(FlagFromPreamble) && n.Kind.IsDeclaration() {
			continue
		}
		kept = append(kept, c)
	}
	root.Children = kept
}

// =============================================================================
// Linkage and storage
// =============================================================================

// Linkage values, numbered as libclang does.
const (
	LinkageInvalid = iota
	LinkageNone
	LinkageInternal
	LinkageUniqueExternal
	LinkageExternal
)

// Linkage classifies how the declaration id is visible across units.
func (u *Unit) Linkage(id NodeID) int {
	n := &u.Nodes[id]
	if !n.Kind.IsDeclaration() {
		return LinkageInvalid
	}
	if u.inAnonymousNamespace(id) {
		return LinkageInternal
	}
	local := false
	for p := n.SemParent; u.Valid(p); p = u.Nodes[p].SemParent {
		if isFunctionKind(u.Nodes[p].Kind) {
			local = true
			break
		}
	}
	switch n.Kind {
	case kinds.FunctionDecl, kinds.FunctionTemplate:
		if n.Has(FlagStatic) || u.Nodes[n.Canonical].Has(FlagStatic) {
			return LinkageInternal
		}
		return LinkageExternal
	case kinds.VarDecl:
		switch {
		case local && !n.Has(FlagExtern):
			return LinkageNone
		case n.Has(FlagStatic) && !isRecordKind(u.Nodes[n.SemParent].Kind):
			return LinkageInternal
		case u.Lang == LangCPP && u.TypeOf(n.Type).Quals&QualConst != 0 && !n.Has(FlagExtern):
			return LinkageInternal
		}
		return LinkageExternal
	case kinds.CXXMethod, kinds.Constructor, kinds.Destructor, kinds.ConversionFunction:
		return LinkageExternal
	case kinds.StructDecl, kinds.UnionDecl, kinds.ClassDecl, kinds.EnumDecl, kinds.ClassTemplate:
		if u.Lang != LangCPP || local || n.Has(FlagAnonymous) {
			return LinkageNone
		}
		return LinkageExternal
	case kinds.EnumConstantDecl:
		if u.Lang == LangCPP && !local {
			return LinkageExternal
		}
		return LinkageNone
	case kinds.Namespace:
		return LinkageExternal
	}
	return LinkageNone
}

func (u *Unit) inAnonymousNamespace(id NodeID) bool {
	for p := u.Nodes[id].SemParent; u.Valid(p); p = u.Nodes[p].SemParent {
		if n := &u.Nodes[p]; n.Kind == kinds.Namespace && n.Has(FlagAnonymous) {
			return true
		}
	}
	return false
}

// Storage classes, numbered as libclang does.
const (
	StorageInvalid = iota
	StorageNone
	StorageExtern
	StorageStatic
	StoragePrivateExtern
	StorageOpenCLWorkGroupLocal
	StorageAuto
	StorageRegister
)

// StorageClass reports the written storage class of a function or
// variable declaration.
func (u *Unit) StorageClass(id NodeID) int {
	n := &u.Nodes[id]
	switch n.Kind {
	case kinds.FunctionDecl, kinds.VarDecl, kinds.ParmDecl, kinds.CXXMethod, kinds.FunctionTemplate,
		kinds.Constructor, kinds.Destructor, kinds.ConversionFunction:
	default:
		return StorageInvalid
	}
	switch {
	case n.Has(FlagStatic):
		return StorageStatic
	case n.Has(FlagExtern):
		return StorageExtern
	}
	return StorageNone
}
