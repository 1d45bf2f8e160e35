package grapher

// --- Kinds ---

// Symbol kinds reported by an Oracle. The grapher only interprets
// KindModule, KindImport, KindStatement and KindParam; any other kind is
// carried through verbatim.
const (
	KindModule    = "module"
	KindClass     = "class"
	KindFunction  = "function"
	KindStatement = "statement"
	KindParam     = "param"
	KindImport    = "import"
)

// --- Records ---

// Def is the declaration site of a symbol. Path is the project-wide identity
// of the symbol; a Result never holds two Defs with the same Path.
type Def struct {
	Path      string `json:"Path"`
	Kind      string `json:"Kind"`
	Name      string `json:"Name"`
	File      string `json:"File"`
	DefStart  int    `json:"DefStart"`
	DefEnd    int    `json:"DefEnd"`
	Exported  bool   `json:"Exported"`
	Docstring string `json:"Docstring"`
	Data      any    `json:"Data"`
}

// Ref is a use of a symbol, pointing at its Def by (DefPath, DefFile).
// Def is true only for the self-reference spanning the defining token.
type Ref struct {
	DefPath   string `json:"DefPath"`
	DefFile   string `json:"DefFile"`
	Def       bool   `json:"Def"`
	File      string `json:"File"`
	Start     int    `json:"Start"`
	End       int    `json:"End"`
	ToBuiltin bool   `json:"ToBuiltin"`
}

// RefKey is the dedup key of a Ref.
type RefKey struct {
	DefPath string
	DefFile string
	File    string
	Start   int
	End     int
}

// Key returns the composite key identifying r.
func (r Ref) Key() RefKey {
	return RefKey{
		DefPath: r.DefPath,
		DefFile: r.DefFile,
		File:    r.File,
		Start:   r.Start,
		End:     r.End,
	}
}

// Result holds the definitions and references extracted from one file.
// Both maps are insert-if-absent: the first record written for a key wins.
type Result struct {
	File string
	Defs map[string]Def
	Refs map[RefKey]Ref
}

func newResult(file string) *Result {
	return &Result{
		File: file,
		Defs: make(map[string]Def),
		Refs: make(map[RefKey]Ref),
	}
}

// addDef inserts d unless its Path is already present. It reports whether d
// was inserted.
func (r *Result) addDef(d Def) bool {
	if _, ok := r.Defs[d.Path]; ok {
		return false
	}
	r.Defs[d.Path] = d
	return true
}

// addRef inserts ref unless an identical edge is already present.
func (r *Result) addRef(ref Ref) bool {
	key := ref.Key()
	if _, ok := r.Refs[key]; ok {
		return false
	}
	r.Refs[key] = ref
	return true
}
