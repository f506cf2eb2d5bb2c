package variable

import (
	"math/rand"
	"strconv"

	"golang.org/x/exp/constraints"

	"github.com/concuject/concuject/internal/piece"
)

// ProbRandImm is the probability new_assign_many picks a fresh immediate
// over reusing an existing variable for one of its seed values.
const ProbRandImm = 0.5

// SleepTimeUS is the duration, in microseconds, the OV.Sleep pattern's
// Sleep piece asks the injected thread to pause for.
const SleepTimeUS = 100

var operations = []string{"+", "-", "^"}

type varData struct {
	v        Variable
	editable bool
	useCount int
}

// Registry owns one bug's variable pool and the randomized code generator
// over it. All randomness is drawn from a single injected *rand.Rand, so a
// Registry built from the same seed and the same sequence of calls produces
// byte-identical variables and injected code.
type Registry struct {
	bugID int
	input []byte
	rng   *rand.Rand
	all   map[string]*varData
	order []string
	count int
}

func NewRegistry(bugID int, input []byte, rng *rand.Rand) *Registry {
	return &Registry{
		bugID: bugID,
		input: input,
		rng:   rng,
		all:   make(map[string]*varData),
	}
}

// NewVar allocates a fresh variable with a monotonically-increasing suffix.
func (r *Registry) NewVar(t Type, editable bool) string {
	v := newVariable(t, r.bugID, strconv.Itoa(r.count))
	r.count++
	r.all[v.Name] = &varData{v: v, editable: editable}
	r.order = append(r.order, v.Name)
	return v.Name
}

// OldVar selects the least-used existing normal variable (respecting
// needEdit's editability requirement); if none exist, it synthesizes a
// fresh one instead.
func (r *Registry) OldVar(needEdit bool) string {
	var candidates []*varData
	for _, name := range r.order {
		vd := r.all[name]
		if vd.v.Type != Normal {
			continue
		}
		if needEdit && !vd.editable {
			continue
		}
		candidates = append(candidates, vd)
	}
	if len(candidates) == 0 {
		return r.NewVar(Normal, needEdit)
	}
	best := minBy(candidates, func(vd *varData) int { return vd.useCount })
	best.useCount++
	return best.v.Name
}

func minBy[T any, K constraints.Ordered](items []T, key func(T) K) T {
	best := items[0]
	bestKey := key(best)
	for _, it := range items[1:] {
		if k := key(it); k < bestKey {
			best, bestKey = it, k
		}
	}
	return best
}

// CountEditableVars reports how many variables are currently editable,
// used by the bug builder's old-vs-new variable bias.
func (r *Registry) CountEditableVars() int {
	n := 0
	for _, name := range r.order {
		if r.all[name].editable {
			n++
		}
	}
	return n
}

// SetEditable freezes or thaws a variable's reuse eligibility.
func (r *Registry) SetEditable(name string, editable bool) {
	r.all[name].editable = editable
}

// ListAllVars returns every variable allocated so far, in allocation order
// — the order the state-struct emission layer declares fields in.
func (r *Registry) ListAllVars() []Variable {
	out := make([]Variable, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.all[name].v)
	}
	return out
}

func (r *Registry) randomValue() piece.TVal {
	return r.rng.Uint32()
}

func (r *Registry) randomOp() string {
	return operations[r.rng.Intn(len(operations))]
}
