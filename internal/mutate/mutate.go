package mutate

import "math/rand"

// arithmeticOps mirrors mutate_byte's five arithmetic variants exactly:
// increment, decrement, flip the low bit, shift left one, shift right one.
var (
	arithmeticOps = []func(x byte) byte{
		func(x byte) byte { return x + 1 },
		func(x byte) byte { return x - 1 },
		func(x byte) byte { return x ^ 1 },
		func(x byte) byte { return x << 1 },
		func(x byte) byte { return x >> 1 },
	}
	letterBytes = rangeBytes('a', 'z', 'A', 'Z')
	digitBytes       = rangeBytes('0', '9')
	punctBytes       = rangeBytes('!', '/', ':', '@', '[', '`', '{', '~')
	whitespaceBytes  = []byte{' ', '\t', '\n', '\r', '\v', '\f'}
)

func rangeBytes(bounds ...byte) []byte {
	var out []byte
	for i := 0; i+1 < len(bounds); i += 2 {
		for b := bounds[i]; b <= bounds[i+1]; b++ {
			out = append(out, b)
		}
	}
	return out
}

// pool is one family of replacement bytes mutate_byte can draw from.
type pool func(rng *rand.Rand, x byte) byte

var pools = []pool{
	func(rng *rand.Rand, x byte) byte {
		return arithmeticOps[rng.Intn(len(arithmeticOps))](x)
	},
	func(rng *rand.Rand, _ byte) byte { return letterBytes[rng.Intn(len(letterBytes))] },
	func(rng *rand.Rand, _ byte) byte { return digitBytes[rng.Intn(len(digitBytes))] },
	func(rng *rand.Rand, _ byte) byte { return punctBytes[rng.Intn(len(punctBytes))] },
	func(rng *rand.Rand, _ byte) byte { return whitespaceBytes[rng.Intn(len(whitespaceBytes))] },
	func(rng *rand.Rand, _ byte) byte { return byte(rng.Intn(256)) },
}

// MutateByte returns a replacement for x drawn from a randomly chosen
// mutator pool (arithmetic nudge, letters, digits, punctuation,
// whitespace, or any byte).
func MutateByte(rng *rand.Rand, x byte) byte {
	return pools[rng.Intn(len(pools))](rng, x)
}

// Method is one way Mutator can alter a single location in the input.
type Method int

const (
	MethodChange Method = iota
	MethodNew
	MethodDelete
)

func (m Method) String() string {
	switch m {
	case MethodChange:
		return "change"
	case MethodNew:
		return "new"
	case MethodDelete:
		return "delete"
	default:
		return "unknown"
	}
}

// DefaultMethodsWeight weights MethodChange far above insertion/deletion,
// so most mutations perturb an existing byte rather than resize the input.
var DefaultMethodsWeight = []int{10, 1, 1}

var methods = []Method{MethodChange, MethodNew, MethodDelete}

// Checker reports whether input is acceptable to feed to the target —
// Mutator retries mutations that fail it.
type Checker func(input []byte) bool

// Mutator repeatedly perturbs an input under a validity check, used to
// seed an extraction attempt with input bytes that still drive the
// target down the recorded trace after small random edits.
type Mutator struct {
	Checker       Checker
	MethodsWeight []int
}

// NewMutator builds a Mutator using DefaultMethodsWeight.
func NewMutator(checker Checker) *Mutator {
	return &Mutator{Checker: checker, MethodsWeight: DefaultMethodsWeight}
}

// Mutate applies num accepted mutations to input, returning the mutated
// copy. The initial input must already satisfy m.Checker.
func (m *Mutator) Mutate(rng *rand.Rand, input []byte, num int) ([]byte, error) {
	if !m.Checker(input) {
		return nil, errInvalidInput
	}
	cur := append([]byte(nil), input...)
	for applied := 0; applied < num; {
		next := m.mutateOnceNoCheck(rng, cur)
		if !m.Checker(next) {
			continue
		}
		cur = next
		applied++
	}
	return cur, nil
}

func (m *Mutator) mutateOnceNoCheck(rng *rand.Rand, input []byte) []byte {
	n := len(input)
	loc := rng.Intn(n + 1)

	method := MethodNew
	var current byte
	if loc < n {
		current = input[loc]
		method = weightedMethod(rng, m.MethodsWeight)
	}
	value := MutateByte(rng, current)

	out := make([]byte, 0, n+1)
	switch method {
	case MethodNew:
		out = append(out, input[:loc]...)
		out = append(out, value)
		out = append(out, input[loc:]...)
	case MethodDelete:
		out = append(out, input[:loc]...)
		out = append(out, input[loc+1:]...)
	default: // MethodChange
		out = append(out, input...)
		out[loc] = value
	}
	return out
}

func weightedMethod(rng *rand.Rand, weights []int) Method {
	total := 0
	for _, w := range weights {
		total += w
	}
	r := rng.Intn(total)
	for i, w := range weights {
		if r < w {
			return methods[i]
		}
		r -= w
	}
	return methods[len(methods)-1]
}
