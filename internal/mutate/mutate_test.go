package mutate

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMutateByte_Deterministic(t *testing.T) {
	rng1 := rand.New(rand.NewSource(42))
	rng2 := rand.New(rand.NewSource(42))

	for i := 0; i < 64; i++ {
		a := MutateByte(rng1, byte(i))
		b := MutateByte(rng2, byte(i))
		assert.Equal(t, a, b)
	}
}

func TestMethod_String(t *testing.T) {
	assert.Equal(t, "change", MethodChange.String())
	assert.Equal(t, "new", MethodNew.String())
	assert.Equal(t, "delete", MethodDelete.String())
	assert.Equal(t, "unknown", Method(99).String())
}

func TestMutator_Mutate_RejectsInvalidInitial(t *testing.T) {
	m := NewMutator(func(b []byte) bool { return false })
	rng := rand.New(rand.NewSource(1))
	_, err := m.Mutate(rng, []byte("abc"), 1)
	assert.ErrorIs(t, err, errInvalidInput)
}

func TestMutator_Mutate_AppliesRequestedCount(t *testing.T) {
	m := NewMutator(func(b []byte) bool { return len(b) > 0 })
	rng := rand.New(rand.NewSource(7))
	input := []byte("hello world")

	out, err := m.Mutate(rng, input, 5)
	assert.NoError(t, err)
	assert.NotEmpty(t, out)
}

func TestMutator_mutateOnceNoCheck_CanGrowOrShrink(t *testing.T) {
	m := NewMutator(func(b []byte) bool { return true })
	rng := rand.New(rand.NewSource(3))
	input := []byte("ab")

	sawGrow, sawShrink := false, false
	for i := 0; i < 200; i++ {
		out := m.mutateOnceNoCheck(rng, input)
		switch {
		case len(out) > len(input):
			sawGrow = true
		case len(out) < len(input):
			sawShrink = true
		}
	}
	assert.True(t, sawGrow, "expected at least one insertion across trials")
	assert.True(t, sawShrink, "expected at least one deletion across trials")
}

func TestWeightedMethod_RespectsWeights(t *testing.T) {
	rng := rand.New(rand.NewSource(5))
	counts := map[Method]int{}
	for i := 0; i < 1000; i++ {
		counts[weightedMethod(rng, DefaultMethodsWeight)]++
	}
	assert.Greater(t, counts[MethodChange], counts[MethodNew])
	assert.Greater(t, counts[MethodChange], counts[MethodDelete])
}
