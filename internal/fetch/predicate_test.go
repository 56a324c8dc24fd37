package fetch

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEscapeLiteral(t *testing.T) {
	assert.Equal(t, "O''Brien", EscapeLiteral("O'Brien"))
	assert.Equal(t, "plain", EscapeLiteral("plain"))
}

func TestChunksRespectsCeiling(t *testing.T) {
	dots := make([]int64, 250)
	for i := range dots {
		dots[i] = int64(i)
	}
	chunks := Chunks(dots, 100)
	assert.Len(t, chunks, 3)
	assert.Len(t, chunks[0], 100)
	assert.Len(t, chunks[2], 50)
}

func TestInPredicate(t *testing.T) {
	got := InPredicate("dot_number", []int64{1, 2, 3})
	assert.Equal(t, "dot_number IN(1,2,3)", got)
}

func TestOrEqualsPredicateEscapes(t *testing.T) {
	got := OrEqualsPredicate("phone", []string{"555-0001", "O'Brien Trucking"})
	assert.Contains(t, got, "phone='555-0001'")
	assert.Contains(t, got, "phone='O''Brien Trucking'")
	assert.Contains(t, got, " OR ")
}

func TestOrUpperEqualsPredicateUppercases(t *testing.T) {
	got := OrUpperEqualsPredicate("officer1", []string{"acme holdings"})
	assert.Equal(t, "upper(officer1)='ACME HOLDINGS'", got)
}
