package normalize

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPhoneBoundaries(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"six digits empty", "555-100", ""},
		{"seven digits kept", "555-1000", "5551000"},
		{"ten digits kept", "555-100-0001", "5551000001"},
		{"eleven digits keeps last ten", "15551000001", "5551000001"},
		{"formatted ten digit", "(555) 100-0001", "5551000001"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			assert.Equal(t, c.want, Phone(c.in))
		})
	}
}

func TestPhoneIsEmptyOrTenDigits(t *testing.T) {
	inputs := []string{"", "123", "555-100-0001", "1-555-100-0001-9999", "abc"}
	for _, in := range inputs {
		got := Phone(in)
		if got != "" {
			require.Len(t, got, 10)
			for _, r := range got {
				require.True(t, r >= '0' && r <= '9')
			}
		}
	}
}

func TestAddressBoundaries(t *testing.T) {
	// A lone non-empty component is joined without any " | " separator, so
	// its normalized length is the length of the whole result: exactly 5
	// is discarded, 6 is kept.
	assert.Equal(t, "", Address("abcde", "", ""))
	assert.Equal(t, "abcdef", Address("abcdef", "", ""))

	short := Address("a", "", "")
	assert.Equal(t, "", short, "blank city/state should collapse to something <=5 and be discarded")

	long := Address("10 First Street", "Austin", "TX")
	assert.NotEmpty(t, long)
	assert.False(t, strings.Contains(long, "  "), "no double spaces")
	assert.True(t, strings.Contains(long, "st"), "street suffix rewritten")
}

func TestAddressSuffixRewrite(t *testing.T) {
	a := Address("10 First Street", "Austin", "TX")
	b := Address("10 First St.", "Austin", "TX")
	assert.Equal(t, a, b)
}

func TestAddressNoPunctuationOrDoubleSpaces(t *testing.T) {
	got := Address("123 Main St., Suite #4", "St. Louis", "MO")
	require.NotEmpty(t, got)
	assert.False(t, strings.Contains(got, "  "))
	for _, r := range got {
		assert.False(t, isASCIIPunct(r), "got punctuation rune %q in %q", r, got)
	}
}

func TestOfficerBoundaries(t *testing.T) {
	assert.Equal(t, "", Officer("Al"))
	assert.Equal(t, "", Officer("A.B."))
	assert.Equal(t, "ACME HOLDINGS", Officer("acme holdings"))
	assert.Equal(t, "JOHN Q SMITH", Officer("John Q. Smith"))
}

func TestVIN(t *testing.T) {
	assert.Equal(t, "1HGBH41JXMN109186", VIN(" 1hgbh41jxmn109186 "))
	assert.True(t, IsLinkableVIN(VIN("12345")))
	assert.False(t, IsLinkableVIN(VIN("1234")))
}
