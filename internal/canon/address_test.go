package canon

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanonicalize(t *testing.T) {
	cases := []struct {
		name                   string
		line1, city, prov, zip string
		wantLine1, wantKey     string
	}{
		{"unit prefix and suffix", "1203-55 Bremner Boulevard", "Toronto", "Ontario", "m5j 0a6", "55 BREMNER BLVD", "55 bremner blvd|toronto|on|m5j0a6"},
		{"trailing unit", "100 Queen St W Unit 5", "Toronto", "ON", "M5H2N2", "100 QUEEN ST W", "100 queen st w|toronto|on|m5h2n2"},
		{"hash unit", "12 Main Street #4", "Ottawa", "on", "K1A 0B1", "12 MAIN ST", "12 main st|ottawa|on|k1a0b1"},
		{"punctuation", "7 St. Clair Ave.", "Toronto", "ON", "M4T 1L2", "7 ST CLAIR AVE", "7 st clair ave|toronto|on|m4t1l2"},
		{"us zip", "1 Market Street", "San Francisco", "California", "94105-1420", "1 MARKET ST", "1 market st|san francisco|ca|94105"},
		{"missing postal", "55 Bremner Blvd", "Toronto", "ON", "", "55 BREMNER BLVD", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			l1, _, _, _, key := Canonicalize(tc.line1, tc.city, tc.prov, tc.zip)
			assert.Equal(t, tc.wantLine1, l1)
			assert.Equal(t, tc.wantKey, key)
		})
	}
}

func TestUnitsOfOneBuildingShareKey(t *testing.T) {
	_, _, _, _, a := Canonicalize("1203-55 Bremner Blvd", "Toronto", "ON", "M5J 0A6")
	_, _, _, _, b := Canonicalize("55 Bremner Boulevard Suite 400", "toronto", "Ontario", "m5j0a6")
	assert.NotEmpty(t, a)
	assert.Equal(t, a, b)
}

func TestFirstWordIsNeverAbbreviated(t *testing.T) {
	l1, _, _, _, _ := Canonicalize("Court House Road", "Perth", "ON", "K7H 1A1")
	assert.Equal(t, "COURT HOUSE RD", l1)
}
