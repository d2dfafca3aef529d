package parse

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRoomNumber(t *testing.T) {
	testCases := []struct {
		name      string
		raw       string
		expected  ParsedRoom
		expectErr bool
	}{
		{name: "Plain three digits", raw: "204", expected: ParsedRoom{Floor: 2, Seq: 4}},
		{name: "Building prefix", raw: "A-301", expected: ParsedRoom{Floor: 3, Seq: 1}},
		{name: "Four digits", raw: "B1204", expected: ParsedRoom{Floor: 12, Seq: 4}},
		{name: "Floor marker", raw: "3F-12", expected: ParsedRoom{Floor: 3, Seq: 12}},
		{name: "Prefix and floor", raw: "B2-05", expected: ParsedRoom{Floor: 2, Seq: 5}},
		{name: "Hash separator", raw: " 2#7 ", expected: ParsedRoom{Floor: 2, Seq: 7}},
		{name: "Lowercase floor marker", raw: "4f-1", expected: ParsedRoom{Floor: 4, Seq: 1}},
		{name: "Too short", raw: "12", expectErr: true},
		{name: "Ground floor", raw: "012", expectErr: true},
		{name: "Words", raw: "Annex", expectErr: true},
		{name: "Empty", raw: "", expectErr: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			parsed, err := RoomNumber(tc.raw)
			if tc.expectErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
				assert.Equal(t, tc.expected, parsed)
			}
		})
	}
}
