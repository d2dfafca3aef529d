package parse

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var (
	// "3F-12", "B2-05", "2#-7": an explicit floor followed by a sequence
	floorSeqRe = regexp.MustCompile(`(?i)^[a-z]*\s*[-#]?\s*(\d{1,2})\s*(?:F|/F)?\s*[-#]+\s*(\d+)$`)
	// "301", "A-301", "B1204": the floor is everything but the last two digits
	roomNoRe = regexp.MustCompile(`(?i)^[a-z]*\s*[-#]?\s*(\d{3,4})$`)
)

// ParsedRoom holds the structured data parsed from a room number.
type ParsedRoom struct {
	Floor int
	Seq   int
}

// RoomNumber extracts the floor and sequence from a room number.
func RoomNumber(raw string) (ParsedRoom, error) {
	s := strings.TrimSpace(raw)
	s = regexp.MustCompile(`\s+`).ReplaceAllString(s, " ")

	if m := floorSeqRe.FindStringSubmatch(s); m != nil {
		floor, errFloor := strconv.Atoi(m[1])
		seq, errSeq := strconv.Atoi(m[2])
		if errFloor == nil && errSeq == nil && floor > 0 {
			return ParsedRoom{Floor: floor, Seq: seq}, nil
		}
	}

	if m := roomNoRe.FindStringSubmatch(s); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil && n/100 > 0 {
			return ParsedRoom{Floor: n / 100, Seq: n % 100}, nil
		}
	}

	return ParsedRoom{}, fmt.Errorf("unable to parse floor from room number: %q", raw)
}
