package store

import "fmt"

// Consistency is a replica acknowledgement level. The numeric values match
// the CQL native protocol.
type Consistency uint16

const (
	Any         Consistency = 0x00
	One         Consistency = 0x01
	Two         Consistency = 0x02
	Three       Consistency = 0x03
	Quorum      Consistency = 0x04
	All         Consistency = 0x05
	LocalQuorum Consistency = 0x06
	EachQuorum  Consistency = 0x07
	LocalOne    Consistency = 0x0A
)

func (c Consistency) String() string {
	switch c {
	case Any:
		return "ANY"
	case One:
		return "ONE"
	case Two:
		return "TWO"
	case Three:
		return "THREE"
	case Quorum:
		return "QUORUM"
	case All:
		return "ALL"
	case LocalQuorum:
		return "LOCAL_QUORUM"
	case EachQuorum:
		return "EACH_QUORUM"
	case LocalOne:
		return "LOCAL_ONE"
	}
	return fmt.Sprintf("CONSISTENCY_%d", uint16(c))
}

// Strong reports whether reads at c observe every write acknowledged at
// the same level.
func (c Consistency) Strong() bool {
	switch c {
	case Quorum, All, LocalQuorum, EachQuorum:
		return true
	}
	return false
}

// ParseConsistency parses the names produced by String.
func ParseConsistency(s string) (Consistency, error) {
	for _, c := range []Consistency{Any, One, Two, Three, Quorum, All, LocalQuorum, EachQuorum, LocalOne} {
		if c.String() == s {
			return c, nil
		}
	}
	return 0, fmt.Errorf("tessera: unknown consistency %q", s)
}
