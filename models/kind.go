package models

import "fmt"

// Kind identifies one of the two generated entity types.
type Kind int

const (
	KindCharacter Kind = iota + 1
	KindLocation
)

// Kinds lists every entity kind in a stable order.
var Kinds = []Kind{KindCharacter, KindLocation}

// ParseKind accepts the singular name used by the generate route.
func ParseKind(s string) (Kind, error) {
	switch s {
	case "character":
		return KindCharacter, nil
	case "location":
		return KindLocation, nil
	}
	return 0, fmt.Errorf("unknown kind %q", s)
}

// String returns the singular name, also used as the graph node type.
func (k Kind) String() string {
	switch k {
	case KindCharacter:
		return "character"
	case KindLocation:
		return "location"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Collection is the store collection (and route segment) holding this kind.
func (k Kind) Collection() string {
	switch k {
	case KindCharacter:
		return "characters"
	case KindLocation:
		return "locations"
	}
	panic(fmt.Sprintf("models: collection for invalid kind %d", int(k)))
}

// DefaultColor is the color stamped on freshly generated records.
func (k Kind) DefaultColor() string {
	switch k {
	case KindCharacter:
		return "#58a6ff"
	case KindLocation:
		return "#00d1ff"
	}
	panic(fmt.Sprintf("models: default color for invalid kind %d", int(k)))
}

// Title is the capitalised singular used in response messages.
func (k Kind) Title() string {
	switch k {
	case KindCharacter:
		return "Character"
	case KindLocation:
		return "Location"
	}
	return k.String()
}

// Record is a stored world record of either kind.
type Record interface {
	RecordKind() Kind
}

func (*Character) RecordKind() Kind { return KindCharacter }
func (*Location) RecordKind() Kind  { return KindLocation }
