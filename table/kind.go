package table

import "fmt"

// Kind selects the backend of the document and word tables.
type Kind int

const (
	// KindDense stores every count in a flat array.
	KindDense Kind = iota
	// KindSparse stores nonzero counts sorted by id.
	KindSparse
	// KindHash stores nonzero counts in an open addressing hash table.
	KindHash
)

var kindNames = map[Kind]string{
	KindDense:  "dense",
	KindSparse: "sparse",
	KindHash:   "hash",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// ParseKind returns the kind named s.
func ParseKind(s string) (Kind, error) {
	for k, name := range kindNames {
		if name == s {
			return k, nil
		}
	}
	return KindDense, fmt.Errorf("table: unknown storage kind %q", s)
}
