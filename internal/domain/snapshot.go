package domain

// Snapshot is an immutable view of one store handed to listeners and the
// renderer.
type Snapshot struct {
	Kind  Kind       `json:"kind"`
	Items []LineItem `json:"items"`
	Count int        `json:"count"`
	Total float64    `json:"total"`
}

// NewSnapshot copies items and computes the aggregates for kind.
func NewSnapshot(kind Kind, items []LineItem) Snapshot {
	cp := make([]LineItem, len(items))
	copy(cp, items)

	s := Snapshot{Kind: kind, Items: cp}
	for _, it := range cp {
		if kind == KindCart {
			s.Count += it.Quantity
			s.Total += it.Subtotal()
		} else {
			s.Count++
		}
	}
	return s
}

// Empty reports whether the store holds no entries.
func (s Snapshot) Empty() bool { return len(s.Items) == 0 }

// Contains reports whether an entry with itemID is present.
func (s Snapshot) Contains(itemID string) bool {
	for _, it := range s.Items {
		if it.ItemID == itemID {
			return true
		}
	}
	return false
}
