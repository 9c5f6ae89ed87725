package models

// OperationKind is the kind of a change-data-capture operation
type OperationKind string

const (
	OperationInsert OperationKind = "INSERT"
	OperationUpdate OperationKind = "UPDATE"
	OperationDelete OperationKind = "DELETE"
)

// Operation is one generated change against a fact table.
// OldData is set for UPDATE and DELETE and holds the row as it was fetched
// from the store.
type Operation struct {
	Kind    OperationKind `json:"kind"`
	Table   Table         `json:"table"`
	Data    Record        `json:"data"`
	OldData Record        `json:"old_data,omitempty"`
}

// Key returns the primary key the operation targets
func (o Operation) Key() int64 {
	return o.Data.Key()
}

// KindCounts tallies operations by kind
type KindCounts struct {
	Inserts int `json:"inserts"`
	Updates int `json:"updates"`
	Deletes int `json:"deletes"`
}

// Add counts one operation of the given kind
func (c *KindCounts) Add(kind OperationKind) {
	switch kind {
	case OperationInsert:
		c.Inserts++
	case OperationUpdate:
		c.Updates++
	case OperationDelete:
		c.Deletes++
	}
}

// Merge adds other into c
func (c *KindCounts) Merge(other KindCounts) {
	c.Inserts += other.Inserts
	c.Updates += other.Updates
	c.Deletes += other.Deletes
}

// Total returns the number of operations counted
func (c KindCounts) Total() int {
	return c.Inserts + c.Updates + c.Deletes
}
