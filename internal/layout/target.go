package layout

// Target describes the machine the layout is computed for.
//
// Only the 32-bit dispatch VM is implemented.
type Target struct {
	Name        string
	PtrSize     int32 // bytes
	WordAlign   int32 // bytes
	ObjectStart int32 // first field offset of a class, after the dispatch-table pointer
	ArrayHeader int32 // element count stored before the elements
	Slot        int32 // frame slot granularity
}

func VM32() Target {
	return Target{
		Name:        "vm32",
		PtrSize:     4,
		WordAlign:   4,
		ObjectStart: 4,
		ArrayHeader: 4,
		Slot:        4,
	}
}

func alignUp(v, a int32) int32 {
	if a <= 1 {
		return v
	}
	return (v + a - 1) / a * a
}
