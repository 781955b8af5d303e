package dashboard

// DefaultDetailRegion is shown before anything has been clicked.
const DefaultDetailRegion = 1

// ClickSelection maps a clicked map element to a region.
// Element 0 in display order is region 1; region 0 is the national aggregate.
type ClickSelection struct {
	Index    int
	RegionID int
}

// SelectionFromIndex validates a click index and derives the region id.
func SelectionFromIndex(index *int) (ClickSelection, error) {
	if index == nil || *index < 0 {
		return ClickSelection{}, ErrMalformedClick
	}
	return ClickSelection{Index: *index, RegionID: *index + 1}, nil
}
