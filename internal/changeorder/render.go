package changeorder

import "fmt"

const (
	// Heading is the editor title.
	Heading = "CHANGE ORDERS"

	// EmptyNotice replaces the rows when there are no records.
	EmptyNotice = "No change orders currently!"
)

// Sync projects the records onto the existing rows: label, amount text and
// selected status for each position, or the empty notice when there are no
// records. It never adds, removes or reorders rows, and running it twice has
// the same effect as running it once.
func Sync(store *Store, rows *Registry, surface Surface) error {
	if store.Len() != rows.Len() {
		return fmt.Errorf("%w: %d records, %d rows", ErrMisaligned, store.Len(), rows.Len())
	}

	if store.Len() == 0 {
		surface.SetHeading(Heading, EmptyNotice)
		return nil
	}

	surface.SetHeading(Heading, "")
	for i := 0; i < store.Len(); i++ {
		project(rows.At(i).widget, i, store.At(i))
	}
	return nil
}

func project(w RowWidget, i int, r Record) {
	w.SetLabel(DisplayTag(i))
	w.SetAmountText(FormatAmount(r.Amount))
	w.SetStatus(r.Status)
}
