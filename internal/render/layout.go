package render

// Cell addresses one grid slot.
type Cell struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

// Layout maps discovery order onto a grid with a fixed column count.
type Layout struct {
	Columns int
	Count   int
}

func NewLayout(count, columns int) Layout {
	if columns < 1 {
		columns = 1
	}
	return Layout{Columns: columns, Count: count}
}

// Rows is ceil(Count / Columns).
func (l Layout) Rows() int {
	return (l.Count + l.Columns - 1) / l.Columns
}

// Position returns the cell for the market at index in discovery order.
func (l Layout) Position(index int) Cell {
	return Cell{Row: index / l.Columns, Col: index % l.Columns}
}

// Resize is the command that shapes a renderer for this layout.
func (l Layout) Resize() ResizeCommand {
	return ResizeCommand{Rows: l.Rows(), Columns: l.Columns}
}
