package render

import "fmt"

// Command is one rendering instruction.
type Command interface {
	Apply(r Renderer) error
	Kind() string
}

type ResizeCommand struct {
	Rows    int `json:"rows"`
	Columns int `json:"columns"`
}

func (c ResizeCommand) Apply(r Renderer) error { return r.Resize(c.Rows, c.Columns) }
func (c ResizeCommand) Kind() string           { return "resize" }

// SetCellCommand shows a value, highlighted when it just changed.
type SetCellCommand struct {
	Cell
	Label       string `json:"label"`
	PriceText   string `json:"price_text"`
	Highlighted bool   `json:"highlighted"`
}

func (c SetCellCommand) Apply(r Renderer) error {
	return r.SetCell(c.Row, c.Col, c.Label, c.PriceText, c.Highlighted)
}
func (c SetCellCommand) Kind() string { return "set_cell" }

// RestoreCellCommand returns a highlighted cell to normal style.
type RestoreCellCommand struct {
	Cell
	Label     string `json:"label"`
	PriceText string `json:"price_text"`
}

func (c RestoreCellCommand) Apply(r Renderer) error {
	return r.RestoreCell(c.Row, c.Col, c.Label, c.PriceText)
}
func (c RestoreCellCommand) Kind() string { return "restore_cell" }

type ReferenceCommand struct {
	Label     string `json:"label"`
	PriceText string `json:"price_text"`
}

func (c ReferenceCommand) Apply(r Renderer) error { return r.SetReference(c.Label, c.PriceText) }
func (c ReferenceCommand) Kind() string           { return "reference" }

type StatusCommand struct {
	Text string `json:"text"`
}

func (c StatusCommand) Apply(r Renderer) error { return r.SetStatus(c.Text) }
func (c StatusCommand) Kind() string           { return "status" }

// Describe renders a command for logs.
func Describe(c Command) string {
	return fmt.Sprintf("%s %+v", c.Kind(), c)
}
