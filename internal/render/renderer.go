// Package render turns monitor output into an ordered stream of rendering
// commands and delivers them to a Renderer from a single consumer goroutine.
package render

// Renderer is the rendering surface. Implementations are only ever called
// from Queue.Run, so they need no locking of their own against the monitor.
type Renderer interface {
	Resize(rows, columns int) error
	SetCell(row, col int, label, priceText string, highlighted bool) error
	RestoreCell(row, col int, label, priceText string) error
	SetReference(label, priceText string) error
	SetStatus(text string) error
}
