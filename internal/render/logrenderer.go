package render

import "go.uber.org/zap"

// LogRenderer writes every render command to the logger. Used for headless runs.
type LogRenderer struct {
	logger *zap.Logger
}

func NewLogRenderer(logger *zap.Logger) *LogRenderer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogRenderer{logger: logger.Named("grid")}
}

func (l *LogRenderer) Resize(rows, columns int) error {
	l.logger.Info("resize", zap.Int("rows", rows), zap.Int("columns", columns))
	return nil
}

func (l *LogRenderer) SetCell(row, col int, label, priceText string, highlighted bool) error {
	l.logger.Info("cell",
		zap.Int("row", row), zap.Int("col", col),
		zap.String("market", label), zap.String("price", priceText),
		zap.Bool("changed", highlighted))
	return nil
}

func (l *LogRenderer) RestoreCell(row, col int, label, priceText string) error {
	l.logger.Debug("restore",
		zap.Int("row", row), zap.Int("col", col),
		zap.String("market", label), zap.String("price", priceText))
	return nil
}

func (l *LogRenderer) SetReference(label, priceText string) error {
	l.logger.Debug("reference", zap.String("label", label), zap.String("price", priceText))
	return nil
}

func (l *LogRenderer) SetStatus(text string) error {
	l.logger.Info("status", zap.String("text", text))
	return nil
}
