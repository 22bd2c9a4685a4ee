package utils

import "go.uber.org/zap"

// NewProductionLogger returns a production zap logger, or a no-op logger on error.
func NewProductionLogger() (*zap.Logger, error) {
	logger, err := zap.NewProduction()
	if err != nil {
		return zap.NewNop(), err
	}
	return logger, nil
}

// NewLogger returns a development zap logger when debug is true and a
// production zap logger otherwise.
func NewLogger(debug bool) (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}
	return NewProductionLogger()
}
