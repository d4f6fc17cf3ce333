package logging

import "go.uber.org/zap"

// New builds the process logger. env "dev" selects the human-readable
// development config; anything else gets production JSON output.
func New(env string) (*zap.Logger, error) {
	if env == "dev" {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
