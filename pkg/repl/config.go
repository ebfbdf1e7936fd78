package repl

// Config holds configuration for the REPL environment.
type Config struct {
	// Prompt is printed before every input line.
	Prompt string
	// Solve runs the solver on every :symex.
	Solve bool
}

// DefaultConfig returns a default configuration.
func DefaultConfig() Config {
	return Config{Prompt: "symlog> "}
}
