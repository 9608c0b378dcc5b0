package rules

// Match is one heuristic rule hit against a subject URL.
type Match struct {
	ID     string
	Name   string
	Level  string // sigma level: critical|high|medium|low
	Detail string
	Tags   []string
}

// Engine applies heuristic rules to URL-derived fields.
type Engine interface {
	Apply(fields map[string]interface{}) []Match
}

// NoopEngine matches nothing.
type NoopEngine struct{}

// Apply returns an empty match list.
func (n *NoopEngine) Apply(fields map[string]interface{}) []Match {
	return nil
}
