package model

import "strings"

// Plan is the top-level object of EXPLAIN (FORMAT JSON) output:
// {"Plan": {...}, "Planning Time": ..., "Execution Time": ...}.
type Plan map[string]any

// Root returns the root plan node, or nil.
func (p Plan) Root() map[string]any {
	root, _ := p["Plan"].(map[string]any)
	return root
}

// ExecutionTime is the executor time in milliseconds reported by ANALYZE.
func (p Plan) ExecutionTime() float64 { return number(p["Execution Time"]) }

// PlanningTime is the planner time in milliseconds.
func (p Plan) PlanningTime() float64 { return number(p["Planning Time"]) }

// NodeTypes lists "Node Type" values in depth-first order.
func (p Plan) NodeTypes() []string {
	var out []string
	var walk func(node map[string]any)
	walk = func(node map[string]any) {
		if node == nil {
			return
		}
		if nt, ok := node["Node Type"].(string); ok {
			out = append(out, nt)
		}
		children, _ := node["Plans"].([]any)
		for _, c := range children {
			child, _ := c.(map[string]any)
			walk(child)
		}
	}
	walk(p.Root())
	return out
}

// UsesIndex reports whether any node is an index, index-only or bitmap scan.
func (p Plan) UsesIndex() bool {
	for _, nt := range p.NodeTypes() {
		if strings.Contains(nt, "Index") || strings.HasPrefix(nt, "Bitmap") {
			return true
		}
	}
	return false
}

func number(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case int:
		return float64(n)
	case int64:
		return float64(n)
	default:
		return 0
	}
}
