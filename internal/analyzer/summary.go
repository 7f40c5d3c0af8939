package analyzer

import (
	"encoding/json"
	"fmt"
	"slices"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"pagecraft/internal/domain"
	"pagecraft/internal/events"
	"pagecraft/internal/store"
)

// Node is one entry of the tree summary handed to export and inspection tools.
type Node struct {
	ID       string                `json:"id" yaml:"id"`
	Name     string                `json:"name,omitempty" yaml:"name,omitempty"`
	Role     domain.Role           `json:"role" yaml:"role"`
	Tag      string                `json:"tag" yaml:"tag"`
	Class    string                `json:"class" yaml:"class"`
	Layout   domain.LayoutStrategy `json:"layout,omitempty" yaml:"layout,omitempty"`
	X        float64               `json:"x" yaml:"x"`
	Y        float64               `json:"y" yaml:"y"`
	Width    float64               `json:"width" yaml:"width"`
	Height   float64               `json:"height" yaml:"height"`
	Inferred bool                  `json:"inferred,omitempty" yaml:"inferred,omitempty"`
	Children []*Node               `json:"children,omitempty" yaml:"children,omitempty"`
}

func (p *pass) tree(tops []string, sem map[string]domain.Semantics) []*Node {
	var build func(id string) *Node
	build = func(id string) *Node {
		it := p.items[id]
		s := sem[id]
		n := &Node{
			ID: id, Name: it.Name,
			Role: s.Role, Tag: s.HTMLTag, Class: s.CSSClass, Layout: s.LayoutStrategy,
			X: it.Rect.X, Y: it.Rect.Y, Width: it.Rect.Width, Height: it.Rect.Height,
			Inferred: it.ParentID == "" && p.parent[id] != "",
		}
		for _, cid := range p.children[id] {
			n.Children = append(n.Children, build(cid))
		}
		return n
	}
	nodes := make([]*Node, 0, len(tops))
	for _, id := range tops {
		nodes = append(nodes, build(id))
	}
	return nodes
}

// Find returns the summary node with the given id.
func (r *Result) Find(id string) *Node {
	var walk func([]*Node) *Node
	walk = func(ns []*Node) *Node {
		for _, n := range ns {
			if n.ID == id {
				return n
			}
			if f := walk(n.Children); f != nil {
				return f
			}
		}
		return nil
	}
	return walk(r.Tree)
}

// Roles returns the set of roles present in the result.
func (r *Result) Roles() []domain.Role {
	var roles []domain.Role
	for _, s := range r.Semantics {
		if !slices.Contains(roles, s.Role) {
			roles = append(roles, s.Role)
		}
	}
	slices.Sort(roles)
	return roles
}

// Encode renders the tree summary as "json" or "yaml".
func (r *Result) Encode(format string) ([]byte, error) {
	switch format {
	case "json", "":
		data, err := json.MarshalIndent(r.Tree, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("encode summary: %w", err)
		}
		return append(data, '\n'), nil
	case "yaml", "yml":
		data, err := yaml.Marshal(r.Tree)
		if err != nil {
			return nil, fmt.Errorf("encode summary: %w", err)
		}
		return data, nil
	}
	return nil, fmt.Errorf("unknown summary format %q", format)
}

// Apply writes the result back through the store's annotate path. Elements
// missing from the result, hidden ones included, get their derived fields
// cleared. Per-element notifications are folded into one AnalysisApplied
// event carrying the ids that changed.
func Apply(s *store.Store, res *Result, log *zap.Logger) []string {
	if log == nil {
		log = zap.NewNop()
	}
	unmute := s.Events().Mute()
	var changed []string
	s.Walk(func(e domain.Element, _ int) bool {
		next := res.Semantics[e.ID]
		if e.Semantics != next {
			s.Annotate(e.ID, next)
			changed = append(changed, e.ID)
		}
		return true
	})
	unmute()

	log.Named("analyzer").Info("analysis applied",
		zap.Int("elements", s.Len()),
		zap.Int("changed", len(changed)),
		zap.Int("inferred_parents", len(res.InferredParents)))
	s.Events().Emit(events.Event{Topic: events.AnalysisApplied, IDs: changed})
	return changed
}

// Run collects, analyzes and applies in one step.
func Run(s *store.Store, cfg Config, log *zap.Logger) *Result {
	res := Analyze(Collect(s), cfg)
	Apply(s, res, log)
	return res
}
