package requirement

import (
	"encoding/json"
	"fmt"
)

// Requirement is the closed set of condition nodes a quest template can carry.
// Trees are composed at configuration time and evaluated against metric maps.
type Requirement interface {
	isRequirement()
}

type Operator string

const (
	OpGte Operator = "gte"
	OpLte Operator = "lte"
	OpEq  Operator = "eq"
	OpGt  Operator = "gt"
	OpLt  Operator = "lt"
)

type CompoundOperator string

const (
	OpAnd CompoundOperator = "and"
	OpOr  CompoundOperator = "or"
)

// Numeric compares a single metric against a target value.
type Numeric struct {
	Metric   string   `json:"metric"`
	Operator Operator `json:"operator"`
	Value    float64  `json:"value"`
}

// Boolean checks that a metric matches an expected flag. A metric value of 0
// is false, anything else is true.
type Boolean struct {
	Metric   string `json:"metric"`
	Expected bool   `json:"expected"`
}

// Compound combines child requirements with and/or.
type Compound struct {
	Operator CompoundOperator `json:"operator"`
	Children []Requirement    `json:"children"`
}

func (Numeric) isRequirement()  {}
func (Boolean) isRequirement()  {}
func (Compound) isRequirement() {}

// maxDepth bounds template ingestion. Authored trees are shallow; anything
// deeper is a data-authoring error.
const maxDepth = 32

type rawNode struct {
	Type     string            `json:"type"`
	Metric   string            `json:"metric"`
	Operator string            `json:"operator"`
	Value    float64           `json:"value"`
	Expected bool              `json:"expected"`
	Children []json.RawMessage `json:"children"`
}

// Parse decodes and validates a requirement tree from template JSON.
// Validation happens here, at ingestion time: Evaluate assumes a well-formed
// finite tree and never returns an error.
func Parse(data []byte) (Requirement, error) {
	return parseNode(data, 0)
}

func parseNode(data []byte, depth int) (Requirement, error) {
	if depth > maxDepth {
		return nil, fmt.Errorf("requirement tree exceeds max depth %d", maxDepth)
	}

	var raw rawNode
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to decode requirement node: %w", err)
	}

	switch raw.Type {
	case "numeric":
		op := Operator(raw.Operator)
		switch op {
		case OpGte, OpLte, OpEq, OpGt, OpLt:
		default:
			return nil, fmt.Errorf("unknown numeric operator %q", raw.Operator)
		}
		if raw.Metric == "" {
			return nil, fmt.Errorf("numeric requirement missing metric")
		}
		return Numeric{Metric: raw.Metric, Operator: op, Value: raw.Value}, nil

	case "boolean":
		if raw.Metric == "" {
			return nil, fmt.Errorf("boolean requirement missing metric")
		}
		return Boolean{Metric: raw.Metric, Expected: raw.Expected}, nil

	case "compound":
		op := CompoundOperator(raw.Operator)
		if op != OpAnd && op != OpOr {
			return nil, fmt.Errorf("unknown compound operator %q", raw.Operator)
		}
		if len(raw.Children) == 0 {
			return nil, fmt.Errorf("compound requirement has no children")
		}
		children := make([]Requirement, 0, len(raw.Children))
		for i, c := range raw.Children {
			child, err := parseNode(c, depth+1)
			if err != nil {
				return nil, fmt.Errorf("child %d: %w", i, err)
			}
			children = append(children, child)
		}
		return Compound{Operator: op, Children: children}, nil

	default:
		return nil, fmt.Errorf("unknown requirement type %q", raw.Type)
	}
}

// MarshalJSON emits the same tagged form Parse accepts.
func (n Numeric) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type     string   `json:"type"`
		Metric   string   `json:"metric"`
		Operator Operator `json:"operator"`
		Value    float64  `json:"value"`
	}{"numeric", n.Metric, n.Operator, n.Value})
}

func (b Boolean) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type     string `json:"type"`
		Metric   string `json:"metric"`
		Expected bool   `json:"expected"`
	}{"boolean", b.Metric, b.Expected})
}

func (c Compound) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type     string           `json:"type"`
		Operator CompoundOperator `json:"operator"`
		Children []Requirement    `json:"children"`
	}{"compound", c.Operator, c.Children})
}
