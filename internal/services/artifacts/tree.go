package artifacts

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"QuantPredict/internal/domain/models"
	domsvc "QuantPredict/internal/domain/service"
)

// treeNode mirrors one node of an XGBoost JSON model dump.
type treeNode struct {
	NodeID         int        `json:"nodeid"`
	Split          string     `json:"split"`
	SplitCondition float64    `json:"split_condition"`
	Yes            int        `json:"yes"`
	No             int        `json:"no"`
	Missing        int        `json:"missing"`
	Leaf           *float64   `json:"leaf"`
	Children       []treeNode `json:"children"`

	feature int
}

type tree struct {
	nodes map[int]*treeNode
}

// TreeEnsemble evaluates a gradient boosted regression ensemble exported with
// XGBoost's JSON dump format. The prediction is base score plus the sum of one
// leaf per tree.
type TreeEnsemble struct {
	trees     []tree
	baseScore float64
	features  int
}

var _ domsvc.TabularModel = (*TreeEnsemble)(nil)

// ParseTreeEnsemble decodes a dump. Split features may be named f0..fN or by
// the entries of featureNames.
func ParseTreeEnsemble(data []byte, baseScore float64, featureNames []string) (*TreeEnsemble, error) {
	var roots []treeNode
	if err := json.Unmarshal(data, &roots); err != nil {
		return nil, fmt.Errorf("decode tree dump: %w", err)
	}
	if len(roots) == 0 {
		return nil, models.NewError(models.KindNotReady, "tree dump has no trees")
	}
	e := &TreeEnsemble{baseScore: baseScore, features: len(featureNames)}
	for i := range roots {
		t := tree{nodes: make(map[int]*treeNode)}
		if err := index(&roots[i], t.nodes, featureNames); err != nil {
			return nil, fmt.Errorf("tree %d: %w", i, err)
		}
		e.trees = append(e.trees, t)
	}
	return e, nil
}

func index(n *treeNode, into map[int]*treeNode, names []string) error {
	if _, dup := into[n.NodeID]; dup {
		return fmt.Errorf("duplicate node id %d", n.NodeID)
	}
	into[n.NodeID] = n
	if n.Leaf != nil {
		return nil
	}
	f, err := featureIndex(n.Split, names)
	if err != nil {
		return err
	}
	n.feature = f
	for i := range n.Children {
		if err := index(&n.Children[i], into, names); err != nil {
			return err
		}
	}
	return nil
}

func featureIndex(split string, names []string) (int, error) {
	for i, n := range names {
		if n == split {
			return i, nil
		}
	}
	if strings.HasPrefix(split, "f") {
		if i, err := strconv.Atoi(split[1:]); err == nil && i >= 0 && i < len(names) {
			return i, nil
		}
	}
	return 0, models.NewError(models.KindModelInputShape, "split on unknown feature %q", split)
}

func (e *TreeEnsemble) NumFeatures() int { return e.features }

func (e *TreeEnsemble) Predict(ctx context.Context, row []float64) (float64, error) {
	if len(row) != e.features {
		return 0, models.NewError(models.KindModelInputShape, "row has %d features, model expects %d", len(row), e.features)
	}
	sum := e.baseScore
	for i, t := range e.trees {
		if i%64 == 0 {
			if err := ctx.Err(); err != nil {
				return 0, err
			}
		}
		v, err := t.eval(row)
		if err != nil {
			return 0, fmt.Errorf("tree %d: %w", i, err)
		}
		sum += v
	}
	return sum, nil
}

func (t tree) eval(row []float64) (float64, error) {
	n, ok := t.nodes[0]
	for depth := 0; ok; depth++ {
		if n.Leaf != nil {
			return *n.Leaf, nil
		}
		if depth > len(t.nodes) {
			break
		}
		next := n.No
		switch v := row[n.feature]; {
		case math.IsNaN(v):
			next = n.Missing
		case v < n.SplitCondition:
			next = n.Yes
		}
		n, ok = t.nodes[next]
	}
	return 0, fmt.Errorf("malformed tree")
}
