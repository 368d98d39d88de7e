package layout

import (
	"strconv"
	"strings"
)

// NodeKind is the placement class of a node, derived once from its id.
type NodeKind uint8

const (
	KindOther NodeKind = iota
	KindStart
	KindEnd
	KindStage
	KindSubstage
)

const (
	stagePrefix    = "stage-"
	substagePrefix = "substage-"
)

func (k NodeKind) String() string {
	switch k {
	case KindStart:
		return "start"
	case KindEnd:
		return "end"
	case KindStage:
		return "stage"
	case KindSubstage:
		return "substage"
	default:
		return "other"
	}
}

// IsAnchor reports whether nodes of this kind receive a directional anchor force.
func (k NodeKind) IsAnchor() bool {
	return k == KindStart || k == KindEnd || k == KindStage
}

// Radius returns the collision and drawing radius for the kind.
func (k NodeKind) Radius() float64 {
	switch k {
	case KindStart, KindEnd:
		return 70
	case KindStage:
		return 60
	case KindSubstage:
		return 40
	default:
		return 50
	}
}

// ClassifyID maps a node id onto its kind. For stage and substage ids the
// numeric suffix is returned as index; index is -1 when absent or not a
// number. "stage-x" with a non-numeric suffix still classifies as a stage.
func ClassifyID(id string) (NodeKind, int) {
	switch {
	case id == "start":
		return KindStart, -1
	case id == "end":
		return KindEnd, -1
	case strings.HasPrefix(id, stagePrefix):
		return KindStage, suffixIndex(id[len(stagePrefix):])
	case strings.HasPrefix(id, substagePrefix):
		return KindSubstage, suffixIndex(id[len(substagePrefix):])
	default:
		return KindOther, -1
	}
}

func suffixIndex(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return -1
	}
	return n
}
