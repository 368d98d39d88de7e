package layout

import (
	"math/rand/v2"

	"github.com/rendis/flowmon/pkg/schema"
)

// place assigns initial positions. Anchors and stages land on fixed
// coordinates; substages cluster around their parent stage; everything else
// is scattered around the canvas center. Substages are placed in a second
// pass so that their stage position is already known.
func place(a *Arena, g *schema.Graph, cfg Config, rng *rand.Rand) {
	var deferred []int
	for i := range a.Bodies {
		b := &a.Bodies[i]
		switch b.Kind {
		case KindStart:
			b.X, b.Y = cfg.CenterX, cfg.StartY
		case KindEnd:
			b.X, b.Y = cfg.CenterX, a.EndY
		case KindStage:
			if b.Row > 0 {
				b.X, b.Y = cfg.CenterX, stageY(cfg, b.Row)
			} else {
				scatter(b, cfg, rng)
			}
		case KindSubstage:
			deferred = append(deferred, i)
		default:
			scatter(b, cfg, rng)
		}
	}

	for _, i := range deferred {
		b := &a.Bodies[i]
		parent, ok := parentStage(a, g, b.ID)
		if !ok {
			scatter(b, cfg, rng)
			continue
		}
		b.X = parent.X + jitter(rng, cfg.SubstageOffset)
		b.Y = parent.Y + jitter(rng, cfg.SubstageOffset)
	}
}

// parentStage resolves data.stageId of a substage node to its stage body.
func parentStage(a *Arena, g *schema.Graph, id string) (Body, bool) {
	node := g.NodeByID(id)
	if node == nil {
		return Body{}, false
	}
	stageID := node.DataString("stageId")
	if stageID == "" {
		return Body{}, false
	}
	parent, ok := a.Body(stagePrefix + stageID)
	if !ok || parent.Kind != KindStage {
		return Body{}, false
	}
	return parent, true
}

// stageY is the ladder y of a stage row.
func stageY(cfg Config, row int) float64 {
	return cfg.StageBaseY + float64(row)*cfg.StageSpacing
}

func scatter(b *Body, cfg Config, rng *rand.Rand) {
	b.X = cfg.CenterX + jitter(rng, cfg.RandomSpread/2)
	b.Y = cfg.CenterY + jitter(rng, cfg.RandomSpread/2)
}

// jitter returns a uniform value in [-bound, bound).
func jitter(rng *rand.Rand, bound float64) float64 {
	return (rng.Float64()*2 - 1) * bound
}
