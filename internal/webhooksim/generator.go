package webhooksim

import (
	"encoding/json"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"
)

// Kinds of generated deliveries, each with its weight out of kindWeightTotal.
const (
	kindPush = iota
	kindPROpened
	kindPRMerged
	kindPRClosed
	kindIssueOpened
	kindIssueClosed
	kindOther
)

var kindWeights = []struct {
	kind   int
	weight int
}{
	{kindPush, 45},
	{kindPROpened, 12},
	{kindPRMerged, 10},
	{kindPRClosed, 5},
	{kindIssueOpened, 12},
	{kindIssueClosed, 8},
	{kindOther, 8},
}

const (
	kindWeightTotal = 100
	maxCommits      = 5
)

// XP per kind. Closed-unmerged pull requests earn nothing.
const (
	xpPerCommit   = 10
	xpPROpened    = 50
	xpPRMerged    = 100
	xpIssueOpened = 20
	xpIssueClosed = 30
	xpOther       = 5
)

var otherEvents = []string{"star", "fork", "release", "create"}

// Generator builds random but reproducible deliveries.
type Generator struct {
	rng     *rand.Rand
	repo    string
	senders []string
}

// NewGenerator returns a generator for repo and senders. A zero seed uses the clock.
func NewGenerator(seed uint64, repo string, senders []string) *Generator {
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	return &Generator{
		rng:     rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
		repo:    repo,
		senders: senders,
	}
}

// Generate returns n deliveries with unique ids.
func (g *Generator) Generate(n int) []Delivery {
	out := make([]Delivery, n)
	for i := range out {
		out[i] = g.next()
	}
	return out
}

func (g *Generator) next() Delivery {
	sender := g.senders[g.rng.IntN(len(g.senders))]
	base := map[string]any{
		"repository": map[string]any{"full_name": g.repo},
		"sender":     map[string]any{"id": json.Number(sender), "login": "sim-" + sender},
	}

	var (
		event string
		xp    int64
	)
	switch g.pickKind() {
	case kindPush:
		n := 1 + g.rng.IntN(maxCommits)
		commits := make([]map[string]string, n)
		for i := range commits {
			commits[i] = map[string]string{"id": uuid.NewString(), "message": fmt.Sprintf("change %d", i)}
		}
		base["commits"] = commits
		event, xp = "push", int64(n*xpPerCommit)
	case kindPROpened:
		base["action"] = "opened"
		base["pull_request"] = map[string]any{"merged": false}
		event, xp = "pull_request", xpPROpened
	case kindPRMerged:
		base["action"] = "closed"
		base["pull_request"] = map[string]any{"merged": true}
		event, xp = "pull_request", xpPRMerged
	case kindPRClosed:
		base["action"] = "closed"
		base["pull_request"] = map[string]any{"merged": false}
		event, xp = "pull_request", 0
	case kindIssueOpened:
		base["action"] = "opened"
		event, xp = "issues", xpIssueOpened
	case kindIssueClosed:
		base["action"] = "closed"
		event, xp = "issues", xpIssueClosed
	default:
		event, xp = otherEvents[g.rng.IntN(len(otherEvents))], xpOther
	}

	body, _ := json.Marshal(base)
	return Delivery{
		ID:         uuid.NewString(),
		Event:      event,
		Sender:     sender,
		Body:       body,
		ExpectedXP: xp,
	}
}

func (g *Generator) pickKind() int {
	r := g.rng.IntN(kindWeightTotal)
	for _, kw := range kindWeights {
		if r < kw.weight {
			return kw.kind
		}
		r -= kw.weight
	}
	return kindOther
}

// Redeliveries returns copies of roughly fraction of ds, keeping their ids,
// so the server's dedupe can be observed. Copies expect 0 XP.
func (g *Generator) Redeliveries(ds []Delivery, fraction float64) []Delivery {
	var out []Delivery
	for _, d := range ds {
		if g.rng.Float64() < fraction {
			d.ExpectedXP = 0
			out = append(out, d)
		}
	}
	return out
}
