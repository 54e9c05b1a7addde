package rank

import (
	"context"
	"errors"
	"sort"

	"github.com/mchmarny/cryptorec/pkg/kb"
	"github.com/mchmarny/cryptorec/pkg/score"
	"golang.org/x/sync/errgroup"
)

const (
	// DefaultThreshold is the score a result must exceed to be recommended.
	DefaultThreshold = 30
	// DefaultLimit is the number of recommendations returned.
	DefaultLimit = 5
	// MaxDisplay caps the score shown to users. Ranking uses the uncapped score.
	MaxDisplay = 100

	// parallelMin is the algorithm count from which scoring fans out.
	parallelMin   = 64
	parallelLimit = 8
)

// ErrNoBase is returned when scoring is requested without a knowledge base.
var ErrNoBase = errors.New("knowledge base required")

// Options controls the selection of results.
type Options struct {
	Threshold int  `json:"threshold" yaml:"threshold"`
	Limit     int  `json:"limit" yaml:"limit"`
	All       bool `json:"all,omitempty" yaml:"all,omitempty"`
}

func DefaultOptions() Options {
	return Options{Threshold: DefaultThreshold, Limit: DefaultLimit}
}

// Item is a single ranked algorithm.
type Item struct {
	Key     string        `json:"key" yaml:"key"`
	Name    string        `json:"name,omitempty" yaml:"name,omitempty"`
	Type    string        `json:"type,omitempty" yaml:"type,omitempty"`
	Score   int           `json:"score" yaml:"score"`
	Display int           `json:"display" yaml:"display"`
	Reason  string        `json:"reason,omitempty" yaml:"reason,omitempty"`
	Result  *score.Result `json:"result,omitempty" yaml:"result,omitempty"`
}

// Recommendation is the outcome of ranking a knowledge base against requirements.
type Recommendation struct {
	RunID        string              `json:"runId,omitempty" yaml:"runId,omitempty"`
	Source       string              `json:"source" yaml:"source"`
	Requirements *score.Requirements `json:"requirements" yaml:"requirements"`
	Options      Options             `json:"options" yaml:"options"`
	Items        []*Item             `json:"items" yaml:"items"`
	NoMatch      bool                `json:"noMatch" yaml:"noMatch"`
	Scores       map[string]int      `json:"scores,omitempty" yaml:"scores,omitempty"`
}

// Top returns the best item or nil when nothing matched.
func (r *Recommendation) Top() *Item {
	if r == nil || len(r.Items) == 0 {
		return nil
	}
	return r.Items[0]
}

// Recommend scores every algorithm of b once and returns those scoring above
// the threshold, best first, ties by key.
func Recommend(ctx context.Context, b *kb.Base, req *score.Requirements, opts Options) (*Recommendation, error) {
	if opts.Limit <= 0 {
		opts.Limit = DefaultLimit
	}
	n := req.Normalize()

	items, err := ScoreAll(ctx, b, n)
	if err != nil {
		return nil, err
	}

	rec := &Recommendation{
		Requirements: n,
		Options:      opts,
		Items:        make([]*Item, 0, opts.Limit),
	}
	rec.Source = b.Source
	if opts.All {
		rec.Scores = make(map[string]int, len(items))
	}

	for _, it := range items {
		if rec.Scores != nil {
			rec.Scores[it.Key] = it.Score
		}
		if it.Score <= opts.Threshold || len(rec.Items) >= opts.Limit {
			continue
		}
		it.Reason = score.Explain(b.Algorithms[it.Key], n, it.Result)
		rec.Items = append(rec.Items, it)
	}
	rec.NoMatch = len(rec.Items) == 0

	return rec, nil
}

// ScoreAll scores every algorithm of b and returns the items sorted by score
// descending, ties by key. The order does not depend on whether scoring ran
// in parallel.
func ScoreAll(ctx context.Context, b *kb.Base, req *score.Requirements) ([]*Item, error) {
	if b == nil {
		return nil, ErrNoBase
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	keys := b.AlgorithmKeys()
	items := make([]*Item, len(keys))
	if len(keys) == 0 {
		return items, nil
	}

	one := func(i int) {
		k := keys[i]
		a := b.Algorithms[k]
		r := score.Evaluate(k, a, req, b.Standards)
		it := &Item{
			Key:     k,
			Score:   r.Score,
			Display: min(r.Score, MaxDisplay),
			Result:  r,
		}
		if a != nil {
			it.Name = a.Name
			it.Type = a.Type
		}
		items[i] = it
	}

	if len(keys) < parallelMin {
		for i := range keys {
			one(i)
		}
	} else {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(parallelLimit)
		for i := range keys {
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				one(i)
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
	}

	sort.SliceStable(items, func(i, j int) bool {
		if items[i].Score != items[j].Score {
			return items[i].Score > items[j].Score
		}
		return items[i].Key < items[j].Key
	})

	return items, nil
}
