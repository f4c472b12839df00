package strategy

import "spotscheduler/internal/model"

// Ranker turns a pool of assembled candidates into the ordered top-k the
// scheduler should attempt to buy this iteration. The default ranking
// (std_deviation desc, change desc, instid asc) lives in Top/Rank in filter.go;
// Ranker lets that ordering be swapped the way the teacher swaps concrete
// Strategy implementations into its Engine.
type Ranker interface {
	Name() string
	Rank(candidates []*model.Position, strat model.Strategy, windowSize int, spendable float64) []*model.Position
}

// DefaultRanker filters candidates by the validity gates, sorts by
// std_deviation desc / change desc / instid asc, and truncates to top_k.
type DefaultRanker struct{}

func (DefaultRanker) Name() string { return "default" }

func (DefaultRanker) Rank(candidates []*model.Position, strat model.Strategy, windowSize int, spendable float64) []*model.Position {
	return Top(candidates, strat, windowSize, spendable)
}

// Engine owns the active Ranker and exposes it to the scheduler loop.
type Engine struct {
	ranker Ranker
}

// NewEngine creates an Engine around the given Ranker.
func NewEngine(r Ranker) *Engine {
	if r == nil {
		r = DefaultRanker{}
	}
	return &Engine{ranker: r}
}

// Candidates runs the active ranker over pool.
func (e *Engine) Candidates(pool []*model.Position, strat model.Strategy, windowSize int, spendable float64) []*model.Position {
	return e.ranker.Rank(pool, strat, windowSize, spendable)
}

// Name returns the active ranker's name, for logging.
func (e *Engine) Name() string { return e.ranker.Name() }
