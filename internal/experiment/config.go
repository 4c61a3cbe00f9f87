package experiment

import "fmt"

// ExploreSelection names how explore problems pick their action.
type ExploreSelection string

const (
	ExploreRandom   ExploreSelection = "random"
	ExploreRoulette ExploreSelection = "roulette"
)

// Config describes one run: every explore problem is followed by one exploit
// problem, and performance is the moving average of exploit correctness.
type Config struct {
	Problem          string           `json:"problem" yaml:"problem"`
	Problems         int              `json:"problems" yaml:"problems"`
	Seed             int64            `json:"seed" yaml:"seed"`
	ExploreSelection ExploreSelection `json:"explore_selection" yaml:"explore_selection"`
	UpdateOnExploit  bool             `json:"update_on_exploit" yaml:"update_on_exploit"`
	Window           int              `json:"moving_average_window" yaml:"moving_average_window"`
	RecordEvery      int              `json:"record_every" yaml:"record_every"`
	LogEvery         int              `json:"log_every" yaml:"log_every"`
	// ContinueFrom names a stored population snapshot to resume from.
	ContinueFrom string `json:"continue_from" yaml:"continue_from"`
	SaveSnapshot bool   `json:"save_snapshot" yaml:"save_snapshot"`
}

func DefaultConfig() Config {
	return Config{
		Problem:          "mux6",
		Problems:         10000,
		Seed:             1,
		ExploreSelection: ExploreRandom,
		Window:           50,
		RecordEvery:      50,
		LogEvery:         1000,
		SaveSnapshot:     true,
	}
}

func (c Config) Validate() error {
	if c.Problem == "" {
		return fmt.Errorf("problem is required")
	}
	if c.Problems <= 0 {
		return fmt.Errorf("problems must be > 0")
	}
	if c.Window <= 0 {
		return fmt.Errorf("moving average window must be > 0")
	}
	if c.RecordEvery <= 0 {
		return fmt.Errorf("record_every must be > 0")
	}
	if c.LogEvery < 0 {
		return fmt.Errorf("log_every must be >= 0")
	}
	switch c.ExploreSelection {
	case ExploreRandom, ExploreRoulette:
	default:
		return fmt.Errorf("unsupported explore selection: %s", c.ExploreSelection)
	}
	return nil
}
