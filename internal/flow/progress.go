package flow

import (
	"context"
	"time"
)

// Step is one cosmetic progress message.
type Step struct {
	Delay time.Duration
	Label string
}

// Schedule is an ordered list of steps by increasing delay.
type Schedule []Step

// DefaultSchedule is shown while the analysis runs. It is not tied to the
// actual progress of the request.
var DefaultSchedule = Schedule{
	{Delay: 0, Label: "Lecture du fichier CSV..."},
	{Delay: 3 * time.Second, Label: "Analyse des données..."},
	{Delay: 8 * time.Second, Label: "Calcul des statistiques..."},
	{Delay: 15 * time.Second, Label: "Génération du rapport IA..."},
}

// StepAt returns the 1-based step reached after elapsed.
func (s Schedule) StepAt(elapsed time.Duration) int {
	step := 1
	for i, st := range s {
		if elapsed >= st.Delay {
			step = i + 1
		}
	}
	return step
}

// Label returns the label of a 1-based step, or "" when out of range.
func (s Schedule) Label(step int) string {
	if step < 1 || step > len(s) {
		return ""
	}
	return s[step-1].Label
}

// Run calls fn for every step as its delay elapses, using a single timer.
// It returns when the last step fired or ctx is done.
func (s Schedule) Run(ctx context.Context, fn func(step int, label string)) error {
	if len(s) == 0 {
		return nil
	}
	start := time.Now()
	timer := time.NewTimer(s[0].Delay)
	defer timer.Stop()
	for i := 0; i < len(s); i++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
		fn(i+1, s[i].Label)
		if i+1 < len(s) {
			timer.Reset(max(0, s[i+1].Delay-time.Since(start)))
		}
	}
	return nil
}
