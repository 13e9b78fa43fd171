package scrobble

import (
	"context"
	"fmt"

	"github.com/cadence-fm/cli/internal/session"
)

// Validator checks a play against the record schema before it goes out.
type Validator interface {
	ValidatePlay(play *Play) error
}

// Failure is one play the pipeline could not submit.
type Failure struct {
	Track string
	Err   error
}

func (f Failure) Error() string {
	return fmt.Sprintf("%v, for '%s'", f.Err, f.Track)
}

// Result aggregates the per-item outcomes of one batch.
type Result struct {
	Total     int
	Submitted int
	Failures  []Failure
}

// Err returns a non-nil error when any play in the batch failed. Partial
// success is still an overall failure; the failures list says which plays
// need attention.
func (r *Result) Err() error {
	if len(r.Failures) == 0 {
		return nil
	}
	return fmt.Errorf("%d of %d plays failed to submit", len(r.Failures), r.Total)
}

// Pipeline submits a batch of plays one at a time, in order, without
// stopping at the first failure. Every play is submitted at least once per
// run; re-running a partially failed batch resubmits the plays that
// already went through.
type Pipeline struct {
	// Service and Version make up the client-agent stamp.
	Service string
	Version string

	Handle session.Handle

	// Validator, when set, rejects malformed plays locally before any
	// network call.
	Validator Validator

	// Progress, when set, is called once per play with the outcome.
	Progress func(track string, err error)
}

// Submit pushes every play in order. One bad play never blocks the rest;
// its failure is recorded and the loop moves on.
func (p *Pipeline) Submit(ctx context.Context, plays []Play) *Result {
	result := &Result{Total: len(plays)}

	for i := range plays {
		play := plays[i]
		play.ClientAgent = p.clientAgent(play.SourceClientID)

		err := p.submitOne(ctx, &play)
		if err != nil {
			result.Failures = append(result.Failures, Failure{Track: play.DisplayName(), Err: err})
		} else {
			result.Submitted++
		}
		if p.Progress != nil {
			p.Progress(play.DisplayName(), err)
		}
	}

	return result
}

func (p *Pipeline) submitOne(ctx context.Context, play *Play) error {
	if play.MusicService == "" {
		play.MusicService = "local"
	}

	if p.Validator != nil {
		if err := p.Validator.ValidatePlay(play); err != nil {
			return err
		}
	}

	_, err := p.Handle.CreateRecord(ctx, PlayCollection, play)
	return err
}

// clientAgent renders the provenance stamp: "cadence/1.2.3", or
// "cadence/1.2.3 (Rockbox)" when the play names its source client.
func (p *Pipeline) clientAgent(sourceID string) string {
	if sourceID != "" {
		return fmt.Sprintf("%s/%s (%s)", p.Service, p.Version, sourceID)
	}
	return fmt.Sprintf("%s/%s", p.Service, p.Version)
}
