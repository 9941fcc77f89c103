// Package baseline runs one shodiff invocation: search, then compare against
// and/or replace the stored baseline for the term, depending on intent.
//
//	Start -> Searched -> {CompareOnly | BaselineOnly | CompareAndBaseline | Neither} -> Done
//
// CompareAndBaseline is reached only when a diff finds no cached baseline and
// falls back to storing the fresh result.
package baseline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/corey/shodiff/internal/domain/snapshot"
	"github.com/corey/shodiff/internal/ports"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// ErrEmptyTerm is returned for a blank search term.
var ErrEmptyTerm = errors.New("empty search term")

// Intent is what the caller asked to do with the store.
type Intent int

const (
	// IntentNone searches and prints only; the store is never opened.
	IntentNone Intent = iota
	// IntentBaseline replaces the stored baseline with the fresh result.
	IntentBaseline
	// IntentDiff compares the fresh result against the stored baseline.
	IntentDiff
)

// String returns the intent name.
func (i Intent) String() string {
	switch i {
	case IntentNone:
		return "none"
	case IntentBaseline:
		return "baseline"
	case IntentDiff:
		return "diff"
	default:
		return "unknown"
	}
}

// Outcome is the terminal state of a successful run.
type Outcome int

const (
	// OutcomeSearched: no intent, result printed only.
	OutcomeSearched Outcome = iota
	// OutcomeNoDiff: baseline exists and equals the fresh result.
	OutcomeNoDiff
	// OutcomeDiffFound: baseline exists and differs from the fresh result.
	OutcomeDiffFound
	// OutcomeNoCacheBaselined: diff requested, no baseline existed, fresh result stored.
	OutcomeNoCacheBaselined
	// OutcomeBaselined: baseline explicitly replaced.
	OutcomeBaselined
)

// String returns the outcome name.
func (o Outcome) String() string {
	switch o {
	case OutcomeSearched:
		return "searched"
	case OutcomeNoDiff:
		return "no_diff"
	case OutcomeDiffFound:
		return "diff_found"
	case OutcomeNoCacheBaselined:
		return "no_cache_baselined"
	case OutcomeBaselined:
		return "baselined"
	default:
		return "unknown"
	}
}

// Request is one invocation's input.
type Request struct {
	Term     string
	Baseline bool // --baseline
	Diff     bool // --diff
}

// Intent resolves the requested flags. Both flags together is
// ports.ErrConflictingIntent.
func (r Request) Intent() (Intent, error) {
	switch {
	case r.Baseline && r.Diff:
		return IntentNone, ports.ErrConflictingIntent
	case r.Baseline:
		return IntentBaseline, nil
	case r.Diff:
		return IntentDiff, nil
	default:
		return IntentNone, nil
	}
}

// Report describes what a run did.
type Report struct {
	RunID     string
	Term      string
	Requested Intent
	Effective Intent // Baseline when a diff found no cached result
	Outcome   Outcome
	Fresh     *ports.SearchResult // always set once the search succeeded
	Cached    *ports.SearchResult // baseline compared against, nil if none
	Diff      snapshot.Diff       // cached -> fresh, set for NoDiff / DiffFound
	Stored    bool                // fresh result written as the new baseline
}

// StoreOpener opens the baseline store. Called at most once per run and only
// when an intent needs the store.
type StoreOpener func() (ports.BaselineStore, error)

// Runner executes runs. Provider and OpenStore are required.
type Runner struct {
	Provider  ports.SearchProvider
	OpenStore StoreOpener
	Logger    logrus.FieldLogger
}

// Run executes one invocation.
//
// On a fatal error the returned Report may still be non-nil and carry the
// fresh result, so callers can print what was found before failing. Errors
// wrap ports.ErrConflictingIntent, ports.ErrSearchFailed or
// ports.ErrStoreUnavailable.
func (r *Runner) Run(ctx context.Context, req Request) (rep *Report, err error) {
	intent, err := req.Intent()
	if err != nil {
		return nil, err
	}
	term := strings.TrimSpace(req.Term)
	if term == "" {
		return nil, ErrEmptyTerm
	}

	rep = &Report{RunID: uuid.New().String(), Term: term, Requested: intent}
	log := r.logger().WithFields(logrus.Fields{"run_id": rep.RunID, "term": term, "intent": intent})

	fresh, err := r.Provider.Search(ctx, term)
	if err != nil {
		log.WithError(err).Error("search failed")
		return nil, fmt.Errorf("%w: %w", ports.ErrSearchFailed, err)
	}
	rep.Fresh = fresh
	log.WithField("hosts", fresh.HostCount()).Info("searched")

	if intent == IntentNone {
		rep.Effective = IntentNone
		rep.Outcome = OutcomeSearched
		return rep, nil
	}

	store, err := r.OpenStore()
	if err != nil {
		log.WithError(err).Error("open store")
		return rep, fmt.Errorf("%w: %w", ports.ErrStoreUnavailable, err)
	}
	defer func() {
		if cerr := store.Close(); cerr != nil && err == nil {
			log.WithError(cerr).Error("close store")
			err = fmt.Errorf("%w: close: %w", ports.ErrStoreUnavailable, cerr)
		}
	}()

	effective := intent
	if intent == IntentDiff {
		cached, err := store.Lookup(term)
		if err != nil {
			log.WithError(err).Error("lookup baseline")
			return rep, fmt.Errorf("%w: lookup %q: %w", ports.ErrStoreUnavailable, term, err)
		}
		if cached == nil {
			log.Info("no cached result, storing fresh result as baseline")
			effective = IntentBaseline
		} else {
			rep.Cached = cached
			rep.Diff = snapshot.Compare(cached, fresh)
			if cached.Equals(fresh) {
				rep.Outcome = OutcomeNoDiff
			} else {
				rep.Outcome = OutcomeDiffFound
			}
		}
	}

	rep.Effective = effective
	if effective == IntentBaseline {
		if err := store.Put(fresh); err != nil {
			log.WithError(err).Error("store baseline")
			return rep, fmt.Errorf("%w: put %q: %w", ports.ErrStoreUnavailable, term, err)
		}
		rep.Stored = true
		if intent == IntentDiff {
			rep.Outcome = OutcomeNoCacheBaselined
		} else {
			rep.Outcome = OutcomeBaselined
		}
	}

	log.WithField("outcome", rep.Outcome).Info("done")
	return rep, nil
}

func (r *Runner) logger() logrus.FieldLogger {
	if r.Logger != nil {
		return r.Logger
	}
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

// IsUsageError reports whether err is a caller mistake rather than a runtime
// failure.
func IsUsageError(err error) bool {
	return errors.Is(err, ports.ErrConflictingIntent) || errors.Is(err, ErrEmptyTerm)
}
