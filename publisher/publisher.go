// Package publisher implements the publish phase of the Handler Runtime
// (spec.md §4.5): archive, harvest, store, in that fixed order, with
// harvest rollback on a subsequent store failure.
//
// Do not reorder archive/harvest/store. Harvest-before-store would expose a
// window where a catalog entry references an object not yet present;
// store-before-harvest would expose an object not yet discoverable. This
// order accepts a brief pre-store window for catalog entries but guarantees
// that once store completes, both catalog and object exist — and the
// rollback rule below shrinks that exposure to nothing once the rollback
// itself completes. See spec.md §4.5, §9.
//
// Grounded on the teacher's api/buckethandler.go#CloseBucket (sequential
// per-artifact operation chaining with early-return-on-error), generalized
// from "close every artifact in a bucket" to "run every phase over every
// eligible file", and on original_source/aodncore/pipeline/storage.py's
// upload/delete/set_is_overwrite shape for the store phase.
package publisher

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/aodn/pipeline/common/stats"
	"github.com/aodn/pipeline/harvest"
	"github.com/aodn/pipeline/model"
	"github.com/aodn/pipeline/pipelineerr"
	"github.com/aodn/pipeline/storage"
)

// Publisher drives the publish phase over one FileCollection.
type Publisher struct {
	ArchiveBroker storage.StorageBroker
	StoreBroker   storage.StorageBroker

	// MatchHarvester returns the harvester name a file belongs to, or ""
	// if the file has no matching harvester. Required whenever the
	// collection contains files with a harvest flag set.
	MatchHarvester func(*model.PipelineFile) string

	// Harvesters is the set of registered harvester runners, keyed by the
	// name MatchHarvester returns.
	Harvesters map[string]harvest.HarvesterRunner

	// ArchiveFatal controls whether an archive failure aborts the publish
	// (spec.md §4.5: "Archive failures can be configured as either fatal
	// or warn-only").
	ArchiveFatal bool

	Logger *zerolog.Logger
}

func (p *Publisher) logger() *zerolog.Logger {
	if p.Logger != nil {
		return p.Logger
	}
	l := zerolog.Nop()
	return &l
}

// eligible reports whether f may participate in any publish action at all
// (spec.md §3: "A file with check_passed = failed cannot have any
// publish_type action executed").
func eligible(f *model.PipelineFile) bool {
	return f.CheckPassed != model.CheckFailed
}

// Publish runs archive, harvest, store, in that order, over every file in
// collection, per spec.md §4.5. Every eligible file with a publish action
// is validated against the §3 invariants before any sink is touched, so a
// malformed record aborts the whole phase instead of surfacing halfway
// through a partial publish.
func (p *Publisher) Publish(ctx context.Context, collection *model.FileCollection) error {
	for _, f := range collection.All() {
		if !eligible(f) || f.PublishType == model.PublishNone {
			continue
		}
		if err := f.ValidateForPublish(); err != nil {
			return pipelineerr.WrapInvariantViolation(err)
		}
	}

	if err := p.archivePhase(ctx, collection); err != nil {
		return err
	}

	harvested, err := p.harvestPhase(ctx, collection)
	if err != nil {
		return err
	}

	if err := p.storePhase(ctx, collection, harvested); err != nil {
		return err
	}

	return nil
}

// archivePhase copies every archive-flagged, not-yet-archived, eligible
// file to ArchiveBroker under ArchivePath, in insertion order (spec.md
// §4.5 step 1, §4.5 tie-break).
func (p *Publisher) archivePhase(ctx context.Context, collection *model.FileCollection) error {
	view := collection.Filter(func(f *model.PipelineFile) bool {
		return eligible(f) && f.PublishType.Has(model.PublishArchive) && !f.IsArchived
	})

	for _, f := range view.All() {
		if f.ArchivePath == "" {
			return pipelineerr.NewInvariantViolation("file %q flagged for archive with no archive_path", f.LocalPath)
		}

		if err := p.ArchiveBroker.Put(ctx, f.LocalPath, f.ArchivePath); err != nil {
			p.logger().Warn().Err(err).Str("file", f.LocalPath).Msg("archive put failed")
			if p.ArchiveFatal {
				return pipelineerr.WrapSinkPermanent(fmt.Errorf("archiving %q: %w", f.LocalPath, err))
			}
			continue
		}
		f.IsArchived = true
	}
	return nil
}

// harvestPhase groups harvest-flagged eligible files by matching harvester
// and invokes each harvester once per group (spec.md §4.5 step 2).
// Harvester invocations are serialized across groups — the loop below never
// launches two at once, honoring "harvesters are assumed not
// concurrency-safe". Returns the set of files successfully harvested this
// call, keyed by LocalPath, for the store phase's rollback bookkeeping.
func (p *Publisher) harvestPhase(ctx context.Context, collection *model.FileCollection) (map[string]bool, error) {
	harvested := make(map[string]bool)

	view := collection.Filter(func(f *model.PipelineFile) bool {
		return eligible(f) && !f.IsHarvested &&
			(f.PublishType.Has(model.PublishHarvestAddition) || f.PublishType.Has(model.PublishHarvestDeletion))
	})

	files := view.All()
	if len(files) == 0 {
		return harvested, nil
	}

	if p.MatchHarvester == nil {
		return nil, pipelineerr.NewInvariantViolation("files require harvesting but no harvester matcher is configured")
	}

	hmap := harvest.NewHarvesterMap()
	for _, f := range files {
		name := p.MatchHarvester(f)
		if name == "" {
			return nil, pipelineerr.NewResolveFailure("no matching harvester for %q", f.SourcePath)
		}
		single := model.NewFileCollection()
		_ = single.Add(f)
		hmap.AddEvent(name, harvest.TriggerEvent{MatchedFiles: single})
	}

	for _, name := range hmap.Harvesters() {
		runner, ok := p.Harvesters[name]
		if !ok {
			return nil, pipelineerr.NewInvariantViolation("no harvester registered for name %q", name)
		}

		additions := model.NewFileCollection()
		deletions := model.NewFileCollection()
		for _, event := range hmap.EventsFor(name) {
			for _, f := range event.MatchedFiles.All() {
				if f.PublishType.Has(model.PublishHarvestAddition) {
					_ = additions.Add(f)
				}
				if f.PublishType.Has(model.PublishHarvestDeletion) {
					_ = deletions.Add(f)
				}
			}
		}

		// A group mixing additions and deletions submits both in one
		// harvester transaction where the harvester supports it;
		// otherwise additions first, then deletions (spec.md §4.5).
		if additions.Count() > 0 && deletions.Count() > 0 {
			if tr, ok := runner.(harvest.TransactionalRunner); ok {
				if err := tr.IngestAndRemove(additions, deletions); err != nil {
					return nil, pipelineerr.WrapSinkPermanent(fmt.Errorf("harvester %q transaction: %w", name, err))
				}
				for _, f := range append(additions.All(), deletions.All()...) {
					f.IsHarvested = true
					harvested[f.LocalPath] = true
				}
				continue
			}
		}

		if additions.Count() > 0 {
			if err := runner.Ingest(additions); err != nil {
				return nil, pipelineerr.WrapSinkPermanent(fmt.Errorf("harvester %q ingest: %w", name, err))
			}
			for _, f := range additions.All() {
				f.IsHarvested = true
				harvested[f.LocalPath] = true
			}
		}

		if deletions.Count() > 0 {
			if err := runner.Remove(deletions); err != nil {
				return nil, pipelineerr.WrapSinkPermanent(fmt.Errorf("harvester %q remove: %w", name, err))
			}
			for _, f := range deletions.All() {
				f.IsHarvested = true
				harvested[f.LocalPath] = true
			}
		}
	}

	return harvested, nil
}

// storePhase uploads/deletes every eligible, store-flagged file. A store
// failure aborts the phase, and every file harvested this call that never
// made it into the store — the failing file, the files after it, and any
// harvested file with no store action — receives a compensating harvester deletion before the error is returned
// (spec.md §4.5 atomicity rule: is_harvested must not outlive a store that
// never happened).
func (p *Publisher) storePhase(ctx context.Context, collection *model.FileCollection, harvestedThisCall map[string]bool) error {
	view := collection.Filter(func(f *model.PipelineFile) bool {
		return eligible(f) && (f.PublishType.Has(model.PublishUpload) || f.PublishType.Has(model.PublishDelete))
	})

	for _, f := range view.All() {
		if err := p.storeOne(ctx, f); err != nil {
			if rbErr := p.rollbackUnstored(collection, harvestedThisCall); rbErr != nil {
				p.logger().Error().Err(rbErr).Str("file", f.LocalPath).
					Msg("harvest rollback failed; catalog entry is stale")
				return pipelineerr.WrapInvariantViolation(
					fmt.Errorf("store of %q failed (%v) and harvest rollback also failed: %w", f.LocalPath, err, rbErr))
			}
			return err
		}
	}
	return nil
}

// rollbackUnstored submits a compensating harvester deletion for every
// file harvested this call that has no completed store action, in
// insertion order. The first rollback failure is returned after the
// remaining rollbacks have still been attempted, so one broken harvester
// does not strand every other stale entry.
func (p *Publisher) rollbackUnstored(collection *model.FileCollection, harvestedThisCall map[string]bool) error {
	var firstErr error
	for _, f := range collection.All() {
		if !harvestedThisCall[f.LocalPath] || f.IsStored {
			continue
		}
		if err := p.rollbackHarvest(f); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (p *Publisher) storeOne(ctx context.Context, f *model.PipelineFile) error {
	upload := f.PublishType.Has(model.PublishUpload)
	del := f.PublishType.Has(model.PublishDelete)

	switch {
	case upload && del && f.LateDeletion:
		if err := p.upload(ctx, f); err != nil {
			return err
		}

		target := f.EffectiveDeleteTargetPath()
		if target != "" && target != f.DestPath {
			if err := p.StoreBroker.Delete(ctx, target); err != nil {
				return pipelineerr.WrapSinkPermanent(fmt.Errorf("late-deletion of %q: %w", target, err))
			}
		}
		return nil

	case upload:
		return p.upload(ctx, f)

	case del:
		if f.DestPath == "" {
			return pipelineerr.NewInvariantViolation("file %q flagged for delete with no dest_path", f.LocalPath)
		}
		if err := p.StoreBroker.Delete(ctx, f.DestPath); err != nil {
			return pipelineerr.WrapSinkPermanent(fmt.Errorf("deleting %q: %w", f.DestPath, err))
		}
		f.IsStored = true
		stats.FilePublished()
		return nil
	}

	return nil
}

// upload transfers f to DestPath, first recording whether the write is an
// overwrite of an existing object (original_source storage.py's
// set_is_overwrite: consumers of the publish report distinguish fresh
// publications from replacements). The existence probe is best-effort; a
// probe failure leaves IsOverwrite false rather than blocking the upload.
func (p *Publisher) upload(ctx context.Context, f *model.PipelineFile) error {
	if f.DestPath == "" {
		return pipelineerr.NewInvariantViolation("file %q flagged for upload with no dest_path", f.LocalPath)
	}

	if exists, err := p.StoreBroker.Exists(ctx, f.DestPath); err == nil && exists {
		f.IsOverwrite = true
	}

	if err := p.StoreBroker.Put(ctx, f.LocalPath, f.DestPath); err != nil {
		return pipelineerr.WrapSinkPermanent(fmt.Errorf("uploading %q: %w", f.LocalPath, err))
	}
	f.IsStored = true
	stats.FilePublished()
	return nil
}

// rollbackHarvest submits a compensating harvester deletion for f and
// reverts its IsHarvested flag, per spec.md §4.5's atomicity rule. A
// harvester that doesn't support deletion is non-rollbackable: the
// returned error makes the stale catalog entry loud instead of leaving it
// silently in place.
func (p *Publisher) rollbackHarvest(f *model.PipelineFile) error {
	if p.MatchHarvester == nil {
		return pipelineerr.NewInvariantViolation("cannot roll back harvest of %q: no harvester matcher configured", f.LocalPath)
	}

	name := p.MatchHarvester(f)
	runner, ok := p.Harvesters[name]
	if !ok || !runner.SupportsDeletion() {
		return pipelineerr.NewInvariantViolation("harvester %q cannot delete; harvest of %q is non-rollbackable", name, f.LocalPath)
	}

	single := model.NewFileCollection()
	_ = single.Add(f)
	if err := runner.Remove(single); err != nil {
		return pipelineerr.WrapSinkPermanent(fmt.Errorf("compensating harvest rollback of %q: %w", f.LocalPath, err))
	}
	f.RollbackHarvest()
	return nil
}
