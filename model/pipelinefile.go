package model

import (
	"fmt"
)

// PipelineFile is the central record threaded between phases (spec.md §3).
//
// Once any of IsStored/IsArchived/IsHarvested is true, the corresponding
// destination attribute (DestPath/ArchivePath) is immutable for the
// lifetime of the record — callers must not mutate DestPath/ArchivePath
// after setting the matching Is* flag. This module does not enforce that at
// the type level (the teacher's own Artifact/Bucket records are likewise
// plain structs with comment-documented invariants, not enforced setters);
// the publisher is the only code path permitted to flip the Is* flags, and
// it does so only after the corresponding sink call returns successfully —
// except for RollbackHarvest, which reverts IsHarvested to false when a
// paired store write fails after a successful harvest (spec.md §4.5).
type PipelineFile struct {
	LocalPath   string
	SourcePath  string
	FileType    FileType
	CheckType   CheckType
	CheckPassed CheckPassed
	CheckResult CheckResult

	PublishType PublishType
	DestPath    string
	ArchivePath string

	IsStored    bool
	IsArchived  bool
	IsHarvested bool
	IsDeletion  bool

	// IsOverwrite records that the store sink already held an object at
	// DestPath when the upload ran, so the publish report can distinguish
	// replacements from fresh publications.
	IsOverwrite bool

	Checksum string
	MimeType string
	Size     int64

	LateDeletion bool

	// DeleteTargetPath names the store object removed by the deferred
	// delete of a late-deletion pair (spec.md §4.5, §8 "Late-deletion
	// replace"). Defaults to DestPath when unset; the publisher issues no
	// separate delete when the target equals DestPath, since the upload has
	// already replaced the object at that path.
	DeleteTargetPath string
}

// NewPipelineFile constructs a record for localPath, defaulting DestPath
// from sourcePath the way the teacher's Artifact.DefaultS3URL defaults an
// artifact's storage location from its bucket/name when no explicit path is
// supplied.
func NewPipelineFile(localPath, sourcePath string) *PipelineFile {
	return &PipelineFile{
		LocalPath:  localPath,
		SourcePath: sourcePath,
		DestPath:   sourcePath,
	}
}

// DefaultDestPath mirrors the teacher's Artifact.DefaultS3URL: the
// fallback destination derived purely from the record's own fields, used
// when no handler-supplied path function overrides it.
func (f *PipelineFile) DefaultDestPath() string {
	return f.SourcePath
}

// ValidateForPublish enforces the invariants of spec.md §3 that are cheap
// to check at the point a publish action is about to run, returning a
// descriptive error instead of allowing a silently-wrong upload.
func (f *PipelineFile) ValidateForPublish() error {
	if f.CheckPassed == CheckFailed {
		return fmt.Errorf("pipeline file %q: check_passed=failed, no publish action may run", f.LocalPath)
	}

	needsDest := f.PublishType.Has(PublishUpload) || f.PublishType.Has(PublishDelete) ||
		f.PublishType.Has(PublishArchive)
	if needsDest && f.DestPath == "" && f.ArchivePath == "" {
		return fmt.Errorf("pipeline file %q: dest_path/archive_path not set before publish", f.LocalPath)
	}

	if f.PublishType.Has(PublishUpload) && f.PublishType.Has(PublishDelete) && !f.LateDeletion {
		return fmt.Errorf("pipeline file %q: upload and delete both set without late_deletion", f.LocalPath)
	}

	return nil
}

// EffectiveDeleteTargetPath returns DeleteTargetPath if set, else DestPath,
// the resolution rule a late-deletion delete step uses to find what to
// remove (spec.md §4.5).
func (f *PipelineFile) EffectiveDeleteTargetPath() string {
	if f.DeleteTargetPath != "" {
		return f.DeleteTargetPath
	}
	return f.DestPath
}

// RollbackHarvest reverts IsHarvested to false. This is the sole sanctioned
// exception to the "false -> true, never back" monotonicity of the Is*
// flags: spec.md §4.5's atomicity rule requires a harvest to be undone when
// the paired store write subsequently fails, and §8's testable property
// for that scenario names is_harvested=false as the expected post-rollback
// state. Only the publisher's compensating-rollback path may call this.
func (f *PipelineFile) RollbackHarvest() {
	f.IsHarvested = false
}
