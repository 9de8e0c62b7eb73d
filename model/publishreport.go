package model

// PublishReport summarizes the outcome of one handler execution for the
// notify phase (spec.md §4.6, §4.10), the Go shape of the teacher's
// Bucket/Artifact JSON responses condensed into one payload instead of
// requiring the recipient to re-fetch each artifact.
type PublishReport struct {
	Disposition Disposition
	Stored      []string
	Overwrote   []string
	Archived    []string
	Harvested   []string
	Failed      []string
}

// BuildPublishReport walks collection once and buckets each file by the
// side effect that actually took hold (SourcePath for a failed check,
// DestPath for stored/overwritten/harvested, ArchivePath for archived),
// mirroring the
// teacher's response-shaping helpers (parseArtifactListFromResponse) that
// condense a FileCollection-sized body into a small reportable shape.
func BuildPublishReport(disposition Disposition, collection *FileCollection) *PublishReport {
	report := &PublishReport{Disposition: disposition}

	for _, f := range collection.All() {
		switch {
		case f.CheckPassed == CheckFailed:
			report.Failed = append(report.Failed, f.SourcePath)
		default:
			if f.IsStored {
				report.Stored = append(report.Stored, f.DestPath)
				if f.IsOverwrite {
					report.Overwrote = append(report.Overwrote, f.DestPath)
				}
			}
			if f.IsArchived {
				report.Archived = append(report.Archived, f.ArchivePath)
			}
			if f.IsHarvested {
				report.Harvested = append(report.Harvested, f.DestPath)
			}
		}
	}

	return report
}
