package model

// CheckResult is the outcome of running a single check strategy against a
// PipelineFile. Ported from aodncore.pipeline.common.CheckResult: Compliant
// is the pass/fail verdict, Log carries arbitrary diagnostic lines (kept as
// a slice, mirroring the source's use of a collection "to correlate it to
// lines in a log file"), Errored distinguishes an inconclusive run (checker
// itself failed) from a conclusive non-compliant verdict.
type CheckResult struct {
	Compliant bool
	Log       []string
	Errored   bool
}

// CheckPassed is the tri-state described in spec.md §3: not-checked / passed
// / failed-with-diagnostic.
type CheckPassed uint8

const (
	CheckNotChecked CheckPassed = iota
	CheckPassedOK
	CheckFailed
)

func (c CheckPassed) String() string {
	switch c {
	case CheckPassedOK:
		return "passed"
	case CheckFailed:
		return "failed"
	default:
		return "not-checked"
	}
}

// FileType is the declared type of a PipelineFile, driving check dispatch
// (spec.md §3, §4.4).
type FileType uint8

const (
	FileTypeUnknown FileType = iota
	FileTypeNetCDF
	FileTypePDF
	FileTypeCSV
)

func (t FileType) String() string {
	switch t {
	case FileTypeNetCDF:
		return "NetCDF"
	case FileTypePDF:
		return "PDF"
	case FileTypeCSV:
		return "CSV"
	default:
		return "unknown"
	}
}

// CheckType selects which validation strategy applies to a file (spec.md §3).
type CheckType uint8

const (
	CheckTypeNone CheckType = iota
	CheckTypeComplianceSuite
	CheckTypeFormat
	CheckTypeNonEmpty
)

func (c CheckType) String() string {
	switch c {
	case CheckTypeComplianceSuite:
		return "compliance-suite"
	case CheckTypeFormat:
		return "format-only"
	case CheckTypeNonEmpty:
		return "nonempty"
	default:
		return "none"
	}
}
