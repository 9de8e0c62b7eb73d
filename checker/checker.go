// Package checker implements the three-tier check dispatch of spec.md
// §4.4, ported directly from original_source/aodncore/pipeline/steps/check.py
// (get_child_check_runner's suite/format/nonempty cascade,
// CheckRunnerAdapter.run's collect-then-raise pattern).
package checker

import (
	"github.com/aodn/pipeline/common/stats"
	"github.com/aodn/pipeline/model"
)

// ComplianceSuite runs one named compliance check (e.g. "cf", "imos") and
// reports diagnostics, the Go shape of the IOOS Compliance Checker's
// per-suite plugin interface. Concrete checkers are out of scope (spec.md
// §1 "Deliberately out of scope"); this package only owns dispatch and the
// two fallback strategies.
type ComplianceSuite interface {
	Name() string
	Check(localPath string) model.CheckResult
}

// Checker assigns CheckPassed to every file in a collection by the
// first-match dispatch rule of spec.md §4.4.
type Checker struct {
	// Suites are the compliance suites configured for the active handler
	// (config.Harvester-adjacent per-handler parameter, spec.md §6).
	// Checked only for files whose FileType is a recognised scientific
	// format.
	Suites []ComplianceSuite
}

// scientificFileTypes are the types eligible for compliance-suite
// dispatch; format-only/nonempty are the fallback tiers for anything else.
var scientificFileTypes = map[model.FileType]bool{
	model.FileTypeNetCDF: true,
}

// CheckFile applies the three-tier dispatch to f, mutating
// f.CheckType/f.CheckPassed/f.CheckResult in place.
func (c *Checker) CheckFile(f *model.PipelineFile) {
	switch {
	case len(c.Suites) > 0 && scientificFileTypes[f.FileType]:
		f.CheckType = model.CheckTypeComplianceSuite
		f.CheckResult = runComplianceSuites(c.Suites, f.LocalPath)
	case f.FileType != model.FileTypeUnknown:
		f.CheckType = model.CheckTypeFormat
		f.CheckResult = CheckFormat(f.LocalPath, f.FileType)
	default:
		f.CheckType = model.CheckTypeNonEmpty
		f.CheckResult = CheckNonEmpty(f.LocalPath)
	}

	if f.CheckResult.Errored || !f.CheckResult.Compliant {
		f.CheckPassed = model.CheckFailed
	} else {
		f.CheckPassed = model.CheckPassedOK
	}
	stats.FileChecked(f.CheckPassed == model.CheckPassedOK)
}

// CheckAll applies CheckFile to every file in collection, in insertion
// order (spec.md §4.2 tie-break), and reports whether any file failed.
func (c *Checker) CheckAll(collection *model.FileCollection) (anyFailed bool) {
	for _, f := range collection.All() {
		c.CheckFile(f)
		if f.CheckPassed == model.CheckFailed {
			anyFailed = true
		}
	}
	return anyFailed
}

// runComplianceSuites runs every configured suite against localPath,
// merging their diagnostic logs; a single suite failure fails the whole
// check, mirroring CheckRunnerAdapter.run's "collect-then-raise" pattern
// (every suite runs so the operator sees every failure, not just the
// first).
func runComplianceSuites(suites []ComplianceSuite, localPath string) model.CheckResult {
	result := model.CheckResult{Compliant: true}
	for _, suite := range suites {
		r := suite.Check(localPath)
		result.Log = append(result.Log, r.Log...)
		if r.Errored {
			result.Errored = true
		}
		if !r.Compliant {
			result.Compliant = false
		}
	}
	return result
}
