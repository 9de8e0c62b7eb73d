package checker

import (
	"os"

	"github.com/aodn/pipeline/model"
)

// CheckNonEmpty is the minimal fallback check tier (spec.md §4.4 tier 3:
// "otherwise, run the minimal check: file is nonempty"), used for any file
// whose type is not recognised at all.
func CheckNonEmpty(localPath string) model.CheckResult {
	info, err := os.Stat(localPath)
	if err != nil {
		return model.CheckResult{Errored: true, Log: []string{err.Error()}}
	}
	if info.Size() == 0 {
		return model.CheckResult{Compliant: false, Log: []string{"file is empty"}}
	}
	return model.CheckResult{Compliant: true}
}
