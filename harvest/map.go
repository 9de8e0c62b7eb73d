// Package harvest implements the harvest phase of the publisher (spec.md
// §4.5): grouping pipeline files by the matching harvester and invoking
// each harvester once per group. Ported from
// original_source/aodncore/pipeline/steps/harvest.py (HarvesterMap,
// TriggerEvent, validate_harvester_mapping).
package harvest

import (
	"github.com/aodn/pipeline/model"
	"github.com/aodn/pipeline/pipelineerr"
)

// TriggerEvent pairs a set of matched files with the harvester-specific
// extra parameters that drove the match, ported from harvest.py's
// TriggerEvent (matched_files + extra_params).
type TriggerEvent struct {
	MatchedFiles *model.FileCollection
	ExtraParams  map[string]string
}

// HarvesterMap groups TriggerEvents by harvester name, ported from
// harvest.py's HarvesterMap (an insertion-ordered dict of harvester name ->
// []TriggerEvent).
type HarvesterMap struct {
	order  []string
	byName map[string][]TriggerEvent
}

func NewHarvesterMap() *HarvesterMap {
	return &HarvesterMap{byName: make(map[string][]TriggerEvent)}
}

// AddEvent appends event under harvester, preserving first-seen order of
// harvester names the way HarvesterMap.add_event appends to an
// OrderedDict.
func (m *HarvesterMap) AddEvent(harvester string, event TriggerEvent) {
	if _, exists := m.byName[harvester]; !exists {
		m.order = append(m.order, harvester)
	}
	m.byName[harvester] = append(m.byName[harvester], event)
}

// Harvesters returns the harvester names in first-seen order.
func (m *HarvesterMap) Harvesters() []string {
	return append([]string(nil), m.order...)
}

// EventsFor returns the trigger events recorded under harvester.
func (m *HarvesterMap) EventsFor(harvester string) []TriggerEvent {
	return m.byName[harvester]
}

// AllPipelineFiles flattens every matched file across every harvester and
// event into one collection, ported from HarvesterMap.all_pipeline_files.
func (m *HarvesterMap) AllPipelineFiles() *model.FileCollection {
	all := model.NewFileCollection()
	for _, harvester := range m.order {
		for _, event := range m.byName[harvester] {
			for _, f := range event.MatchedFiles.All() {
				if all.Get(f.LocalPath) == nil {
					_ = all.Add(f)
				}
			}
		}
	}
	return all
}

// ValidateHarvesterMapping ensures every file in collection appears at
// least once in m, ported from harvest.py's validate_harvester_mapping /
// UnmappedFilesError.
func ValidateHarvesterMapping(collection *model.FileCollection, m *HarvesterMap) error {
	mapped := m.AllPipelineFiles()
	var unmapped []string
	for _, f := range collection.All() {
		if mapped.Get(f.LocalPath) == nil {
			unmapped = append(unmapped, f.SourcePath)
		}
	}
	if len(unmapped) > 0 {
		return pipelineerr.NewInvariantViolation("no matching harvester(s) found for: %v", unmapped)
	}
	return nil
}
