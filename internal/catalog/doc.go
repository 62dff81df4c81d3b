// Package catalog persists the operational records the pipeline
// produces but must not keep in memory: the registry of index
// generations (creation, promotion, replacement, retirement times) and
// the failure records written when a work item fails terminally.
//
// The index alias remains the runtime source of truth for which
// generation is active; the catalog records history and the timestamps
// the retention rules need. Failure records exist so a terminal failure
// is never a silent drop: operators triage them by stage and kind.
package catalog
