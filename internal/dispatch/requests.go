package dispatch

import (
	"fmt"

	"github.com/vk/biosweep/internal/configtree"
	"github.com/vk/biosweep/internal/sweep"
)

// BuildRequests materializes each variation into a concrete configuration
// document ready for dispatch. A variation that fails to materialize gets a
// pre-recorded failure outcome instead of silently dropping out: callers
// always end up with one outcome per variation.
func BuildRequests(baseline *configtree.Tree, variations []sweep.Variation) ([]Request, []Outcome) {
	requests := make([]Request, 0, len(variations))
	var failed []Outcome

	for _, v := range variations {
		tree, err := v.Materialize(baseline)
		if err != nil {
			failed = append(failed, Outcome{
				VariationID: v.ID,
				Status:      StatusFailure,
				Error:       fmt.Sprintf("failed to materialize variation: %v", err),
			})
			continue
		}
		doc, err := tree.ToYAML()
		if err != nil {
			failed = append(failed, Outcome{
				VariationID: v.ID,
				Status:      StatusFailure,
				Error:       fmt.Sprintf("failed to serialize variation: %v", err),
			})
			continue
		}
		requests = append(requests, Request{VariationID: v.ID, ConfigYAML: doc})
	}
	return requests, failed
}
