package sweep

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifier_Classify(t *testing.T) {
	classifier := &Classifier{
		StructuralSections: []string{"general options", "world options"},
	}

	testCases := []struct {
		name     string
		section  string
		expected Category
	}{
		{name: "change prefix is targeted", section: "change K mem", expected: CategoryTargeted},
		{name: "break prefix is targeted", section: "break ecm junctions", expected: CategoryTargeted},
		{name: "block prefix is targeted", section: "block gap junctions", expected: CategoryTargeted},
		{name: "apply prefix is applied", section: "apply pressure", expected: CategoryApplied},
		{name: "apply voltage is applied", section: "apply external voltage", expected: CategoryApplied},
		{name: "modulator section is reserved", section: ModulatorSection, expected: CategoryModulator},
		{name: "general options is structural", section: "general options", expected: CategoryStructural},
		{name: "world options is structural", section: "world options", expected: CategoryStructural},
		{name: "unknown section is ignored", section: "results file saving", expected: CategoryIgnored},
		{name: "prefix must match start of name", section: "auto change detection", expected: CategoryIgnored},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, classifier.Classify(tc.section))
		})
	}
}

func TestClassifier_SectionsByCategory_PreservesOrder(t *testing.T) {
	classifier := &Classifier{StructuralSections: []string{"general options"}}

	names := []string{
		"change Na mem",
		"apply pressure",
		"change K mem",
		"general options",
		"block gap junctions",
		"plot options",
	}
	byCategory := classifier.SectionsByCategory(names)

	assert.Equal(t, []string{"change Na mem", "change K mem", "block gap junctions"}, byCategory[CategoryTargeted])
	assert.Equal(t, []string{"apply pressure"}, byCategory[CategoryApplied])
	assert.Equal(t, []string{"general options"}, byCategory[CategoryStructural])
	assert.Equal(t, []string{"plot options"}, byCategory[CategoryIgnored])
}

func TestCategory_String(t *testing.T) {
	assert.Equal(t, "targeted", CategoryTargeted.String())
	assert.Equal(t, "applied", CategoryApplied.String())
	assert.Equal(t, "modulator", CategoryModulator.String())
	assert.Equal(t, "structural", CategoryStructural.String())
	assert.Equal(t, "ignored", CategoryIgnored.String())
}
