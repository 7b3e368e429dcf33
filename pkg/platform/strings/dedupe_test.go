package strings

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDedupeAndTrim(t *testing.T) {
	tests := []struct {
		name     string
		input    []string
		expected []string
	}{
		{name: "nil slice", input: nil, expected: nil},
		{name: "only blanks", input: []string{"", "  "}, expected: nil},
		{name: "trims and keeps order", input: []string{" b ", "a"}, expected: []string{"b", "a"}},
		{name: "drops repeats after trimming", input: []string{"a", " a", "b", "a "}, expected: []string{"a", "b"}},
		{name: "case is significant", input: []string{"A", "a"}, expected: []string{"A", "a"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, DedupeAndTrim(tt.input))
		})
	}
}

func TestSplitList(t *testing.T) {
	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, SplitList("kafka-1:9092, kafka-2:9092,,kafka-1:9092"))
	assert.Nil(t, SplitList(""))
	assert.Nil(t, SplitList(" , "))
}
