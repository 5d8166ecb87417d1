package strings

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDedupeAndTrim(t *testing.T) {
	tests := []struct {
		name string
		in   []string
		want []string
	}{
		{
			name: "nil stays nil",
			in:   nil,
			want: nil,
		},
		{
			name: "empty stays empty",
			in:   []string{},
			want: []string{},
		},
		{
			name: "broker list with padding and a repeat",
			in:   []string{" kafka-1:9092", "kafka-2:9092 ", "kafka-1:9092"},
			want: []string{"kafka-1:9092", "kafka-2:9092"},
		},
		{
			name: "whitespace-only entries vanish",
			in:   []string{"kafka-1:9092", "", "   ", "kafka-2:9092"},
			want: []string{"kafka-1:9092", "kafka-2:9092"},
		},
		{
			name: "first occurrence wins the position",
			in:   []string{"c", "a", "c", "b", "a"},
			want: []string{"c", "a", "b"},
		},
		{
			name: "case is significant",
			in:   []string{"Broker", "broker"},
			want: []string{"Broker", "broker"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DedupeAndTrim(tt.in))
		})
	}
}
