package storage

import (
	"testing"

	"github.com/qdrant/go-client/qdrant"
	"github.com/stretchr/testify/assert"
)

func TestDenseVector(t *testing.T) {
	tests := []struct {
		name string
		out  *qdrant.VectorOutput
		want []float32
	}{
		{
			name: "dense variant",
			out:  &qdrant.VectorOutput{Vector: &qdrant.VectorOutput_Dense{Dense: &qdrant.DenseVector{Data: []float32{0.6, 0.8}}}},
			want: []float32{0.6, 0.8},
		},
		{
			name: "flat data",
			out:  &qdrant.VectorOutput{Data: []float32{1, 0}},
			want: []float32{1, 0},
		},
		{
			name: "missing",
			out:  nil,
			want: nil,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, denseVector(tt.out))
		})
	}
}
