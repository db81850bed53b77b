package model

import "fmt"

// ElementWidth is the byte width of a single tensor element (float32).
const ElementWidth = 4

// Matrix is a dense row-major float32 tensor with two dimensions.
type Matrix struct {
	Rows int       `json:"rows"`
	Cols int       `json:"cols"`
	Data []float32 `json:"data"`
}

// NewMatrix returns a zero-initialized rows x cols matrix.
func NewMatrix(rows, cols int) Matrix {
	return Matrix{Rows: rows, Cols: cols, Data: make([]float32, rows*cols)}
}

// Identity returns the n x n identity matrix.
func Identity(n int) Matrix {
	m := NewMatrix(n, n)
	for i := 0; i < n; i++ {
		m.Data[i*n+i] = 1
	}
	return m
}

// At returns the element at row i, column j.
func (m Matrix) At(i, j int) float32 { return m.Data[i*m.Cols+j] }

// Set assigns the element at row i, column j.
func (m Matrix) Set(i, j int, v float32) { m.Data[i*m.Cols+j] = v }

// Elements returns the number of elements the matrix holds.
func (m Matrix) Elements() int { return m.Rows * m.Cols }

// Square reports whether the matrix has equal dimensions.
func (m Matrix) Square() bool { return m.Rows == m.Cols }

// Validate checks dimensions against the backing slice.
func (m Matrix) Validate() error {
	if m.Rows <= 0 || m.Cols <= 0 {
		return fmt.Errorf("invalid matrix shape %dx%d", m.Rows, m.Cols)
	}
	if len(m.Data) != m.Rows*m.Cols {
		return fmt.Errorf("matrix data length %d does not match shape %dx%d", len(m.Data), m.Rows, m.Cols)
	}
	return nil
}

// Clone returns a deep copy of the matrix.
func (m Matrix) Clone() Matrix {
	out := Matrix{Rows: m.Rows, Cols: m.Cols, Data: make([]float32, len(m.Data))}
	copy(out.Data, m.Data)
	return out
}
