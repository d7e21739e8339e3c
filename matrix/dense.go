package matrix

// Dense is a row major float64 matrix holding the posterior point
// estimations (theta and phi) of a trained model.
type Dense struct {
	nrow int
	ncol int
	data []float64
}

// NewDense creates a new Dense with r rows and c columns.
// if r or c is not positive, it will panic. The (i*c + j)-th
// element in the data slice is the [i, j]-th element in the matrix.
func NewDense(r, c int) *Dense {
	if r <= 0 || c <= 0 {
		panic(ErrBadShape)
	}
	return &Dense{
		nrow: r,
		ncol: c,
		data: make([]float64, r*c),
	}
}

// get the shape of the matrix
func (m *Dense) Shape() (int, int) {
	return m.nrow, m.ncol
}

// get the [r, c]-th element of the matrix
func (m *Dense) Get(r, c int) float64 {
	if r < 0 || r >= m.nrow || c < 0 || c >= m.ncol {
		panic(ErrIndexOutOfRange)
	}
	return m.data[r*m.ncol+c]
}

// set val to the [r, c]-th element of the matrix
func (m *Dense) Set(r, c int, val float64) {
	if r < 0 || r >= m.nrow || c < 0 || c >= m.ncol {
		panic(ErrIndexOutOfRange)
	}
	m.data[r*m.ncol+c] = val
}

// Row returns the r-th row of the matrix. The returned slice shares
// storage with the matrix.
func (m *Dense) Row(r int) []float64 {
	if r < 0 || r >= m.nrow {
		panic(ErrIndexOutOfRange)
	}
	return m.data[r*m.ncol : (r+1)*m.ncol]
}

// ArgMax returns the column of the largest element of row r.
func (m *Dense) ArgMax(r int) int {
	row := m.Row(r)
	best := 0
	for c := 1; c < len(row); c += 1 {
		if row[c] > row[best] {
			best = c
		}
	}
	return best
}
