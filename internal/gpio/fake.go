package gpio

import "errors"

// FakeReader is a test double that returns scripted GPIO samples.
type FakeReader struct {
	// Samples contains the scripted readings.
	// Each call to Read() consumes the next sample.
	Samples []Sample

	// index is the next sample to return
	index int

	// Closed tracks if Close was called
	Closed bool

	// ReadError, if set, will be returned by Read()
	ReadError error

	// Reads counts calls to Read.
	Reads int
}

// NewFakeReader creates a FakeReader with the given samples.
func NewFakeReader(samples []Sample) *FakeReader {
	return &FakeReader{Samples: samples}
}

// Read returns the next scripted sample.
// If samples are exhausted, returns the last sample repeatedly.
func (f *FakeReader) Read() (Sample, error) {
	f.Reads++
	if f.ReadError != nil {
		return Sample{}, f.ReadError
	}

	if len(f.Samples) == 0 {
		return Sample{}, errors.New("no samples configured")
	}

	i := f.index
	if i >= len(f.Samples) {
		i = len(f.Samples) - 1
	} else {
		f.index++
	}

	return f.Samples[i], nil
}

// Append adds samples to the end of the script. The next Read after the
// current script is exhausted returns the first appended sample.
func (f *FakeReader) Append(samples ...Sample) {
	f.Samples = append(f.Samples, samples...)
}

// Close marks the reader as closed.
func (f *FakeReader) Close() error {
	f.Closed = true
	return nil
}

// Reset resets the reader to the beginning of samples.
func (f *FakeReader) Reset() {
	f.index = 0
	f.Reads = 0
	f.Closed = false
}
