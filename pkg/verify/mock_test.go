package verify

// MockDetector implements Detector for tests.
type MockDetector struct {
	DetectFunc func(frame []byte) (*Observation, error)
	calls      int
}

func (m *MockDetector) Detect(frame []byte) (*Observation, error) {
	m.calls++
	if m.DetectFunc != nil {
		return m.DetectFunc(frame)
	}
	return nil, ErrNoFaceDetected
}

// MockFrameSource implements FrameSource for tests.
type MockFrameSource struct {
	ReadFrameFunc func() (*Frame, error)
}

func (m *MockFrameSource) ReadFrame() (*Frame, error) {
	if m.ReadFrameFunc != nil {
		return m.ReadFrameFunc()
	}
	return &Frame{Data: []byte("frame")}, nil
}
