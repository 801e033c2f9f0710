package protocol

// =============================================================================
// Helper functions for creating messages
// =============================================================================

// ErrorKind returns the error reply paired with a request kind.
func ErrorKind(request Kind) Kind {
	if request == KindSynthesize {
		return KindSynthesisError
	}
	return KindTranscriptionError
}

// ResultKind returns the success reply paired with a request kind.
func ResultKind(request Kind) Kind {
	if request == KindSynthesize {
		return KindSynthesisResult
	}
	return KindTranscriptionResult
}

// NewInitializeMessage creates an initialize request with a fresh id.
func NewInitializeMessage() (*Message, error) {
	return NewMessage(KindInitialize, "", nil)
}

// NewStopMessage creates a stop notification.
func NewStopMessage() (*Message, error) {
	return NewMessage(KindStop, "", nil)
}

// NewTranscribeMessage creates a transcription request.
func NewTranscribeMessage(audio []byte, mimeType string) (*Message, error) {
	return NewMessage(KindTranscribe, "", TranscribeData{Audio: audio, MIMEType: mimeType})
}

// NewSynthesizeMessage creates a synthesis request.
func NewSynthesizeMessage(text string) (*Message, error) {
	return NewMessage(KindSynthesize, "", SynthesizeData{Text: text})
}

// NewErrorMessage creates an engine error reply for the given request.
func NewErrorMessage(kind Kind, id string, err error) (*Message, error) {
	return NewMessage(kind, id, ErrorData{Error: err.Error()})
}

// =============================================================================
// Helper functions for parsing messages
// =============================================================================

// GetTranscribeData extracts a transcription request payload.
func (m *Message) GetTranscribeData() (*TranscribeData, error) {
	var data TranscribeData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetTranscriptionResult extracts a transcription result payload.
func (m *Message) GetTranscriptionResult() (*TranscriptionResultData, error) {
	var data TranscriptionResultData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetSynthesizeData extracts a synthesis request payload.
func (m *Message) GetSynthesizeData() (*SynthesizeData, error) {
	var data SynthesizeData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetSynthesisResult extracts a synthesis result payload.
func (m *Message) GetSynthesisResult() (*SynthesisResultData, error) {
	var data SynthesisResultData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetErrorData extracts an engine error payload.
func (m *Message) GetErrorData() (*ErrorData, error) {
	var data ErrorData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}
