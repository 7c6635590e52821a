package domain

import "testing"

func TestParseSinkKind(t *testing.T) {
	tests := []struct {
		name   string
		want   SinkKind
		wantOK bool
	}{
		{name: "array", want: SinkBytes, wantOK: true},
		{name: "Buffer", want: SinkBytes, wantOK: true},
		{name: "blob", want: SinkBytes, wantOK: true},
		{name: "text", want: SinkText, wantOK: true},
		{name: "converted", want: SinkDecodedText, wantOK: true},
		{name: "JSON", want: SinkStructured, wantOK: true},
		{name: "stream", want: SinkStream, wantOK: true},
		{name: "download", want: SinkFile, wantOK: true},
		{name: "./out.bin", wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseSinkKind(tt.name)
			if ok != tt.wantOK || (ok && got != tt.want) {
				t.Errorf("ParseSinkKind(%q) = %v, %v, want %v, %v", tt.name, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestParseAction(t *testing.T) {
	if kind, ok := ParseAction("json").Sink(); !ok || kind != SinkStructured {
		t.Errorf("ParseAction(json).Sink() = %v, %v", kind, ok)
	}
	if path, ok := ParseAction("download").Path(); !ok || path != "" {
		t.Errorf("ParseAction(download).Path() = %q, %v, want empty path", path, ok)
	}
	if path, ok := ParseAction("out/").Path(); !ok || path != "out/" {
		t.Errorf("ParseAction(out/).Path() = %q, %v", path, ok)
	}

	var zero Action
	if path, ok := zero.Path(); !ok || path != "" {
		t.Errorf("zero Action should be Path(\"\"), got %q, %v", path, ok)
	}
}

func TestRequestOptions_Attempts(t *testing.T) {
	for _, tt := range []struct{ in, want int }{{0, 1}, {-2, 1}, {1, 1}, {5, 5}} {
		if got := (RequestOptions{MaxRetries: tt.in}).Attempts(); got != tt.want {
			t.Errorf("Attempts() with MaxRetries=%d = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestFetchRequest_Resumable(t *testing.T) {
	file := FetchRequest{Target: Target{Kind: SinkFile, Path: "a"}, Options: RequestOptions{RangeResume: true}}
	if !file.Resumable() {
		t.Error("file target with RangeResume should be resumable")
	}

	buffer := FetchRequest{Target: Target{Kind: SinkBytes}, Options: RequestOptions{RangeResume: true}}
	if buffer.Resumable() {
		t.Error("buffer target should never be resumable")
	}
}

func TestTransferState_SizeMatch(t *testing.T) {
	s := NewTransferState(1, 10)
	if !s.SizeMatch() {
		t.Error("unknown size should match")
	}
	s.BytesExpected = 15
	s.Add(5)
	if !s.SizeMatch() || s.BytesReceived != 15 {
		t.Errorf("SizeMatch() = %v with %d received, want true with 15", s.SizeMatch(), s.BytesReceived)
	}
}
