package wavio

import "testing"

func TestEncodeBytesThenDecodeBytes_RoundTrips(t *testing.T) {
	t.Parallel()

	samples := []float32{0, 0.25, -0.25, 0.5, -0.5}
	data := EncodeBytes(samples, 16000)

	wf, err := DecodeBytes(data)
	if err != nil {
		t.Fatalf("DecodeBytes: unexpected error: %v", err)
	}
	if wf.SampleRate != 16000 {
		t.Errorf("SampleRate = %d, want 16000", wf.SampleRate)
	}
	if len(wf.Samples) != len(samples) {
		t.Fatalf("got %d samples, want %d", len(wf.Samples), len(samples))
	}
	for i, want := range samples {
		got := wf.Samples[i]
		diff := got - want
		if diff < 0 {
			diff = -diff
		}
		if diff > 0.001 {
			t.Errorf("sample %d = %v, want approximately %v (16-bit quantization)", i, got, want)
		}
	}
}

func TestIsNormalized(t *testing.T) {
	t.Parallel()

	if !(Waveform{SampleRate: 16000, SourceChannels: 1}).IsNormalized() {
		t.Errorf("IsNormalized() = false for 16kHz mono, want true")
	}
	if (Waveform{SampleRate: 44100, SourceChannels: 1}).IsNormalized() {
		t.Errorf("IsNormalized() = true for 44.1kHz mono, want false")
	}
	if (Waveform{SampleRate: 16000, SourceChannels: 2}).IsNormalized() {
		t.Errorf("IsNormalized() = true for 16kHz stereo, want false")
	}
}

func TestPCM16ToFloat32(t *testing.T) {
	t.Parallel()

	pcm := []byte{
		0x00, 0x00, // 0
		0xFF, 0x7F, // 32767 (max positive int16)
		0x00, 0x80, // -32768 (max negative int16)
	}
	got := PCM16ToFloat32(pcm)
	if len(got) != 3 {
		t.Fatalf("got %d samples, want 3", len(got))
	}
	if got[0] != 0 {
		t.Errorf("sample 0 = %v, want 0", got[0])
	}
	if diff := got[1] - 0.99997; diff < -0.0001 || diff > 0.0001 {
		t.Errorf("sample 1 = %v, want ~1.0", got[1])
	}
	if got[2] != -1 {
		t.Errorf("sample 2 = %v, want -1", got[2])
	}
}

func TestDecodeBytes_RejectsNonWavData(t *testing.T) {
	t.Parallel()

	_, err := DecodeBytes([]byte("not a wav file"))
	if err == nil {
		t.Errorf("DecodeBytes: got nil error for garbage input, want error")
	}
}
