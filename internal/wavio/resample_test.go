package wavio

import "testing"

func TestResample_NoOpWhenRatesMatch(t *testing.T) {
	t.Parallel()

	in := []float32{0.1, 0.2, 0.3}
	out := Resample(in, 16000, 16000)
	if len(out) != len(in) {
		t.Fatalf("Resample no-op: got len %d, want %d", len(out), len(in))
	}
	for i := range in {
		if out[i] != in[i] {
			t.Errorf("sample %d changed: %v -> %v", i, in[i], out[i])
		}
	}
}

func TestResample_SingleSampleFillsConstantBuffer(t *testing.T) {
	t.Parallel()

	out := Resample([]float32{0.5}, 8000, 16000)
	if len(out) == 0 {
		t.Fatalf("Resample single sample: got empty output")
	}
	for i, v := range out {
		if v != 0.5 {
			t.Errorf("sample %d = %v, want constant 0.5", i, v)
		}
	}
}

func TestResample_UpsamplingProducesMoreSamples(t *testing.T) {
	t.Parallel()

	in := make([]float32, 8000) // 1s at 8kHz
	out := Resample(in, 8000, 16000)
	if len(out) != 16000 {
		t.Errorf("Resample 8k->16k of 1s: got %d samples, want 16000", len(out))
	}
}

func TestResample_EmptyInputReturnsEmpty(t *testing.T) {
	t.Parallel()

	out := Resample(nil, 8000, 16000)
	if len(out) != 0 {
		t.Errorf("Resample(nil): got %d samples, want 0", len(out))
	}
}
