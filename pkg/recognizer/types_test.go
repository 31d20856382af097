package recognizer

import "testing"

func TestResult_FinalText(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		hyps []Hypothesis
		want string
	}{
		{name: "empty batch", want: ""},
		{
			name: "interim only",
			hyps: []Hypothesis{{Transcript: "the ca", IsFinal: false}},
			want: "",
		},
		{
			name: "mixed",
			hyps: []Hypothesis{
				{Transcript: "the", IsFinal: true},
				{Transcript: "ca", IsFinal: false},
				{Transcript: " cat ", IsFinal: true},
			},
			want: "the cat",
		},
		{
			name: "blank final ignored",
			hyps: []Hypothesis{{Transcript: "  ", IsFinal: true}},
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := (Result{Hypotheses: tt.hyps}).FinalText(); got != tt.want {
				t.Errorf("FinalText() = %q, want %q", got, tt.want)
			}
		})
	}
}
