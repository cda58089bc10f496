package cache

import "testing"

func TestNormalizeQuery(t *testing.T) {
	tests := []struct {
		name string
		a, b string
		same bool
	}{
		{
			name: "word order ignored",
			a:    "python programming",
			b:    "programming python",
			same: true,
		},
		{
			name: "case and punctuation ignored",
			a:    "Python, Programming!",
			b:    "python programming",
			same: true,
		},
		{
			name: "term multiplicity preserved",
			a:    "python python",
			b:    "python",
			same: false,
		},
		{
			name: "different terms differ",
			a:    "python",
			b:    "java",
			same: false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ka, kb := NormalizeQuery(tt.a), NormalizeQuery(tt.b)
			if (ka == kb) != tt.same {
				t.Errorf("NormalizeQuery(%q)=%q vs NormalizeQuery(%q)=%q, same=%v want %v",
					tt.a, ka, tt.b, kb, ka == kb, tt.same)
			}
		})
	}
}

func TestNormalizeQueryEmpty(t *testing.T) {
	if NormalizeQuery("") != "" {
		t.Error("empty query should normalise to empty string")
	}
	if NormalizeQuery("!?!") != "" {
		t.Error("punctuation-only query should normalise to empty string")
	}
}
