package risk

import "testing"

func TestCheck(t *testing.T) {
	tests := []struct {
		name    string
		message string
		want    Category // empty = no signal
	}{
		{"gross salary turkish", "Brüt maaş beklentiniz nedir?", CategorySalary},
		{"salary english uppercase", "What is your SALARY expectation?", CategorySalary},
		{"fee", "Ücret konusunu konuşalım", CategorySalary},
		{"ascii fallback", "ucret ne kadar", CategorySalary},
		{"contract turkish", "Sözleşme taslağını gönderiyorum", CategoryLegal},
		{"contract english", "Please review the contract.", CategoryLegal},
		{"contractor is not contract", "We hire a contractor", ""},
		{"non-compete", "Is there a non-compete clause?", CategoryLegal},
		{"noncompete joined", "noncompete", CategoryLegal},
		{"nda standalone", "Can you sign an NDA first?", CategoryLegal},
		{"nda inside word", "Let me check the agenda", ""},
		{"nda after dotless i", "Projeniz hakkında bilgi verir misiniz?", ""},
		{"intellectual property", "Fikri mülkiyet hakları kime ait?", CategoryLegal},
		{"interview time", "Çarşamba 14:00 uygun mu?", ""},
		{"empty", "   ", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sig := Check(tt.message)
			if tt.want == "" {
				if sig != nil {
					t.Fatalf("Check(%q) = %+v, want nil", tt.message, sig)
				}
				return
			}
			if sig == nil {
				t.Fatalf("Check(%q) = nil, want %s", tt.message, tt.want)
			}
			if sig.Category != tt.want {
				t.Errorf("category = %s, want %s", sig.Category, tt.want)
			}
		})
	}
}

func TestCheckFirstMatchWins(t *testing.T) {
	// Both salary and legal words are present; salary rules come first.
	sig := Check("Sözleşmedeki maaş maddesi")
	if sig == nil || sig.Category != CategorySalary {
		t.Fatalf("got %+v, want salary", sig)
	}
	if sig.Reason != "Anahtar kelime tespiti (salary)" {
		t.Errorf("reason = %q", sig.Reason)
	}
}
