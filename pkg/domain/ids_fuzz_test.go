package domain

import (
	"testing"

	"github.com/google/uuid"
)

// FuzzParseDossierID checks that parsing never panics and that anything it
// accepts round-trips through String.
func FuzzParseDossierID(f *testing.F) {
	f.Add(uuid.New().String())
	f.Add("")
	f.Add("not-a-uuid")
	f.Add("00000000-0000-0000-0000-000000000000")

	f.Fuzz(func(t *testing.T, input string) {
		parsed, err := ParseDossierID(input)
		if err != nil {
			return
		}
		again, err := ParseDossierID(parsed.String())
		if err != nil {
			t.Fatalf("round-trip parse failed for %q: %v", input, err)
		}
		if again != parsed {
			t.Fatalf("round-trip mismatch for %q: %v != %v", input, again, parsed)
		}
	})
}
