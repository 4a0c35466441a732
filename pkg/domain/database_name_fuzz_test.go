//go:build go1.18

package domain

import (
	"regexp"
	"testing"
)

var identifierGrammar = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// FuzzParseDatabaseName checks that parsing never panics and that acceptance
// coincides exactly with the identifier grammar plus the length limit.
func FuzzParseDatabaseName(f *testing.F) {
	f.Add("")
	f.Add("alpha")
	f.Add("_beta_2")
	f.Add("\"; DROP DATABASE postgres;--")
	f.Add("$(rm -rf /)")
	f.Add(string([]byte{0x00, 0x01, 0x02}))
	f.Add("alpha\x00suffix")

	f.Fuzz(func(t *testing.T, input string) {
		name, err := ParseDatabaseName(input)

		want := identifierGrammar.MatchString(input) && len(input) <= MaxDatabaseNameLength
		if want && err != nil {
			t.Errorf("grammar-valid input %q rejected: %v", input, err)
		}
		if !want && err == nil {
			t.Errorf("grammar-invalid input %q accepted", input)
		}
		if err == nil && name.String() != input {
			t.Errorf("parsed name %q differs from input %q", name, input)
		}
	})
}
