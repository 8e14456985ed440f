package appversion_test

import (
	"testing"

	"tock/internal/appversion"
)

func TestStringNeverEmpty(t *testing.T) {
	t.Parallel()

	if appversion.String() == "" {
		t.Fatal("String() reported an empty version")
	}
}
