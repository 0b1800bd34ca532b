package main

import (
	"os"
	"testing"

	"lnharness/internal/testsupport"
)

func TestMain(m *testing.M) {
	testsupport.MaybeRunFakeLightningd()
	os.Exit(m.Run())
}
