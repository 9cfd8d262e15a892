//go:build mage

package main

import (
	"fmt"

	"github.com/magefile/mage/mg"
)

type Run mg.Namespace

// Replays the bundled scenarios with the default settings.
func (Run) Replay() error {
	mg.Deps(Build.Engine)
	fmt.Println("Replay scenarios...")
	if _, err := executeCmd("./bin/vksync", withArgs("engine/replay/testdata"), withStream()); err != nil {
		return err
	}
	return nil
}
