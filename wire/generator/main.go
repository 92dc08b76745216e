package main

import (
	"github.com/outofforest/proton"

	"github.com/outofforest/ripple/wire"
)

//go:generate go run .
func main() {
	proton.Generate("../types.proton.go",
		proton.Message[wire.Hello](),
		proton.Message[wire.Joined](),
		proton.Message[wire.Left](),
		proton.Message[wire.Frame](),
	)
}
