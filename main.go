package main

import (
	_ "time/tzdata"

	"github.com/frahmantamala/venue-management/cmd"
)

func main() {
	cmd.Execute()
}
