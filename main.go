package main

import "github.com/trailhound-dev/trailhound/cmd"

func main() {
	cmd.Execute()
}
