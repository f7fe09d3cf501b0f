package main

import "github.com/twiced-technology-gmbh/dubboard/cmd"

func main() {
	cmd.Execute()
}
