package main

import "github.com/theirongolddev/ghtraffic/cmd"

func main() {
	cmd.Execute()
}
