package main

import "github.com/jmehdipour/sqlperf-lab/cmd"

func main() {
	cmd.Execute()
}
