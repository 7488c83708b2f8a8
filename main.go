package main

import "github.com/encodeous/nbrd/cmd"

func main() {
	cmd.Execute()
}
