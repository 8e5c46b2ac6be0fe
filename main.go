package main

import "obdiag/cmd"

func main() {
	cmd.Execute()
}
