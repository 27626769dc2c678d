package main

import "github.com/gojags/gojags/cmd"

func main() {
	cmd.Execute()
}
