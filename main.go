package main

import "github.com/Tiliavir/study-time-tracker/cmd"

func main() {
	cmd.Execute()
}
