package main

import "github.com/hightemp/topic-trainer-ai/cmd"

func main() {
	cmd.Execute()
}
