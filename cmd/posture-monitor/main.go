package main

import "github.com/oshokin/posture-monitor/cmd/posture-monitor/cmd"

func main() {
	cmd.Execute()
}
