package cmd

import "testing"

func TestStopCmd_Registered(t *testing.T) {
	for _, c := range rootCmd.Commands() {
		if c.Name() == "stop" {
			return
		}
	}
	t.Error("stop command not registered with rootCmd")
}

func TestStopCmd_Description(t *testing.T) {
	if stopCmd.Short == "" {
		t.Error("stop command missing Short description")
	}
}
