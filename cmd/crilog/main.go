// crilog - CRI Container Log Parser
//
// crilog parses the log files containerd and CRI-O write for Kubernetes
// pods, and reports entries and malformed lines.
package main

import (
	"os"

	"github.com/ccollicutt/crilog/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
